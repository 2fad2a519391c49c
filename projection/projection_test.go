package projection

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matthewnorman/geoscripts/processing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// about 0.1 mm on the ground
const degreeDelta = 1e-9

func TestToGeographic(t *testing.T) {
	tests := []struct {
		name       string
		epsg       int
		geographic string
		x, y       float64
		lon, lat   float64
	}{
		{
			// NAD83 / California zone 3 (ftUS)
			name:       "2227 near false origin",
			epsg:       2227,
			geographic: "EPSG:4269",
			x:          5, y: 5,
			lon: -127.170371231665115, lat: 34.931494788734256,
		},
		{
			name:       "2227 San Francisco",
			epsg:       2227,
			geographic: "EPSG:4269",
			x:          1450000, y: 1000000,
			lon: -122.405229100456935, lat: 37.857831711272965,
		},
		{
			// the origin of RD New is defined on the Bessel ellipsoid, a datum shift to WGS84 moves it by ~100 m
			name:       "28992 origin, Amersfoort",
			epsg:       28992,
			geographic: "EPSG:4289",
			x:          155000, y: 463000,
			lon: 5.38763888888889, lat: 52.15616055555555,
		},
		{
			name:       "web mercator origin",
			epsg:       3857,
			geographic: "EPSG:4326",
			x:          0, y: 0,
			lon: 0, lat: 0,
		},
		{
			name:       "UTM zone 10N central meridian",
			epsg:       32610,
			geographic: "EPSG:4326",
			x:          500000, y: 0,
			lon: -123, lat: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.epsg)
			require.NoError(t, err)
			defer p.Close()
			assert.Equal(t, tt.geographic, p.GeographicCRS())

			lon, lat, err := p.ToGeographic(tt.x, tt.y)
			require.NoError(t, err)
			assert.InDelta(t, tt.lon, lon, degreeDelta)
			assert.InDelta(t, tt.lat, lat, degreeDelta)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		epsg int
		x, y float64
	}{
		{epsg: 2227, x: 5, y: 5},
		{epsg: 2227, x: 1450000, y: 1000000},
		{epsg: 2227, x: 6010000.25, y: 2110000.75},
		{epsg: 3857, x: -13627361.0, y: 4544761.0},
		{epsg: 28992, x: 155000, y: 463000},
	}
	for _, tt := range tests {
		p, err := New(tt.epsg)
		require.NoError(t, err)

		lon, lat, err := p.ToGeographic(tt.x, tt.y)
		require.NoError(t, err)
		x, y, err := p.ToProjected(lon, lat)
		require.NoError(t, err)
		assert.InDelta(t, tt.x, x, 1e-4, "epsg %d", tt.epsg)
		assert.InDelta(t, tt.y, y, 1e-4, "epsg %d", tt.epsg)

		p.Close()
	}
}

func TestGeographicAxisOrder(t *testing.T) {
	p, err := New(2227)
	require.NoError(t, err)
	defer p.Close()

	// California: longitude is about -120, latitude about 37
	lon, lat, err := p.ToGeographic(2000000, 500000)
	require.NoError(t, err)
	assert.InDelta(t, -120.5, lon, degreeDelta)
	assert.InDelta(t, 36.5, lat, degreeDelta)
	assert.Equal(t, 2227, p.EPSG())
}

func TestGeographicCRSIsItsOwnBase(t *testing.T) {
	p, err := New(4269)
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, "EPSG:4269", p.GeographicCRS())
	lon, lat, err := p.ToGeographic(-122.4, 37.8)
	require.NoError(t, err)
	assert.InDelta(t, -122.4, lon, degreeDelta)
	assert.InDelta(t, 37.8, lat, degreeDelta)
}

func TestDatabasePath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "proj.db"), nil, 0o644))
	t.Setenv("PROJ_DATA", filepath.Join(dir, "missing")+string(os.PathListSeparator)+dir)

	path, err := DatabasePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "proj.db"), path)
}

func TestNewInvalidCode(t *testing.T) {
	// 4978 is geocentric, there is nothing to project
	for _, code := range []int{0, -1, 99999999, 4978} {
		_, err := New(code)
		require.Error(t, err)
		var projectionError *processing.ProjectionError
		require.True(t, errors.As(err, &projectionError), "code %d: %v", code, err)
		assert.Equal(t, code, projectionError.Code)
	}
}

package centroid

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/go-spatial/geom"
	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewnorman/geoscripts/processing"
	"github.com/matthewnorman/geoscripts/processing/shape/shapetest"
)

var square = [][2]float64{{0, 0}, {0, 10}, {10, 10}, {10, 0}, {0, 0}}

type sliceSource []processing.Feature

func (s sliceSource) ReadFeatures(fn func(processing.Feature) error) error {
	for _, f := range s {
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func (s sliceSource) Close() error { return nil }

// scaleProjector scales x and y differently, so lat/lon mixups show
type scaleProjector struct{ err error }

func (p scaleProjector) ToGeographic(x, y float64) (float64, float64, error) {
	if p.err != nil {
		return 0, 0, p.err
	}
	return x / 10, y / 100, nil
}

func withTag(name string, v processing.Value) *processing.Properties {
	p := processing.NewProperties()
	p.Set(name, v)
	return p
}

func TestExtract(t *testing.T) {
	source := sliceSource{
		processing.NewFeature(0, geom.Polygon{square}, withTag("APN", processing.StringValue("123"))),
		processing.NewFeature(1, geom.MultiPolygon{
			{square},
			{{{20, 0}, {20, 2}, {22, 2}, {22, 0}, {20, 0}}},
		}, withTag("APN", processing.IntValue(124))),
		processing.NewFeature(2, &geom.Polygon{{{100, 100}, {100, 300}, {300, 300}, {300, 100}, {100, 100}}}, withTag("APN", processing.NullValue())),
	}

	records, err := Extract(source, "APN", scaleProjector{})
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, processing.StringValue("123"), records[0].Tag)
	assert.InDelta(t, 0.5, records[0].Longitude, 1e-12)
	assert.InDelta(t, 0.05, records[0].Latitude, 1e-12)

	assert.Equal(t, "124", records[1].Tag.String())
	assert.InDelta(t, 584./104./10, records[1].Longitude, 1e-12)
	assert.InDelta(t, 504./104./100, records[1].Latitude, 1e-12)

	assert.True(t, records[2].Tag.IsNull())
	assert.Equal(t, "", records[2].Row()[0])
	assert.InDelta(t, 20, records[2].Longitude, 1e-9)
	assert.InDelta(t, 2, records[2].Latitude, 1e-9)
}

func TestExtractErrors(t *testing.T) {
	polygon := func(props *processing.Properties) processing.Feature {
		return processing.NewFeature(0, geom.Polygon{square}, props)
	}
	projectionFailure := &processing.ProjectionError{Code: 2227, Op: "forward", Err: errors.New("out of range")}

	tests := []struct {
		name      string
		source    sliceSource
		projector Projector
		check     func(t *testing.T, err error)
	}{
		{
			name: "missing attribute",
			source: sliceSource{
				polygon(withTag("APN", processing.StringValue("1"))),
				processing.NewFeature(1, geom.Polygon{square}, withTag("PARCEL", processing.StringValue("2"))),
			},
			projector: scaleProjector{},
			check: func(t *testing.T, err error) {
				var missing *processing.AttributeMissingError
				require.True(t, errors.As(err, &missing))
				assert.Equal(t, 1, missing.Index)
				assert.Equal(t, "APN", missing.Name)
				assert.Equal(t, []string{"PARCEL"}, missing.Available)
			},
		},
		{
			name: "point geometry",
			source: sliceSource{
				processing.NewFeature(0, geom.Point{1, 2}, withTag("APN", processing.StringValue("1"))),
			},
			projector: scaleProjector{},
			check: func(t *testing.T, err error) {
				var geometryError *processing.GeometryError
				require.True(t, errors.As(err, &geometryError))
				assert.Equal(t, 0, geometryError.Index)
				assert.Contains(t, geometryError.WKT, "POINT")
			},
		},
		{
			name:      "missing geometry",
			source:    sliceSource{processing.NewFeature(3, nil, withTag("APN", processing.StringValue("1")))},
			projector: scaleProjector{},
			check: func(t *testing.T, err error) {
				var geometryError *processing.GeometryError
				require.True(t, errors.As(err, &geometryError))
				assert.Equal(t, 3, geometryError.Index)
			},
		},
		{
			name:      "empty polygon",
			source:    sliceSource{processing.NewFeature(0, geom.Polygon{}, withTag("APN", processing.StringValue("1")))},
			projector: scaleProjector{},
			check: func(t *testing.T, err error) {
				var geometryError *processing.GeometryError
				require.True(t, errors.As(err, &geometryError))
			},
		},
		{
			name:      "projection failure",
			source:    sliceSource{polygon(withTag("APN", processing.StringValue("1")))},
			projector: scaleProjector{err: projectionFailure},
			check: func(t *testing.T, err error) {
				var projectionError *processing.ProjectionError
				require.True(t, errors.As(err, &projectionError))
				assert.Equal(t, 2227, projectionError.Code)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Extract(tt.source, "APN", tt.projector)
			require.Error(t, err)
			assert.Nil(t, records)
			tt.check(t, err)
		})
	}
}

func writeParcels(t *testing.T, dir string) string {
	path := filepath.Join(dir, "parcels.shp")
	shapetest.Write(t, path,
		[]shp.Field{shp.StringField("APN", 20), shp.NumberField("UNITS", 6)},
		[]shapetest.Feature{
			{Rings: [][][2]float64{square}, Attributes: []interface{}{"123", 4}},
			{Rings: [][][2]float64{{{1450000, 1000000}, {1450000, 1000010}, {1450010, 1000010}, {1450010, 1000000}, {1450000, 1000000}}}, Attributes: []interface{}{"Smith, John", 1}},
		})
	return path
}

func readCSV(t *testing.T, path string) [][]string {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func newConfig(input, output string) Config {
	cfg := DefaultConfig()
	cfg.Input = input
	cfg.Output = output
	return cfg
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "centroids.csv")
	require.NoError(t, Run(newConfig(writeParcels(t, dir), output)))

	rows := readCSV(t, output)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"APN", "latitude", "longitude"}, rows[0])

	expected := []struct {
		tag      string
		lat, lon float64
	}{
		{tag: "123", lat: 34.931494788734256, lon: -127.170371231665115},
		{tag: "Smith, John", lat: 37.857845719430181, lon: -122.405212137536182},
	}
	for i, want := range expected {
		row := rows[i+1]
		require.Len(t, row, 3)
		assert.Equal(t, want.tag, row[0])
		lat, err := strconv.ParseFloat(row[1], 64)
		require.NoError(t, err)
		lon, err := strconv.ParseFloat(row[2], 64)
		require.NoError(t, err)
		assert.InDelta(t, want.lat, lat, 1e-9)
		assert.InDelta(t, want.lon, lon, 1e-9)
	}
}

func TestRunIsRepeatable(t *testing.T) {
	dir := t.TempDir()
	input := writeParcels(t, dir)
	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "second.csv")
	// second is written twice, a rerun truncates
	for _, output := range []string{first, second, second} {
		cfg := newConfig(input, output)
		cfg.PropertyName = "UNITS"
		require.NoError(t, Run(cfg))
	}

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, "UNITS", readCSV(t, first)[0][0])
	assert.Equal(t, "4", readCSV(t, first)[1][0])
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	parcels := writeParcels(t, dir)

	tests := []struct {
		name      string
		configure func(cfg *Config)
		check     func(t *testing.T, err error)
	}{
		{
			name:      "missing input",
			configure: func(cfg *Config) { cfg.Input = filepath.Join(dir, "missing.shp") },
			check: func(t *testing.T, err error) {
				var ioError *processing.IOError
				assert.True(t, errors.As(err, &ioError))
			},
		},
		{
			name:      "unknown extension",
			configure: func(cfg *Config) { cfg.Input = filepath.Join(dir, "parcels.dbf") },
			check: func(t *testing.T, err error) {
				var ioError *processing.IOError
				assert.True(t, errors.As(err, &ioError))
			},
		},
		{
			name:      "missing attribute",
			configure: func(cfg *Config) { cfg.PropertyName = "PARCEL" },
			check: func(t *testing.T, err error) {
				var missing *processing.AttributeMissingError
				require.True(t, errors.As(err, &missing))
				assert.Equal(t, []string{"APN", "UNITS"}, missing.Available)
			},
		},
		{
			name:      "unknown projection",
			configure: func(cfg *Config) { cfg.Projection = 99999999 },
			check: func(t *testing.T, err error) {
				var projectionError *processing.ProjectionError
				assert.True(t, errors.As(err, &projectionError))
			},
		},
		{
			name:      "invalid projection",
			configure: func(cfg *Config) { cfg.Projection = -1 },
			check: func(t *testing.T, err error) {
				var validationErrors validator.ValidationErrors
				assert.True(t, errors.As(err, &validationErrors))
			},
		},
		{
			name:      "explicit projection 0",
			configure: func(cfg *Config) { cfg.Projection = 0 },
			check: func(t *testing.T, err error) {
				var validationErrors validator.ValidationErrors
				require.True(t, errors.As(err, &validationErrors))
				assert.Equal(t, "Projection", validationErrors[0].Field())
			},
		},
		{
			name:      "explicit empty attribute name",
			configure: func(cfg *Config) { cfg.PropertyName = "" },
			check: func(t *testing.T, err error) {
				var validationErrors validator.ValidationErrors
				require.True(t, errors.As(err, &validationErrors))
				assert.Equal(t, "PropertyName", validationErrors[0].Field())
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := filepath.Join(t.TempDir(), "centroids.csv")
			cfg := newConfig(parcels, output)
			tt.configure(&cfg)
			err := Run(cfg)
			require.Error(t, err)
			tt.check(t, err)
			_, statErr := os.Stat(output)
			assert.True(t, os.IsNotExist(statErr), "no output expected")
		})
	}
}

func TestRunReportsWriteError(t *testing.T) {
	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("no /dev/full")
	}
	err := Run(newConfig(writeParcels(t, t.TempDir()), "/dev/full"))
	require.Error(t, err)
	var ioError *processing.IOError
	require.True(t, errors.As(err, &ioError))
	assert.Equal(t, "write", ioError.Op)
	assert.Equal(t, "/dev/full", ioError.Path)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "APN", cfg.PropertyName)
	assert.Equal(t, 2227, cfg.Projection)
	assert.Empty(t, cfg.Input)
	assert.Empty(t, cfg.Layer)
}

func TestConfigValidate(t *testing.T) {
	cfg := newConfig("in.shp", "out.csv")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, newConfig("in.shp", "out.csv"), cfg, "validation does not change the config")

	for _, cfg := range []Config{
		{Input: "in.shp", Output: "out.csv"},
		{Output: "out.csv", PropertyName: "APN", Projection: 2227},
		{Input: "in.shp", PropertyName: "APN", Projection: 2227},
		{Input: "same.shp", Output: "same.shp", PropertyName: "APN", Projection: 2227},
		{Input: "in.shp", Output: "out.csv", PropertyName: "APN", Projection: -2227},
		{Input: "in.shp", Output: "out.csv", PropertyName: "APN", Projection: 0},
		{Input: "in.shp", Output: "out.csv", Projection: 2227},
	} {
		assert.Error(t, cfg.Validate(), "%+v", cfg)
	}
}

// Package projection converts between a projected coordinate reference system, identified by its EPSG code,
// and the geographic longitude/latitude of the CRS it is based on, using PROJ.
// Only the map projection is inverted, no datum transformation is applied:
// EPSG:2227 yields NAD83 coordinates, EPSG:28992 Amersfoort (Bessel) coordinates.
//
// ToGeographic goes from projected to geographic (the inverse of the projection),
// ToProjected the other way around.
package projection

import (
	"errors"
	"fmt"
	"math"

	"github.com/matthewnorman/geoscripts/processing"

	"github.com/twpayne/go-proj/v10"
)

type Projection struct {
	epsg       int
	geographic string
	pj         *proj.PJ
}

// New sets up the transformation between EPSG:<epsg> and its base geographic CRS.
// Axis order is normalized: projected coordinates are easting/northing, geographic ones longitude/latitude.
func New(epsg int) (*Projection, error) {
	if epsg <= 0 {
		return nil, &processing.ProjectionError{Code: epsg, Op: "create", Err: fmt.Errorf("invalid EPSG code %d", epsg)}
	}
	geographic, err := baseGeographicCRS(epsg)
	if err != nil {
		return nil, &processing.ProjectionError{Code: epsg, Op: "look up base geographic CRS", Err: err}
	}
	pj, err := proj.NewCRSToCRS(crsName(epsg), geographic, nil)
	if err != nil {
		return nil, &processing.ProjectionError{Code: epsg, Op: "create", Err: err}
	}
	normalized, err := pj.NormalizeForVisualization()
	pj.Destroy()
	if err != nil {
		return nil, &processing.ProjectionError{Code: epsg, Op: "normalize", Err: err}
	}
	return &Projection{epsg: epsg, geographic: geographic, pj: normalized}, nil
}

func crsName(epsg int) string {
	return fmt.Sprintf("EPSG:%d", epsg)
}

func (p *Projection) EPSG() int {
	return p.epsg
}

// GeographicCRS names the CRS of the longitude/latitude side, e.g. "EPSG:4269"
func (p *Projection) GeographicCRS() string {
	return p.geographic
}

// ToGeographic transforms projected x,y into longitude,latitude (in degrees)
func (p *Projection) ToGeographic(x, y float64) (lon, lat float64, err error) {
	c, err := p.pj.Forward(proj.NewCoord(x, y, 0, 0))
	if err != nil {
		return 0, 0, &processing.ProjectionError{Code: p.epsg, Op: fmt.Sprintf("to geographic (%v, %v)", x, y), Err: err}
	}
	if !finite(c.X(), c.Y()) {
		return 0, 0, &processing.ProjectionError{Code: p.epsg, Op: fmt.Sprintf("to geographic (%v, %v)", x, y), Err: errNotFinite}
	}
	return c.X(), c.Y(), nil
}

// ToProjected transforms longitude,latitude (in degrees) into projected x,y
func (p *Projection) ToProjected(lon, lat float64) (x, y float64, err error) {
	c, err := p.pj.Inverse(proj.NewCoord(lon, lat, 0, 0))
	if err != nil {
		return 0, 0, &processing.ProjectionError{Code: p.epsg, Op: fmt.Sprintf("to projected (%v, %v)", lon, lat), Err: err}
	}
	if !finite(c.X(), c.Y()) {
		return 0, 0, &processing.ProjectionError{Code: p.epsg, Op: fmt.Sprintf("to projected (%v, %v)", lon, lat), Err: errNotFinite}
	}
	return c.X(), c.Y(), nil
}

func (p *Projection) Close() {
	if p.pj != nil {
		p.pj.Destroy()
		p.pj = nil
	}
}

var errNotFinite = errors.New("transformation did not produce finite coordinates")

func finite(fs ...float64) bool {
	for _, f := range fs {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

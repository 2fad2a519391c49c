package geomhelp

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-spatial/geom"
	"github.com/go-spatial/geom/encoding/wkt"
	"github.com/muesli/reflow/truncate"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

var ErrEmptyGeometry = errors.New("empty geometry")

// https://en.wikipedia.org/wiki/Shoelace_formula
func Shoelace(pts [][2]float64) float64 {
	return math.Abs(SignedArea(pts))
}

// SignedArea is positive for counter-clockwise rings and negative for clockwise ones.
// The closing point is optional.
func SignedArea(pts [][2]float64) float64 {
	sum := 0.
	if len(pts) == 0 {
		return 0.
	}

	p0 := pts[len(pts)-1]
	for _, p1 := range pts {
		sum += p0[0]*p1[1] - p1[0]*p0[1]
		p0 = p1
	}
	return sum / 2
}

// Centroid returns the area-weighted centroid of a (multi)polygon.
// For a multipolygon the parts are weighted by their area, holes are subtracted.
func Centroid(g geom.Geometry) (geom.Point, error) {
	o, err := ToOrb(g)
	if err != nil {
		return geom.Point{}, err
	}
	if countPoints(o) == 0 {
		return geom.Point{}, ErrEmptyGeometry
	}
	c, _ := planar.CentroidArea(o)
	return geom.Point{c[0], c[1]}, nil
}

// ToOrb converts polygonal go-spatial geometries into their orb counterpart
func ToOrb(g geom.Geometry) (orb.Geometry, error) {
	switch g := g.(type) {
	case geom.Polygon:
		return toOrbPolygon(g), nil
	case *geom.Polygon:
		if g == nil {
			return nil, ErrEmptyGeometry
		}
		return toOrbPolygon(*g), nil
	case geom.MultiPolygon:
		return toOrbMultiPolygon(g), nil
	case *geom.MultiPolygon:
		if g == nil {
			return nil, ErrEmptyGeometry
		}
		return toOrbMultiPolygon(*g), nil
	case nil:
		return nil, ErrEmptyGeometry
	default:
		return nil, fmt.Errorf("unsupported geometry type %T, expected a (multi)polygon", g)
	}
}

func toOrbPolygon(p geom.Polygon) orb.Polygon {
	o := make(orb.Polygon, len(p))
	for i, ring := range p {
		o[i] = make(orb.Ring, len(ring))
		for j, pt := range ring {
			o[i][j] = pt
		}
	}
	return o
}

func toOrbMultiPolygon(mp geom.MultiPolygon) orb.MultiPolygon {
	o := make(orb.MultiPolygon, len(mp))
	for i, p := range mp {
		o[i] = toOrbPolygon(p)
	}
	return o
}

// FromOrb converts an orb geometry into the go-spatial equivalent
func FromOrb(g orb.Geometry) (geom.Geometry, error) {
	switch g := g.(type) {
	case nil:
		return nil, nil
	case orb.Point:
		return geom.Point(g), nil
	case orb.MultiPoint:
		return geom.MultiPoint(fromOrbPoints(g)), nil
	case orb.LineString:
		return geom.LineString(fromOrbPoints(g)), nil
	case orb.MultiLineString:
		mls := make(geom.MultiLineString, len(g))
		for i := range g {
			mls[i] = fromOrbPoints(g[i])
		}
		return mls, nil
	case orb.Ring:
		return geom.Polygon{fromOrbPoints(g)}, nil
	case orb.Polygon:
		return fromOrbPolygon(g), nil
	case orb.MultiPolygon:
		mp := make(geom.MultiPolygon, len(g))
		for i := range g {
			mp[i] = fromOrbPolygon(g[i])
		}
		return mp, nil
	case orb.Collection:
		c := make(geom.Collection, 0, len(g))
		for i := range g {
			converted, err := FromOrb(g[i])
			if err != nil {
				return nil, err
			}
			c = append(c, converted)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", g)
	}
}

func fromOrbPoints[P ~[]orb.Point](pts P) [][2]float64 {
	s := make([][2]float64, len(pts))
	for i, pt := range pts {
		s[i] = pt
	}
	return s
}

func fromOrbPolygon(p orb.Polygon) geom.Polygon {
	gp := make(geom.Polygon, len(p))
	for i := range p {
		gp[i] = fromOrbPoints(p[i])
	}
	return gp
}

func countPoints(g orb.Geometry) int {
	n := 0
	switch g := g.(type) {
	case orb.Polygon:
		for _, r := range g {
			n += len(r)
		}
	case orb.MultiPolygon:
		for _, p := range g {
			n += countPoints(p)
		}
	}
	return n
}

func WktMustEncode(g geom.Geometry, maxLen uint) (s string) {
	if g == nil {
		return ""
	}
	p, isPoly := g.(geom.Polygon)
	if !isPoly {
		return wktMustEncodeTruncated(g, maxLen)
	}

	var lines []geom.LineString
	var points []geom.Point
	pp := make(geom.Polygon, len(p))
	copy(pp, p)
	for r := 0; r < len(pp); r++ {
		switch len(pp[r]) {
		default:
			continue
		case 1:
			points = append(points, pp[r][0])
		case 2:
			lines = append(lines, pp[r])
		}
		pp = append(pp[:r], pp[r+1:]...)
		r--
	}

	if len(pp) > 0 {
		s = wktMustEncodeTruncated(pp, maxLen)
	}
	for i := range lines {
		s += wktMustEncodeTruncated(lines[i], maxLen)
	}
	for i := range points {
		s += wktMustEncodeTruncated(points[i], maxLen)
	}
	return s
}

func wktMustEncodeTruncated(geom geom.Geometry, width uint) string {
	if width == 0 {
		return wkt.MustEncode(geom)
	}
	return truncate.StringWithTail(wkt.MustEncode(geom), width, "...")
}

// Package shape reads features from ESRI shapefiles, either loose (.shp with .shx/.dbf next to it)
// or bundled in a zip archive.
package shape

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-spatial/geom"
	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"golang.org/x/text/encoding"

	"github.com/matthewnorman/geoscripts/geomhelp"
	"github.com/matthewnorman/geoscripts/mapslicehelp"
	"github.com/matthewnorman/geoscripts/processing"
)

type SourceShapefile struct {
	path    string
	reader  shp.SequentialReader
	decoder *encoding.Decoder
}

// Open opens a .shp file or a .zip containing a single shapefile
func Open(path string) (*SourceShapefile, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &processing.IOError{Op: "open", Path: path, Err: err}
	}
	var reader shp.SequentialReader
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		reader, err = shp.Open(path)
	case ".zip":
		reader, err = shp.OpenZip(path)
	default:
		err = fmt.Errorf("not a shapefile: %s", path)
	}
	if err != nil {
		return nil, &processing.IOError{Op: "open", Path: path, Err: err}
	}

	// without a .cpg the attributes are read as UTF-8
	cpg, err := readCodePage(path)
	if err != nil {
		reader.Close()
		return nil, &processing.IOError{Op: "open", Path: path, Err: err}
	}
	decoder, err := newDecoder(cpg)
	if err != nil {
		log.Printf("warning: %s: %v, reading attributes as UTF-8", path, err)
	}
	return &SourceShapefile{path: path, reader: reader, decoder: decoder}, nil
}

func (source *SourceShapefile) Close() error {
	return source.reader.Close()
}

func (source *SourceShapefile) ReadFeatures(fn func(processing.Feature) error) error {
	fields := source.reader.Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = decodeText(source.decoder, field.String())
	}

	for source.reader.Next() {
		index, shape := source.reader.Shape()

		properties := processing.NewProperties()
		for i, field := range fields {
			properties.Set(names[i], fieldValue(field, decodeText(source.decoder, source.reader.Attribute(i))))
		}

		if err := fn(processing.NewFeature(index, toGeometry(shape), properties)); err != nil {
			return err
		}
	}
	if err := source.reader.Err(); err != nil {
		return &processing.IOError{Op: "read", Path: source.path, Err: err}
	}
	return nil
}

// fieldValue types a DBF value by its field definition
func fieldValue(field shp.Field, raw string) processing.Value {
	// padding is spaces by the book, but NUL bytes are found in the wild as well
	raw = strings.Trim(raw, " \x00")
	switch field.Fieldtype {
	case 'N', 'F':
		if raw == "" || strings.Trim(raw, "*") == "" {
			return processing.NullValue()
		}
		if field.Fieldtype == 'N' && field.Precision == 0 {
			if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return processing.IntValue(i)
			}
		}
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return processing.FloatValue(f)
		}
		return processing.StringValue(raw)
	default:
		return processing.StringValue(raw)
	}
}

// toGeometry turns polygon shapes into a geom.Polygon or geom.MultiPolygon.
// Other shape types are passed on as points or lines, so they can be reported.
func toGeometry(shape shp.Shape) geom.Geometry {
	switch s := shape.(type) {
	case *shp.Polygon:
		return polygonFromParts(s.Parts, s.Points)
	case *shp.PolygonZ:
		return polygonFromParts(s.Parts, s.Points)
	case *shp.PolygonM:
		return polygonFromParts(s.Parts, s.Points)
	case *shp.Point:
		return geom.Point{s.X, s.Y}
	case *shp.PolyLine:
		return geom.MultiLineString(splitParts(s.Parts, s.Points))
	case *shp.MultiPoint:
		mp := make(geom.MultiPoint, len(s.Points))
		for i, p := range s.Points {
			mp[i] = [2]float64{p.X, p.Y}
		}
		return mp
	default:
		return nil
	}
}

func splitParts(parts []int32, points []shp.Point) [][][2]float64 {
	rings := make([][][2]float64, 0, len(parts))
	for i, start := range parts {
		end := int32(len(points))
		if i+1 < len(parts) {
			end = parts[i+1]
		}
		if start < 0 || start > end || int(end) > len(points) {
			continue
		}
		ring := make([][2]float64, 0, end-start)
		for _, p := range points[start:end] {
			ring = append(ring, [2]float64{p.X, p.Y})
		}
		rings = append(rings, ring)
	}
	return rings
}

// polygonFromParts groups the rings of a polygon shape. Outer rings are clockwise and start a new polygon,
// counter-clockwise rings are holes of the outer ring that contains them.
func polygonFromParts(parts []int32, points []shp.Point) geom.Geometry {
	var polygons geom.MultiPolygon
	var holes [][][2]float64
	for _, ring := range splitParts(parts, points) {
		if geomhelp.SignedArea(ring) <= 0 {
			polygons = append(polygons, geom.Polygon{ring})
		} else {
			holes = append(holes, ring)
		}
	}

	for _, hole := range holes {
		owner := findOwner(polygons, hole)
		if owner == nil {
			// a lone counter-clockwise ring, treat as outer ring
			polygons = append(polygons, geom.Polygon{hole})
			continue
		}
		*owner = append(*owner, hole)
	}

	switch len(polygons) {
	case 0:
		return geom.Polygon{}
	case 1:
		return geom.Polygon(polygons[0])
	default:
		return polygons
	}
}

func findOwner(polygons geom.MultiPolygon, hole [][2]float64) *geom.Polygon {
	if len(hole) > 0 {
		for i := range polygons {
			outer := make(orb.Ring, len(polygons[i][0]))
			for j, p := range polygons[i][0] {
				outer[j] = p
			}
			if planar.RingContains(outer, hole[0]) {
				return (*geom.Polygon)(&polygons[i])
			}
		}
	}
	last := mapslicehelp.LastElement(polygons)
	if last == nil {
		return nil
	}
	return (*geom.Polygon)(last)
}

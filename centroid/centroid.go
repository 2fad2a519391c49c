// Package centroid extracts the centroid of every polygon in a vector dataset,
// reprojects it to latitude/longitude and writes the result as CSV.
package centroid

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/go-spatial/geom"

	"github.com/matthewnorman/geoscripts/geomhelp"
	"github.com/matthewnorman/geoscripts/processing"
	"github.com/matthewnorman/geoscripts/processing/csvfile"
	"github.com/matthewnorman/geoscripts/processing/geojson"
	"github.com/matthewnorman/geoscripts/processing/gpkg"
	"github.com/matthewnorman/geoscripts/processing/shape"
	"github.com/matthewnorman/geoscripts/projection"
)

const wktMaxLen = 80

// Projector turns projected coordinates into geographic ones
type Projector interface {
	ToGeographic(x, y float64) (lon, lat float64, err error)
}

// sourceWithCRS is implemented by sources that know the CRS of their coordinates
type sourceWithCRS interface {
	EPSG() (int, bool)
}

// OpenSource opens the dataset at path with the reader matching its extension.
// layer is only used for GeoPackages.
func OpenSource(path string, layer string) (processing.Source, error) {
	var source processing.Source
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".shp", ".zip":
		var s *shape.SourceShapefile
		if s, err = shape.Open(path); err == nil {
			source = s
		}
	case ".gpkg":
		var s *gpkg.SourceGeopackage
		if s, err = gpkg.Open(path, layer); err == nil {
			source = s
		}
	case ".geojson", ".json":
		var s *geojson.SourceGeoJSON
		if s, err = geojson.Open(path); err == nil {
			source = s
		}
	default:
		err = &processing.IOError{Op: "open", Path: path, Err: fmt.Errorf("unrecognised file extension %q", ext)}
	}
	if err != nil {
		return nil, err
	}
	return source, nil
}

// Run reads cfg.Input, computes all centroids and only then writes cfg.Output
func Run(cfg Config) (err error) {
	if err = cfg.Validate(); err != nil {
		return err
	}

	source, err := OpenSource(cfg.Input, cfg.Layer)
	if err != nil {
		return err
	}
	defer source.Close()

	if s, ok := source.(sourceWithCRS); ok {
		if epsg, known := s.EPSG(); known && epsg != cfg.Projection {
			log.Printf("warning: %s declares EPSG:%d, coordinates are read as EPSG:%d", cfg.Input, epsg, cfg.Projection)
		}
	}

	proj, err := projection.New(cfg.Projection)
	if err != nil {
		return err
	}
	defer proj.Close()

	log.Println("=== start extracting centroids ===")
	log.Printf("  reading %s", cfg.Input)
	records, err := Extract(source, cfg.PropertyName, proj)
	if err != nil {
		return err
	}
	log.Printf("  computed %d centroids", len(records))

	target, err := csvfile.Create(cfg.Output)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := target.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if err = processing.WriteRecords(target, cfg.PropertyName, records); err != nil {
		return err
	}
	log.Printf("  written %s", cfg.Output)
	log.Println("=== done extracting centroids ===")
	return nil
}

// Extract computes a record for every feature of source, in source order.
// The first failing feature aborts the extraction.
func Extract(source processing.Source, tagName string, projector Projector) ([]processing.CentroidRecord, error) {
	var records []processing.CentroidRecord
	err := source.ReadFeatures(func(f processing.Feature) error {
		record, err := toRecord(f, tagName, projector)
		if err != nil {
			return err
		}
		records = append(records, record)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func toRecord(f processing.Feature, tagName string, projector Projector) (processing.CentroidRecord, error) {
	g := f.Geometry()
	switch g.(type) {
	case geom.Polygon, *geom.Polygon, geom.MultiPolygon, *geom.MultiPolygon:
	case nil:
		return processing.CentroidRecord{}, &processing.GeometryError{Index: f.Index(), Reason: "missing geometry"}
	default:
		return processing.CentroidRecord{}, &processing.GeometryError{
			Index:  f.Index(),
			Reason: fmt.Sprintf("expected a polygon, got %T", g),
			WKT:    geomhelp.WktMustEncode(g, wktMaxLen),
		}
	}

	c, err := geomhelp.Centroid(g)
	if err != nil {
		return processing.CentroidRecord{}, &processing.GeometryError{
			Index:  f.Index(),
			Reason: "computing the centroid",
			WKT:    geomhelp.WktMustEncode(g, wktMaxLen),
			Err:    err,
		}
	}

	tag, ok := f.Properties().Lookup(tagName)
	if !ok {
		return processing.CentroidRecord{}, &processing.AttributeMissingError{
			Index:     f.Index(),
			Name:      tagName,
			Available: f.Properties().Names(),
		}
	}

	lon, lat, err := projector.ToGeographic(c.X(), c.Y())
	if err != nil {
		return processing.CentroidRecord{}, fmt.Errorf("feature %d: %w", f.Index(), err)
	}
	return processing.CentroidRecord{Tag: tag, Latitude: lat, Longitude: lon}, nil
}

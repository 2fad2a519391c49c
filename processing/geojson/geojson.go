// Package geojson reads features from a GeoJSON FeatureCollection
package geojson

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/perimeterx/marshmallow"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/matthewnorman/geoscripts/geomhelp"
	"github.com/matthewnorman/geoscripts/processing"
)

// crsMember is the (pre RFC 7946) named crs member
// {"type": "name", "properties": {"name": "urn:ogc:def:crs:EPSG::2227"}}
type crsMember struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

type SourceGeoJSON struct {
	path       string
	collection *geojson.FeatureCollection
	epsg       int
}

// Open reads and decodes the whole FeatureCollection at path
func Open(path string) (*SourceGeoJSON, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &processing.IOError{Op: "open", Path: path, Err: err}
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, &processing.IOError{Op: "decode", Path: path, Err: err}
	}
	source := &SourceGeoJSON{path: path, collection: fc}
	if raw, ok := fc.ExtraMembers["crs"]; ok {
		// the crs member is informational only, the coordinates are read in the configured projection
		if source.epsg, err = crsCode(raw); err != nil {
			log.Printf("warning: %s: %v, ignoring the crs member", path, err)
			source.epsg = 0
		}
	}
	return source, nil
}

// EPSG returns the code of the crs member, false when the collection doesn't declare one
func (source *SourceGeoJSON) EPSG() (int, bool) {
	return source.epsg, source.epsg > 0
}

func (source *SourceGeoJSON) Close() error {
	source.collection = nil
	return nil
}

func (source *SourceGeoJSON) ReadFeatures(fn func(processing.Feature) error) error {
	if source.collection == nil {
		return &processing.IOError{Op: "read", Path: source.path, Err: os.ErrClosed}
	}
	for index, f := range source.collection.Features {
		properties := processing.NewProperties()
		// object member order is lost in decoding, sort for a stable order
		names := maps.Keys(f.Properties)
		slices.Sort(names)
		for _, name := range names {
			v, err := processing.NewValue(f.Properties[name])
			if err != nil {
				return fmt.Errorf("feature %d, property %s: %w", index, name, err)
			}
			properties.Set(name, v)
		}

		geometry, err := geomhelp.FromOrb(f.Geometry)
		if err != nil {
			return &processing.GeometryError{Index: index, Reason: "converting the geometry", Err: err}
		}
		if err = fn(processing.NewFeature(index, geometry, properties)); err != nil {
			return err
		}
	}
	return nil
}

func crsCode(raw interface{}) (int, error) {
	dataMap, ok := raw.(map[string]interface{})
	if !ok {
		return 0, fmt.Errorf(`crs member is not an object but a %T`, raw)
	}
	var crs crsMember
	if _, err := marshmallow.UnmarshalFromJSONMap(dataMap, &crs); err != nil {
		return 0, fmt.Errorf(`could not parse crs member "%v": %w`, dataMap, err)
	}
	if crs.Type != "name" {
		return 0, fmt.Errorf(`unsupported crs type %q`, crs.Type)
	}
	return parseCRSName(crs.Properties.Name)
}

// parseCRSName understands EPSG:2227, urn:ogc:def:crs:EPSG::2227,
// http://www.opengis.net/def/crs/EPSG/0/2227 and the CRS84 aliases
func parseCRSName(name string) (int, error) {
	upper := strings.ToUpper(name)
	if strings.HasSuffix(upper, "CRS84") {
		return 4326, nil
	}
	i := strings.Index(upper, "EPSG")
	if i < 0 {
		return 0, fmt.Errorf(`crs %q is not an EPSG code`, name)
	}
	rest := strings.TrimLeft(upper[i+len("EPSG"):], ":/")
	if j := strings.LastIndexAny(rest, ":/"); j >= 0 {
		rest = rest[j+1:]
	}
	code, err := strconv.Atoi(rest)
	if err != nil || code <= 0 {
		return 0, fmt.Errorf(`crs %q is not an EPSG code`, name)
	}
	return code, nil
}

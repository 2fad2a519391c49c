// Package processing takes care of the logistics around reading features from a Source
// and writing records to a Target. Not the processing operation(s) itself.
package processing

import (
	"github.com/go-spatial/geom"
)

type feature struct {
	index      int
	geometry   geom.Geometry
	properties *Properties
}

func (f *feature) Index() int {
	return f.index
}

func (f *feature) Geometry() geom.Geometry {
	return f.geometry
}

func (f *feature) Properties() *Properties {
	return f.properties
}

// NewFeature is used by the sources to hand out their features
func NewFeature(index int, geometry geom.Geometry, properties *Properties) Feature {
	if properties == nil {
		properties = NewProperties()
	}
	return &feature{
		index:      index,
		geometry:   geometry,
		properties: properties,
	}
}

// WriteRecords writes the header followed by all records, in order
func WriteRecords(target Target, tagName string, records []CentroidRecord) error {
	if err := target.WriteHeader(Header(tagName)); err != nil {
		return err
	}
	for _, record := range records {
		if err := target.WriteRecord(record); err != nil {
			return err
		}
	}
	return nil
}

package processing

import (
	"github.com/go-spatial/geom"
)

type Feature interface {
	// Index is the position of the feature in the source, starting at 0
	Index() int
	Geometry() geom.Geometry
	Properties() *Properties
}

// Source yields its features one by one, in the order they are stored.
// Iteration stops at the first error returned by fn, which is passed on to the caller.
type Source interface {
	ReadFeatures(fn func(Feature) error) error
	Close() error
}

type Target interface {
	WriteHeader(columns []string) error
	WriteRecord(record CentroidRecord) error
}

package processing

import (
	"fmt"
	"strings"
)

// IOError is returned when a dataset or output file cannot be opened, read or written
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// AttributeMissingError is returned when a feature lacks the requested tag attribute
type AttributeMissingError struct {
	Index     int
	Name      string
	Available []string
}

func (e *AttributeMissingError) Error() string {
	return fmt.Sprintf("feature %d has no attribute %q (available: %s)",
		e.Index, e.Name, strings.Join(e.Available, ", "))
}

// ProjectionError is returned for unknown CRS codes and failed coordinate transformations
type ProjectionError struct {
	Code int
	Op   string
	Err  error
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("projection EPSG:%d: %s: %v", e.Code, e.Op, e.Err)
}

func (e *ProjectionError) Unwrap() error {
	return e.Err
}

// GeometryError is returned for geometries that cannot be decoded or have no centroid
type GeometryError struct {
	Index  int
	Reason string
	WKT    string
	Err    error
}

func (e *GeometryError) Error() string {
	msg := fmt.Sprintf("feature %d: %s", e.Index, e.Reason)
	if e.WKT != "" {
		msg += ": " + e.WKT
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *GeometryError) Unwrap() error {
	return e.Err
}

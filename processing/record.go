package processing

import "strconv"

// CentroidRecord is the reprojected centroid of one feature, tagged with one of its attributes
type CentroidRecord struct {
	Tag       Value
	Latitude  float64
	Longitude float64
}

// Header returns the output columns. Latitude precedes longitude.
func Header(tagName string) []string {
	return []string{tagName, "latitude", "longitude"}
}

// Row returns the record in the column order of Header
func (r CentroidRecord) Row() []string {
	return []string{
		r.Tag.String(),
		strconv.FormatFloat(r.Latitude, 'f', -1, 64),
		strconv.FormatFloat(r.Longitude, 'f', -1, 64),
	}
}

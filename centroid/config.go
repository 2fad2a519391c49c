package centroid

import (
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// Config holds the settings for a single extraction run
type Config struct {
	// Input is the vector dataset, the format follows from the extension
	Input string `validate:"required"`
	// Output is the CSV file, created or truncated
	Output string `validate:"required,nefield=Input"`
	// PropertyName is the attribute written in the first column
	PropertyName string `default:"APN" validate:"required"`
	// Projection is the EPSG code of the input coordinates
	Projection int `default:"2227" validate:"gt=0"`
	// Layer selects the feature table of a GeoPackage
	Layer string
}

// DefaultConfig returns a Config with the default tag attribute and projection filled in
func DefaultConfig() Config {
	var cfg Config
	if err := defaults.Set(&cfg); err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks the settings. Zero values are not replaced by defaults, an explicit
// empty attribute name or projection 0 is an error.
func (cfg *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(cfg)
}

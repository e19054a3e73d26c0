package tilestream

import (
	"errors"
	"fmt"
)

// TileURLResolver returns the fetch key of the tile at (col, row).
type TileURLResolver func(col, row int) string

// PanoramaConfig describes a panorama pre-sliced into a grid of tiles.
// It is set once per panorama load and never mutated afterwards.
//
// The image height is always Width/2. Cols must be a multiple of 4 and Rows
// a multiple of 2 so that the 4×2 partitioning used by AtlasSink falls on
// tile boundaries.
type PanoramaConfig struct {
	Width   int
	Cols    int
	Rows    int
	TileURL TileURLResolver

	// BaseURL optionally points at a low resolution version of the whole
	// panorama, shown while tiles stream in.
	BaseURL string
}

// Height returns the height of the full panorama in pixels.
func (c PanoramaConfig) Height() int { return c.Width / 2 }

// Tiles returns the total number of tiles in the grid.
func (c PanoramaConfig) Tiles() int { return c.Cols * c.Rows }

// ConfigurationError reports an invalid panorama description.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// Validate checks the panorama description. It is meant to run once per
// load, before any tile work begins.
func (c PanoramaConfig) Validate() error {
	if c.Width <= 0 {
		return &ConfigurationError{Field: "width", Message: "must be positive"}
	}
	if c.Cols <= 0 {
		return &ConfigurationError{Field: "cols", Message: "must be positive"}
	}
	if c.Rows <= 0 {
		return &ConfigurationError{Field: "rows", Message: "must be positive"}
	}
	if c.TileURL == nil {
		return &ConfigurationError{Field: "tile_url", Message: "required field is empty"}
	}
	if c.Cols%4 != 0 {
		return &ConfigurationError{Field: "cols", Message: fmt.Sprintf("must be a multiple of 4, got %d", c.Cols)}
	}
	if c.Rows%2 != 0 {
		return &ConfigurationError{Field: "rows", Message: fmt.Sprintf("must be a multiple of 2, got %d", c.Rows)}
	}
	return nil
}

// IsConfigurationError checks if an error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

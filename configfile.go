package tilestream

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// PanoramaFile is the on-disk YAML description of a tiled panorama.
//
//	width: 12000
//	cols: 16
//	rows: 8
//	tile_url: https://example.com/pano/{col}_{row}.jpg
//	base_url: https://example.com/pano/low.jpg
type PanoramaFile struct {
	Width   int    `yaml:"width"`
	Cols    int    `yaml:"cols"`
	Rows    int    `yaml:"rows"`
	TileURL string `yaml:"tile_url"`
	BaseURL string `yaml:"base_url,omitempty"`
}

// TemplateResolver returns a resolver substituting {col} and {row} in tmpl.
func TemplateResolver(tmpl string) TileURLResolver {
	return func(col, row int) string {
		r := strings.NewReplacer(
			"{col}", strconv.Itoa(col),
			"{row}", strconv.Itoa(row),
		)
		return r.Replace(tmpl)
	}
}

// Config converts the file description into a validated PanoramaConfig.
func (f PanoramaFile) Config() (PanoramaConfig, error) {
	cfg := PanoramaConfig{
		Width:   f.Width,
		Cols:    f.Cols,
		Rows:    f.Rows,
		BaseURL: f.BaseURL,
	}
	if f.TileURL != "" {
		if !strings.Contains(f.TileURL, "{col}") || !strings.Contains(f.TileURL, "{row}") {
			return PanoramaConfig{}, &ConfigurationError{Field: "tile_url", Message: "must contain {col} and {row}"}
		}
		cfg.TileURL = TemplateResolver(f.TileURL)
	}
	if err := cfg.Validate(); err != nil {
		return PanoramaConfig{}, err
	}
	return cfg, nil
}

// ParsePanorama parses a YAML panorama description.
func ParsePanorama(data []byte) (PanoramaConfig, error) {
	var f PanoramaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return PanoramaConfig{}, fmt.Errorf("failed to parse panorama file: %w", err)
	}
	return f.Config()
}

// LoadPanoramaFile reads and validates a YAML panorama description.
func LoadPanoramaFile(path string) (PanoramaConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PanoramaConfig{}, fmt.Errorf("failed to read panorama file: %w", err)
	}
	return ParsePanorama(data)
}

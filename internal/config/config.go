package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Renderer names accepted by the renderer key.
const (
	RendererStatic = "static"
	RendererViewer = "viewer"
)

// Duplicate key policies accepted by the duplicate_keys key.
const (
	DuplicateReject = "reject"
	DuplicateFanout = "fanout"
)

// Config holds every operator-tunable setting of a comparison run. Fields
// are pointers so a partial file or a set of CLI flags can be overlaid on
// another Config without clobbering values it does not mention.
type Config struct {
	// Input layout
	KeyColumns      []string `json:"key_columns,omitempty" yaml:"key_columns,omitempty"`
	PositionColumns []string `json:"position_columns,omitempty" yaml:"position_columns,omitempty"`
	DuplicateKeys   *string  `json:"duplicate_keys,omitempty" yaml:"duplicate_keys,omitempty"`

	// Rendering
	Renderer    *string `json:"renderer,omitempty" yaml:"renderer,omitempty"`
	AxisOrder   *string `json:"axis_order,omitempty" yaml:"axis_order,omitempty"` // e.g. "xzy"; empty means the renderer's default
	OutputDir   *string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`
	ImageFormat *string `json:"image_format,omitempty" yaml:"image_format,omitempty"`
	Open        *bool   `json:"open,omitempty" yaml:"open,omitempty"`
	Listen      *string `json:"listen,omitempty" yaml:"listen,omitempty"`
	Colors      *Colors `json:"colors,omitempty" yaml:"colors,omitempty"`
	Camera      *Camera `json:"camera,omitempty" yaml:"camera,omitempty"`

	// Reporting
	ReportAgreement *bool   `json:"report_agreement,omitempty" yaml:"report_agreement,omitempty"`
	ExportCSV       *bool   `json:"export_csv,omitempty" yaml:"export_csv,omitempty"`
	HistoryDB       *string `json:"history_db,omitempty" yaml:"history_db,omitempty"`
}

// Colors overrides the renderer palette. Values are CSS-style hex strings.
type Colors struct {
	Below       *string `json:"below,omitempty" yaml:"below,omitempty"`
	Above       *string `json:"above,omitempty" yaml:"above,omitempty"`
	AboveSecond *string `json:"above_second,omitempty" yaml:"above_second,omitempty"`
}

// Camera positions the static renderer's projection, in degrees.
type Camera struct {
	Azimuth   *float64 `json:"azimuth,omitempty" yaml:"azimuth,omitempty"`
	Elevation *float64 `json:"elevation,omitempty" yaml:"elevation,omitempty"`
}

// Palette is a resolved set of series colours.
type Palette struct {
	Below       string
	Above       string
	AboveSecond string
}

// Helper functions to create pointers
func String(v string) *string    { return &v }
func Bool(v bool) *bool          { return &v }
func Float64(v float64) *float64 { return &v }

// Empty returns a Config with every field unset. The Get* methods supply
// defaults for unset fields.
func Empty() *Config {
	return &Config{}
}

const maxFileSize = 1 * 1024 * 1024 // 1MB

// Load reads a Config from a .json, .yaml or .yml file and validates it.
// Fields omitted from the file keep their defaults.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Overlay copies every field set in o onto c. Used to apply CLI flags on
// top of a loaded file.
func (c *Config) Overlay(o *Config) {
	if o == nil {
		return
	}
	if len(o.KeyColumns) > 0 {
		c.KeyColumns = append([]string(nil), o.KeyColumns...)
	}
	if len(o.PositionColumns) > 0 {
		c.PositionColumns = append([]string(nil), o.PositionColumns...)
	}
	overlayString(&c.DuplicateKeys, o.DuplicateKeys)
	overlayString(&c.Renderer, o.Renderer)
	overlayString(&c.AxisOrder, o.AxisOrder)
	overlayString(&c.OutputDir, o.OutputDir)
	overlayString(&c.ImageFormat, o.ImageFormat)
	overlayString(&c.Listen, o.Listen)
	overlayString(&c.HistoryDB, o.HistoryDB)
	if o.Open != nil {
		c.Open = Bool(*o.Open)
	}
	if o.ReportAgreement != nil {
		c.ReportAgreement = Bool(*o.ReportAgreement)
	}
	if o.ExportCSV != nil {
		c.ExportCSV = Bool(*o.ExportCSV)
	}
	if o.Colors != nil {
		if c.Colors == nil {
			c.Colors = &Colors{}
		}
		overlayString(&c.Colors.Below, o.Colors.Below)
		overlayString(&c.Colors.Above, o.Colors.Above)
		overlayString(&c.Colors.AboveSecond, o.Colors.AboveSecond)
	}
	if o.Camera != nil {
		if c.Camera == nil {
			c.Camera = &Camera{}
		}
		if o.Camera.Azimuth != nil {
			c.Camera.Azimuth = Float64(*o.Camera.Azimuth)
		}
		if o.Camera.Elevation != nil {
			c.Camera.Elevation = Float64(*o.Camera.Elevation)
		}
	}
}

func overlayString(dst **string, src *string) {
	if src != nil {
		*dst = String(*src)
	}
}

// Validate checks that the configuration values are valid.
func (c *Config) Validate() error {
	if c.KeyColumns != nil {
		if len(c.KeyColumns) != 2 {
			return fmt.Errorf("key_columns must name exactly 2 columns, got %d", len(c.KeyColumns))
		}
		if err := checkColumnNames("key_columns", c.KeyColumns); err != nil {
			return err
		}
	}
	if c.PositionColumns != nil {
		if len(c.PositionColumns) != 3 {
			return fmt.Errorf("position_columns must name exactly 3 columns (x, y, z), got %d", len(c.PositionColumns))
		}
		if err := checkColumnNames("position_columns", c.PositionColumns); err != nil {
			return err
		}
	}
	if err := checkColumnNames("key_columns/position_columns", append(c.GetKeyColumns(), c.GetPositionColumns()...)); err != nil {
		return err
	}

	if c.DuplicateKeys != nil {
		switch *c.DuplicateKeys {
		case DuplicateReject, DuplicateFanout:
		default:
			return fmt.Errorf("duplicate_keys must be %q or %q, got %q", DuplicateReject, DuplicateFanout, *c.DuplicateKeys)
		}
	}

	if c.Renderer != nil {
		switch *c.Renderer {
		case RendererStatic, RendererViewer:
		default:
			return fmt.Errorf("renderer must be %q or %q, got %q", RendererStatic, RendererViewer, *c.Renderer)
		}
	}

	if c.AxisOrder != nil && *c.AxisOrder != "" {
		if !isAxisPermutation(*c.AxisOrder) {
			return fmt.Errorf("axis_order must be a permutation of \"xyz\", got %q", *c.AxisOrder)
		}
	}

	if c.ImageFormat != nil {
		switch *c.ImageFormat {
		case "png", "svg", "pdf":
		default:
			return fmt.Errorf("image_format must be png, svg or pdf, got %q", *c.ImageFormat)
		}
	}

	if c.Listen != nil && *c.Listen == "" {
		return fmt.Errorf("listen must not be empty")
	}

	if c.Camera != nil && c.Camera.Elevation != nil {
		if e := *c.Camera.Elevation; e < -90 || e > 90 {
			return fmt.Errorf("camera.elevation must be between -90 and 90, got %f", e)
		}
	}

	return nil
}

func checkColumnNames(field string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%s must not contain empty names", field)
		}
		if seen[n] {
			return fmt.Errorf("%s names column %q twice", field, n)
		}
		seen[n] = true
	}
	return nil
}

func isAxisPermutation(s string) bool {
	if len(s) != 3 {
		return false
	}
	b := []byte(strings.ToLower(s))
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
	return string(b) == "xyz"
}

// GetKeyColumns returns the join key columns or the default. The default
// keeps the literal "//" prefix the scanner export writes into its header.
func (c *Config) GetKeyColumns() []string {
	if len(c.KeyColumns) == 0 {
		return []string{"//Pixel_X", "Pixel_Y"}
	}
	return c.KeyColumns
}

// GetPositionColumns returns the x, y, z column names or the default.
func (c *Config) GetPositionColumns() []string {
	if len(c.PositionColumns) == 0 {
		return []string{"X", "Y", "Z"}
	}
	return c.PositionColumns
}

// GetDuplicateKeys returns the duplicate_keys policy or the default.
func (c *Config) GetDuplicateKeys() string {
	if c.DuplicateKeys == nil {
		return DuplicateReject
	}
	return *c.DuplicateKeys
}

// GetRenderer returns the renderer name or the default.
func (c *Config) GetRenderer() string {
	if c.Renderer == nil {
		return RendererViewer
	}
	return *c.Renderer
}

// GetAxisOrder returns the axis permutation. The two renderers have
// different defaults: the static plot draws (x, y, z), the interactive
// viewer (x, z, y).
func (c *Config) GetAxisOrder() string {
	if c.AxisOrder != nil && *c.AxisOrder != "" {
		return strings.ToLower(*c.AxisOrder)
	}
	if c.GetRenderer() == RendererStatic {
		return "xyz"
	}
	return "xzy"
}

// GetOutputDir returns the output_dir value or the default.
func (c *Config) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "pointdiff-output"
	}
	return *c.OutputDir
}

// GetImageFormat returns the image_format value or the default.
func (c *Config) GetImageFormat() string {
	if c.ImageFormat == nil {
		return "png"
	}
	return *c.ImageFormat
}

// GetOpen returns whether rendered output is handed to the system opener.
func (c *Config) GetOpen() bool {
	if c.Open == nil {
		return true
	}
	return *c.Open
}

// GetListen returns the viewer's listen address or the default.
func (c *Config) GetListen() string {
	if c.Listen == nil {
		return "127.0.0.1:0"
	}
	return *c.Listen
}

// GetReportAgreement returns whether the agreement score is printed. It
// defaults to on for the viewer and off for the static plot.
func (c *Config) GetReportAgreement() bool {
	if c.ReportAgreement == nil {
		return c.GetRenderer() == RendererViewer
	}
	return *c.ReportAgreement
}

// GetExportCSV returns the export_csv value or the default.
func (c *Config) GetExportCSV() bool {
	if c.ExportCSV == nil {
		return false
	}
	return *c.ExportCSV
}

// GetHistoryDB returns the history database path; empty disables history.
func (c *Config) GetHistoryDB() string {
	if c.HistoryDB == nil {
		return ""
	}
	return *c.HistoryDB
}

// GetPalette returns the series colours for the selected renderer with any
// configured overrides applied.
func (c *Config) GetPalette() Palette {
	p := Palette{Below: "#1f77b4", Above: "#d62728", AboveSecond: "#2ca02c"}
	if c.GetRenderer() == RendererViewer {
		p = Palette{Below: "#ff0000", Above: "#0000ff", AboveSecond: "#00ff00"}
	}
	if c.Colors != nil {
		if c.Colors.Below != nil {
			p.Below = *c.Colors.Below
		}
		if c.Colors.Above != nil {
			p.Above = *c.Colors.Above
		}
		if c.Colors.AboveSecond != nil {
			p.AboveSecond = *c.Colors.AboveSecond
		}
	}
	return p
}

// GetAzimuth returns the camera azimuth in degrees or the default.
func (c *Config) GetAzimuth() float64 {
	if c.Camera == nil || c.Camera.Azimuth == nil {
		return -60
	}
	return *c.Camera.Azimuth
}

// GetElevation returns the camera elevation in degrees or the default.
func (c *Config) GetElevation() float64 {
	if c.Camera == nil || c.Camera.Elevation == nil {
		return 30
	}
	return *c.Camera.Elevation
}

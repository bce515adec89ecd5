// Package config handles exporter configuration loading and management.
package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard3mf/internal/gltfscene"
	"github.com/Faultbox/midgard3mf/internal/logger"
	"github.com/Faultbox/midgard3mf/internal/mapscene"
	"github.com/Faultbox/midgard3mf/internal/rsmscene"
	"github.com/Faultbox/midgard3mf/pkg/threemf"
)

// maxPrecision is the most decimal digits a float64 can meaningfully carry.
const maxPrecision = 15

// Config holds all exporter settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Units   UnitsConfig   `yaml:"units"`
	RSM     RSMConfig     `yaml:"rsm"`
	GLTF    GLTFConfig    `yaml:"gltf"`
	Map     MapConfig     `yaml:"map"`
	Data    DataConfig    `yaml:"data"`
	Logging LoggingConfig `yaml:"logging"`
}

// DataConfig holds game data file paths.
type DataConfig struct {
	// GRFPaths are searched below the archive named on the command line,
	// last entry first.
	GRFPaths []string `yaml:"grf_paths"`
}

// ExportConfig holds settings passed to the 3MF writer.
type ExportConfig struct {
	Precision      int     `yaml:"precision"`
	GlobalScale    float64 `yaml:"global_scale"`
	ApplyModifiers bool    `yaml:"apply_modifiers"`
	OutputDir      string  `yaml:"output_dir"` // used when no output path is given
}

// UnitsConfig overrides the units a provider assigns to its scene.
type UnitsConfig struct {
	Unit        string  `yaml:"unit"`         // empty keeps the provider's unit
	ScaleLength float64 `yaml:"scale_length"` // 0 keeps the unit conversion
}

// RSMConfig holds RSM conversion settings.
type RSMConfig struct {
	ForceDoubleSided bool `yaml:"force_double_sided"`
	DropDegenerate   bool `yaml:"drop_degenerate"`
	SkipAxisFix      bool `yaml:"skip_axis_fix"`
}

// GLTFConfig holds glTF conversion settings.
type GLTFConfig struct {
	SkipAxisFix bool `yaml:"skip_axis_fix"`
}

// MapConfig holds map conversion settings. Placed models use the RSM
// settings.
type MapConfig struct {
	SkipGround  bool `yaml:"skip_ground"`
	SkipModels  bool `yaml:"skip_models"`
	SkipAxisFix bool `yaml:"skip_axis_fix"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	opts := threemf.DefaultOptions()
	return &Config{
		Export: ExportConfig{
			Precision:      opts.Precision,
			GlobalScale:    opts.GlobalScale,
			ApplyModifiers: opts.ApplyModifiers,
		},
		RSM: RSMConfig{
			DropDegenerate: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Export.Precision < 0 || c.Export.Precision > maxPrecision {
		return fmt.Errorf("export.precision must be between 0 and %d, got %d", maxPrecision, c.Export.Precision)
	}
	if c.Export.GlobalScale <= 0 {
		return fmt.Errorf("export.global_scale must be positive, got %g", c.Export.GlobalScale)
	}
	if c.Units.ScaleLength < 0 {
		return fmt.Errorf("units.scale_length must not be negative, got %g", c.Units.ScaleLength)
	}
	if c.Units.Unit != "" {
		if _, err := threemf.ParseLengthUnit(c.Units.Unit); err != nil {
			return fmt.Errorf("units.unit: %w", err)
		}
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// ExportOptions returns the options for threemf.NewExporter.
func (c *Config) ExportOptions() threemf.Options {
	return threemf.Options{
		Precision:      c.Export.Precision,
		GlobalScale:    c.Export.GlobalScale,
		ApplyModifiers: c.Export.ApplyModifiers,
	}
}

// RSMOptions returns the options for rsmscene.FromRSM.
func (c *Config) RSMOptions(log *zap.Logger) rsmscene.Options {
	return rsmscene.Options{
		ForceDoubleSided: c.RSM.ForceDoubleSided,
		DropDegenerate:   c.RSM.DropDegenerate,
		SkipAxisFix:      c.RSM.SkipAxisFix,
		Log:              log,
	}
}

// GLTFOptions returns the options for gltfscene.Load.
func (c *Config) GLTFOptions(log *zap.Logger) gltfscene.Options {
	return gltfscene.Options{
		SkipAxisFix: c.GLTF.SkipAxisFix,
		Log:         log,
	}
}

// MapOptions returns the options for mapscene.Load.
func (c *Config) MapOptions(log *zap.Logger) mapscene.Options {
	return mapscene.Options{
		Model:       c.RSMOptions(log),
		SkipGround:  c.Map.SkipGround,
		SkipModels:  c.Map.SkipModels,
		SkipAxisFix: c.Map.SkipAxisFix,
		Log:         log,
	}
}

// ApplyUnits returns units with the configured overrides applied.
func (c *Config) ApplyUnits(units threemf.UnitSettings) (threemf.UnitSettings, error) {
	if c.Units.Unit != "" {
		u, err := threemf.ParseLengthUnit(c.Units.Unit)
		if err != nil {
			return units, err
		}
		units.LengthUnit = u
	}
	if c.Units.ScaleLength != 0 {
		units.ScaleLength = c.Units.ScaleLength
	}
	return units, nil
}

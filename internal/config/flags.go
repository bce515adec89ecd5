package config

import "flag"

// Flags holds the command-line overrides shared by the export commands.
// Zero values and negative sentinels mean "not set".
type Flags struct {
	Config      *string
	Debug       *bool
	Precision   *int
	Scale       *float64
	NoModifiers *bool
	Unit        *string
	ScaleLength *float64
}

// BindFlags registers the common flags on fs.
func BindFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Config:      fs.String("config", "", "Path to config file"),
		Debug:       fs.Bool("debug", false, "Enable debug logging"),
		Precision:   fs.Int("precision", -1, "Decimal digits for coordinates"),
		Scale:       fs.Float64("scale", 0, "Global scale multiplied into every item"),
		NoModifiers: fs.Bool("no-modifiers", false, "Export meshes without modifiers"),
		Unit:        fs.String("unit", "", "Override the scene length unit"),
		ScaleLength: fs.Float64("scale-length", 0, "Override the unit conversion factor"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil || f.Config == nil {
		return ""
	}
	return *f.Config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug != nil && *f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.Precision != nil && *f.Precision >= 0 {
		cfg.Export.Precision = *f.Precision
	}
	if f.Scale != nil && *f.Scale > 0 {
		cfg.Export.GlobalScale = *f.Scale
	}
	if f.NoModifiers != nil && *f.NoModifiers {
		cfg.Export.ApplyModifiers = false
	}
	if f.Unit != nil && *f.Unit != "" {
		cfg.Units.Unit = *f.Unit
	}
	if f.ScaleLength != nil && *f.ScaleLength > 0 {
		cfg.Units.ScaleLength = *f.ScaleLength
	}
}

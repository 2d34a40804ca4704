package config

// Config holds all map maker configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Log      LogConfig      `mapstructure:"log" validate:"required"`
	Pipeline PipelineConfig `mapstructure:"pipeline" validate:"required"`
	Zoom     ZoomConfig     `mapstructure:"zoom" validate:"required"`
	Labels   LabelsConfig   `mapstructure:"labels" validate:"required"`
	Export   ExportConfig   `mapstructure:"export"`
	Tiler    TilerConfig    `mapstructure:"tiler"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
}

// PipelineConfig contains settings for the conversion pipeline.
type PipelineConfig struct {
	// Workers is the number of sources parsed concurrently.
	Workers int `mapstructure:"workers" validate:"gte=1,lte=64"`

	// Tolerance is the maximum distance between a flattened curve and the
	// original, in the units of the coordinate system being flattened into.
	Tolerance float64 `mapstructure:"tolerance" validate:"gt=0"`

	// MapWidth is the width of the flatmap frame in projected metres.
	MapWidth float64 `mapstructure:"map_width" validate:"gt=0"`

	// ErrorCheck parses every source and reports all errors without
	// producing output.
	ErrorCheck bool `mapstructure:"error_check"`

	OutputDir string `mapstructure:"output_dir" validate:"required"`
}

// ZoomConfig contains the tile zoom range.
type ZoomConfig struct {
	Min     int `mapstructure:"min" validate:"gte=0,ltefield=Initial"`
	Initial int `mapstructure:"initial" validate:"ltefield=Max"`
	Max     int `mapstructure:"max" validate:"lte=15"`
}

// LabelsConfig selects and configures the label cache backend.
type LabelsConfig struct {
	Backend     string `mapstructure:"backend" validate:"required,oneof=file postgres"`
	Path        string `mapstructure:"path" validate:"required_if=Backend file"`
	DatabaseURL string `mapstructure:"database_url" validate:"required_if=Backend postgres"`
	Refresh     bool   `mapstructure:"refresh"`
}

// ExportConfig contains the diagnostic export toggles.
type ExportConfig struct {
	RawSegments     bool   `mapstructure:"raw_segments"`
	RawMarkup       bool   `mapstructure:"raw_markup"`
	IntermediateDir string `mapstructure:"intermediate_dir"`
}

// TilerConfig configures the external tiling engine.
type TilerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Command string `mapstructure:"command" validate:"required_if=Enabled true"`
}

// MetricsConfig configures run metrics.
type MetricsConfig struct {
	// Textfile, when set, receives the run's metrics in Prometheus text
	// format at the end of the run.
	Textfile string `mapstructure:"textfile"`
}

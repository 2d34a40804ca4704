package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load, for example
// MAPMAKER_PIPELINE_WORKERS.
const EnvPrefix = "MAPMAKER"

// LoadOptions selects the optional sources Load reads besides defaults and
// the environment.
type LoadOptions struct {
	// ConfigFile is a YAML, JSON or TOML file. Empty means none.
	ConfigFile string

	// Flags are command-line flags bound to configuration keys. A flag only
	// overrides other sources when it was set on the command line.
	Flags *pflag.FlagSet

	// FlagKeys maps configuration keys to flag names.
	FlagKeys map[string]string
}

// Load configuration from defaults, an optional config file, environment
// variables and command-line flags, in increasing order of precedence.
// Returns a populated Config struct or an error if loading/validation fails.
func Load(opts LoadOptions) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", opts.ConfigFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.Flags != nil {
		for key, name := range opts.FlagKeys {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				return nil, fmt.Errorf("flag %q bound to %q is not defined", name, key)
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag %q: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	// Intermediate documents share layer file names with the exported ones.
	if c.Export.IntermediateDir != "" && sameDir(c.Export.IntermediateDir, c.Pipeline.OutputDir) {
		return fmt.Errorf("config validation failed: export.intermediate_dir must differ from pipeline.output_dir %q",
			c.Pipeline.OutputDir)
	}
	return nil
}

func sameDir(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// Default returns the configuration Load produces when nothing overrides the
// defaults.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")

	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.tolerance", 1.0)
	v.SetDefault("pipeline.map_width", 1_000_000.0)
	v.SetDefault("pipeline.error_check", false)
	v.SetDefault("pipeline.output_dir", "output")

	v.SetDefault("zoom.min", 2)
	v.SetDefault("zoom.initial", 4)
	v.SetDefault("zoom.max", 10)

	v.SetDefault("labels.backend", "file")
	v.SetDefault("labels.path", "labels.json")
	v.SetDefault("labels.database_url", "")
	v.SetDefault("labels.refresh", false)

	v.SetDefault("export.raw_segments", false)
	v.SetDefault("export.raw_markup", false)
	v.SetDefault("export.intermediate_dir", "")

	v.SetDefault("tiler.enabled", false)
	v.SetDefault("tiler.command", "tippecanoe")

	v.SetDefault("metrics.textfile", "")
}

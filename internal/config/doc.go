// Package config handles configuration loading, parsing, and validation
// from defaults, config files, environment variables and command-line flags.
// It provides type-safe access to settings needed by the pipeline stages
// while keeping configuration details separate from conversion logic.
package config

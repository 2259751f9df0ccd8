// Package config loads and validates iocore's runtime configuration.
//
// Configuration sources, highest precedence first:
//  1. CLI flags
//  2. Environment variables (IOCORE_*)
//  3. Configuration file (YAML)
//  4. Defaults (DefaultConfig)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glustercore/iocore/internal/telemetry"
	"github.com/glustercore/iocore/pkg/iothreads"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LoggingConfig controls internal/logger's behavior.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format selects the slog handler: "text" (with ANSI color on a
	// detected terminal) or "json".
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is where logs are written: "stdout", "stderr", or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// ClientRegistryConfig tunes pkg/client's Registry and its backing table.
type ClientRegistryConfig struct {
	// MaxClients bounds how large the client table may grow.
	MaxClients uint32 `mapstructure:"max_clients" validate:"required,gt=0" yaml:"max_clients"`
}

// Config is the complete runtime configuration for an iocore server.
type Config struct {
	// Logging controls internal/logger's output.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry tracing.
	Telemetry telemetry.Config `mapstructure:"telemetry" yaml:"telemetry"`

	// ClientRegistry tunes the client table's capacity.
	ClientRegistry ClientRegistryConfig `mapstructure:"client_registry" yaml:"client_registry"`

	// IOThreads tunes the worker pool: watchdog_seconds, idle_time,
	// max_count, limit[4], cleanup_disconnected_reqs, and the watchdog's
	// stall decay parameters.
	IOThreads iothreads.Config `mapstructure:"io_threads" yaml:"io_threads"`
}

// DefaultConfig returns the configuration used when no config file is
// present and no overrides apply.
func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
			Output: "stdout",
		},
		Telemetry: telemetry.DefaultConfig(),
		ClientRegistry: ClientRegistryConfig{
			MaxClients: 65536,
		},
		IOThreads: iothreads.DefaultConfig(),
	}
}

var validate = validator.New()

// Validate runs go-playground/validator over the configuration tree.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Load reads the config file over DefaultConfig. An IOCORE_ environment
// variable overrides a value only for a key the file itself sets; when no
// config file is found, Load returns DefaultConfig() unchanged. Load reads
// no CLI flags: callers that bind flags on their own *viper.Viper use
// LoadFromViper.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	found, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if !found {
		return &cfg, nil
	}

	if err := v.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromViper builds a Config from an already-configured *viper.Viper,
// letting callers layer CLI flags (via BindPFlag) on top of file and
// environment sources before unmarshaling.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
	)); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("IOCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}

	v.AddConfigPath(defaultConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func defaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "iocore")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "iocore")
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() string {
	return filepath.Join(defaultConfigDir(), "config.yaml")
}

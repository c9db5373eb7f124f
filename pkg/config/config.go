// Package config loads the key/value configuration consumed by the core at
// construction time: cache, notify, pool and db options.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full set of recognized options, grouped the way spec.md's
// option table groups them: cache, notify, pool, db.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (SMBNOTIFYD_*)
//  2. Configuration file (YAML)
//  3. Default values
type Config struct {
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Notify  NotifyConfig  `mapstructure:"notify" yaml:"notify"`
	Pool    PoolConfig    `mapstructure:"pool" yaml:"pool"`
	DB      DBConfig      `mapstructure:"db" yaml:"db"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// CacheConfig configures the file-state cache.
type CacheConfig struct {
	// InitialSize is the initial map capacity.
	InitialSize int `mapstructure:"initial_size" yaml:"initial_size"`
	// CaseSensitive controls whether normalize uppercases paths.
	CaseSensitive bool `mapstructure:"case_sensitive" yaml:"case_sensitive"`
	// ExpireInterval is the lease granted to newly created states.
	ExpireInterval time.Duration `mapstructure:"expire_interval" yaml:"expire_interval"`
}

// NotifyConfig configures the change-notification dispatcher.
type NotifyConfig struct {
	// DefaultLease is the re-arm lease granted on a fresh NotifyRequest.
	DefaultLease time.Duration `mapstructure:"default_lease" yaml:"default_lease"`
	// BufferLimit is the overflow threshold per request.
	BufferLimit int `mapstructure:"buffer_limit" yaml:"buffer_limit"`
}

// PoolConfig configures the thread-request pool.
type PoolConfig struct {
	// Workers is the number of worker goroutines.
	Workers int `mapstructure:"workers" yaml:"workers"`
}

// DBConfig configures the database connection pool.
type DBConfig struct {
	// DSN is the Postgres connection string.
	DSN string `mapstructure:"dsn" yaml:"dsn"`
	// Min is the minimum number of warm connections.
	Min int `mapstructure:"min" yaml:"min"`
	// Max is the upper bound on connections.
	Max int `mapstructure:"max" yaml:"max"`
	// Lease is the default lease granted by acquire.
	Lease time.Duration `mapstructure:"lease" yaml:"lease"`
	// OnlineCheckInterval is the number of reaper cycles between liveness sweeps.
	OnlineCheckInterval int `mapstructure:"online_check_interval" yaml:"online_check_interval"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("SMBNOTIFYD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only covers keys viper already knows about, so every
	// option is bound explicitly for its SMBNOTIFYD_* override to reach
	// Unmarshal even when the config file omits the key.
	for _, key := range []string{
		"logging.level", "logging.format", "logging.output",
		"cache.initial_size", "cache.case_sensitive", "cache.expire_interval",
		"notify.default_lease", "notify.buffer_limit",
		"pool.workers",
		"db.dsn", "db.min", "db.max", "db.lease", "db.online_check_interval",
		"metrics.enabled", "metrics.port",
	} {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
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

// durationDecodeHook converts strings like "30s" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v) * time.Millisecond, nil
		case int64:
			return time.Duration(v) * time.Millisecond, nil
		case float64:
			return time.Duration(v) * time.Millisecond, nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "smbnotifyd")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "smbnotifyd")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields,
// matching spec.md's option table.
//
// Default Strategy:
//   - Zero values (0, "", false) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyCacheDefaults(&cfg.Cache)
	applyNotifyDefaults(&cfg.Notify)
	applyPoolDefaults(&cfg.Pool)
	applyDBDefaults(&cfg.DB)
	applyMetricsDefaults(&cfg.Metrics)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyCacheDefaults(cfg *CacheConfig) {
	if cfg.InitialSize == 0 {
		cfg.InitialSize = 500
	}
	// CaseSensitive defaults to false; zero value already matches.
	if cfg.ExpireInterval == 0 {
		cfg.ExpireInterval = 60 * time.Second
	}
}

func applyNotifyDefaults(cfg *NotifyConfig) {
	if cfg.DefaultLease == 0 {
		cfg.DefaultLease = 10 * time.Minute
	}
	if cfg.BufferLimit == 0 {
		cfg.BufferLimit = 64
	}
}

func applyPoolDefaults(cfg *PoolConfig) {
	if cfg.Workers == 0 {
		cfg.Workers = 25
	}
}

func applyDBDefaults(cfg *DBConfig) {
	if cfg.Min == 0 {
		cfg.Min = 5
	}
	if cfg.Max == 0 {
		cfg.Max = 10
	}
	if cfg.Lease == 0 {
		cfg.Lease = 30 * time.Second
	}
	if cfg.OnlineCheckInterval == 0 {
		cfg.OnlineCheckInterval = 20
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

package config

import "fmt"

// Validate checks configuration invariants after ApplyDefaults has run.
func Validate(cfg *Config) error {
	switch cfg.Logging.Level {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("logging.level: invalid value %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format: invalid value %q", cfg.Logging.Format)
	}

	if cfg.Cache.InitialSize < 0 {
		return fmt.Errorf("cache.initial_size: must be >= 0, got %d", cfg.Cache.InitialSize)
	}
	if cfg.Cache.ExpireInterval <= 0 {
		return fmt.Errorf("cache.expire_interval: must be > 0, got %s", cfg.Cache.ExpireInterval)
	}

	if cfg.Notify.DefaultLease <= 0 {
		return fmt.Errorf("notify.default_lease: must be > 0, got %s", cfg.Notify.DefaultLease)
	}
	if cfg.Notify.BufferLimit <= 0 {
		return fmt.Errorf("notify.buffer_limit: must be > 0, got %d", cfg.Notify.BufferLimit)
	}

	if cfg.Pool.Workers <= 0 {
		return fmt.Errorf("pool.workers: must be > 0, got %d", cfg.Pool.Workers)
	}

	if cfg.DB.Min < 0 {
		return fmt.Errorf("db.min: must be >= 0, got %d", cfg.DB.Min)
	}
	if cfg.DB.Max <= 0 {
		return fmt.Errorf("db.max: must be > 0, got %d", cfg.DB.Max)
	}
	if cfg.DB.Min > cfg.DB.Max {
		return fmt.Errorf("db.min (%d) must be <= db.max (%d)", cfg.DB.Min, cfg.DB.Max)
	}
	if cfg.DB.Lease <= 0 {
		return fmt.Errorf("db.lease: must be > 0, got %s", cfg.DB.Lease)
	}
	if cfg.DB.OnlineCheckInterval <= 0 {
		return fmt.Errorf("db.online_check_interval: must be > 0, got %d", cfg.DB.OnlineCheckInterval)
	}

	if cfg.Metrics.Enabled && (cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port: must be in [1, 65535], got %d", cfg.Metrics.Port)
	}

	return nil
}

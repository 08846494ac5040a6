package config

import (
	"fmt"
	"net/url"

	"github.com/google/uuid"
)

// Validate checks a fully defaulted configuration for consistency. It
// returns the first problem found.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := validateGame(&cfg.Game); err != nil {
		return fmt.Errorf("game: %w", err)
	}
	if err := validateHistory(&cfg.History); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if err := validateRuns(&cfg.Runs); err != nil {
		return fmt.Errorf("runs: %w", err)
	}
	if err := validateSimulator(&cfg.Simulator); err != nil {
		return fmt.Errorf("simulator: %w", err)
	}
	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url %q must use http or https", cfg.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("base_url %q has no host", cfg.BaseURL)
	}

	// The player ID is optional at load time (simulate mode needs none)
	// but must be a UUID when present.
	if cfg.PlayerID != "" {
		if _, err := uuid.Parse(cfg.PlayerID); err != nil {
			return fmt.Errorf("player_id is not a valid UUID: %w", err)
		}
	}

	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", cfg.Timeout)
	}
	if cfg.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", cfg.MaxRetries)
	}
	if cfg.RetryBackoff <= 0 {
		return fmt.Errorf("retry_backoff must be positive, got %v", cfg.RetryBackoff)
	}
	if cfg.RetryBackoffMax < cfg.RetryBackoff {
		return fmt.Errorf("retry_backoff_max %v is below retry_backoff %v",
			cfg.RetryBackoffMax, cfg.RetryBackoff)
	}
	return nil
}

func validateGame(cfg *GameConfig) error {
	if cfg.Scenario < 1 {
		return fmt.Errorf("scenario must be at least 1, got %d", cfg.Scenario)
	}
	if cfg.WatchTuning && cfg.TuningFile == "" {
		return fmt.Errorf("watch_tuning requires tuning_file")
	}
	if cfg.ProgressInterval < 1 {
		return fmt.Errorf("progress_interval must be at least 1, got %d", cfg.ProgressInterval)
	}
	return nil
}

func validateHistory(cfg *HistoryConfig) error {
	switch cfg.Backend {
	case "none", "memory", "sqlite":
	default:
		return fmt.Errorf("unknown backend %q (want none, memory, or sqlite)", cfg.Backend)
	}
	if cfg.Backend == "sqlite" && cfg.SQLite.Path == "" {
		return fmt.Errorf("sqlite backend requires sqlite.path")
	}
	if cfg.BufferSize < 1 {
		return fmt.Errorf("buffer_size must be at least 1, got %d", cfg.BufferSize)
	}
	if cfg.Retention.Enabled {
		if cfg.Backend == "none" {
			return fmt.Errorf("retention requires a storage backend")
		}
		if cfg.Retention.Days < 1 {
			return fmt.Errorf("retention.days must be at least 1, got %d", cfg.Retention.Days)
		}
		if cfg.Retention.Schedule == "" {
			return fmt.Errorf("retention.schedule must not be empty")
		}
	}
	return nil
}

func validateRuns(cfg *RunsConfig) error {
	if cfg.Enabled && cfg.Path == "" {
		return fmt.Errorf("enabled runs store requires path")
	}
	return nil
}

func validateSimulator(cfg *SimulatorConfig) error {
	if cfg.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", cfg.Capacity)
	}
	if cfg.Budget < 1 {
		return fmt.Errorf("budget must be at least 1, got %d", cfg.Budget)
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown logging level %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown logging format %q", cfg.Logging.Format)
	}
	if cfg.Metrics.Enabled {
		if cfg.Metrics.ListenAddress == "" {
			return fmt.Errorf("enabled metrics require listen_address")
		}
		if cfg.Metrics.Path == "" {
			return fmt.Errorf("enabled metrics require path")
		}
	}
	return nil
}

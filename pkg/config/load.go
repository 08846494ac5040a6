package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, fills in defaults,
// and validates the result. A missing file is not an error: it yields
// the pure defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// then applies DOORMAN_* environment variable overrides on top.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration after env overrides: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads a .env file from the working directory into the
// process environment. A missing file is ignored, so checked-in trees
// without local secrets still start.
func LoadDotEnv() error {
	if err := godotenv.Load(); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// applyEnvOverrides mutates cfg in place from DOORMAN_* environment
// variables. Unparseable values are skipped, leaving the file value.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOORMAN_SERVER_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("DOORMAN_SERVER_PLAYER_ID"); v != "" {
		cfg.Server.PlayerID = v
	}
	// PLAYER_ID is the conventional name in .env files.
	if cfg.Server.PlayerID == "" {
		cfg.Server.PlayerID = os.Getenv("PLAYER_ID")
	}
	if v := os.Getenv("DOORMAN_SERVER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.Timeout = d
		}
	}
	if v := os.Getenv("DOORMAN_SERVER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MaxRetries = n
		}
	}

	if v := os.Getenv("DOORMAN_GAME_SCENARIO"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Game.Scenario = n
		}
	}
	if v := os.Getenv("DOORMAN_GAME_TUNING_FILE"); v != "" {
		cfg.Game.TuningFile = v
	}
	if v := os.Getenv("DOORMAN_GAME_WATCH_TUNING"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Game.WatchTuning = b
		}
	}

	if v := os.Getenv("DOORMAN_HISTORY_BACKEND"); v != "" {
		cfg.History.Backend = v
	}
	if v := os.Getenv("DOORMAN_HISTORY_SQLITE_PATH"); v != "" {
		cfg.History.SQLite.Path = v
	}

	if v := os.Getenv("DOORMAN_RUNS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Runs.Enabled = b
		}
	}
	if v := os.Getenv("DOORMAN_RUNS_PATH"); v != "" {
		cfg.Runs.Path = v
	}

	if v := os.Getenv("DOORMAN_SIMULATOR_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Simulator.Seed = n
		}
	}

	if v := os.Getenv("DOORMAN_TELEMETRY_LOGGING_LEVEL"); v != "" {
		cfg.Telemetry.Logging.Level = v
	}
	if v := os.Getenv("DOORMAN_TELEMETRY_LOGGING_FORMAT"); v != "" {
		cfg.Telemetry.Logging.Format = v
	}
	if v := os.Getenv("DOORMAN_TELEMETRY_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Telemetry.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("DOORMAN_TELEMETRY_METRICS_LISTEN_ADDRESS"); v != "" {
		cfg.Telemetry.Metrics.ListenAddress = v
	}
}

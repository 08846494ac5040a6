package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultBaseURL         = "https://berghain.challenges.listenlabs.ai"
	DefaultTimeout         = 30 * time.Second
	DefaultMaxRetries      = 5
	DefaultRetryBackoff    = 500 * time.Millisecond
	DefaultRetryBackoffMax = 10 * time.Second

	// Game defaults
	DefaultScenario         = 1
	DefaultProgressInterval = 100

	// History defaults
	DefaultHistoryBackend    = "memory"
	DefaultHistorySQLitePath = "./doorman-history.db"
	DefaultHistoryBuffer     = 1024
	DefaultRetentionDays     = 30
	DefaultRetentionSchedule = "0 3 * * *"

	// Runs defaults
	DefaultRunsPath = "./doorman-runs.db"

	// Simulator defaults
	DefaultSimulatorCapacity = 1000
	DefaultSimulatorBudget   = 20000

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "text"
	DefaultMetricsNamespace     = "doorman"
	DefaultMetricsSubsystem     = "game"
	DefaultMetricsListenAddress = "127.0.0.1:9090"
	DefaultMetricsPath          = "/metrics"
)

// ApplyDefaults applies default values to a Config struct. It sets defaults
// for any fields that have zero values. This function is idempotent and safe
// to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = DefaultBaseURL
	}
	if cfg.Server.Timeout == 0 {
		cfg.Server.Timeout = DefaultTimeout
	}
	if cfg.Server.MaxRetries == 0 {
		cfg.Server.MaxRetries = DefaultMaxRetries
	}
	if cfg.Server.RetryBackoff == 0 {
		cfg.Server.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.Server.RetryBackoffMax == 0 {
		cfg.Server.RetryBackoffMax = DefaultRetryBackoffMax
	}

	// Game defaults
	if cfg.Game.Scenario == 0 {
		cfg.Game.Scenario = DefaultScenario
	}
	if cfg.Game.ProgressInterval == 0 {
		cfg.Game.ProgressInterval = DefaultProgressInterval
	}

	// History defaults
	if cfg.History.Backend == "" {
		cfg.History.Backend = DefaultHistoryBackend
	}
	if cfg.History.SQLite.Path == "" {
		cfg.History.SQLite.Path = DefaultHistorySQLitePath
	}
	if cfg.History.BufferSize == 0 {
		cfg.History.BufferSize = DefaultHistoryBuffer
	}
	if cfg.History.Retention.Days == 0 {
		cfg.History.Retention.Days = DefaultRetentionDays
	}
	if cfg.History.Retention.Schedule == "" {
		cfg.History.Retention.Schedule = DefaultRetentionSchedule
	}

	// Runs defaults
	if cfg.Runs.Path == "" {
		cfg.Runs.Path = DefaultRunsPath
	}

	// Simulator defaults
	if cfg.Simulator.Capacity == 0 {
		cfg.Simulator.Capacity = DefaultSimulatorCapacity
	}
	if cfg.Simulator.Budget == 0 {
		cfg.Simulator.Budget = DefaultSimulatorBudget
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
}

package config

import "time"

// Config is the root configuration structure for doorman. It contains all
// configuration sections for the challenge API client, game driving, run
// history, persistent run results, the simulator, and telemetry.
type Config struct {
	// Server contains challenge API client configuration including the
	// base URL, player credential, timeouts, and retry behavior.
	Server ServerConfig `yaml:"server"`

	// Game contains game-driving configuration including the default
	// scenario and decision-rule tuning file.
	Game GameConfig `yaml:"game"`

	// History contains configuration for per-decision history recording.
	History HistoryConfig `yaml:"history"`

	// Runs contains configuration for the persistent run results store.
	Runs RunsConfig `yaml:"runs"`

	// Simulator contains configuration for the local simulated venue.
	Simulator SimulatorConfig `yaml:"simulator"`

	// Telemetry contains observability configuration: logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the challenge API client.
type ServerConfig struct {
	// BaseURL is the challenge server's base URL.
	// Default: "https://berghain.challenges.listenlabs.ai"
	BaseURL string `yaml:"base_url"`

	// PlayerID is the player credential (a UUID). Usually supplied via the
	// PLAYER_ID environment variable or a .env file rather than here.
	PlayerID string `yaml:"player_id"`

	// Timeout is the per-request timeout for API calls.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retry attempts for transient API
	// failures (network errors, 5xx, 429).
	// Default: 5
	MaxRetries int `yaml:"max_retries"`

	// RetryBackoff is the initial backoff between retries; it doubles per
	// attempt up to RetryBackoffMax.
	// Default: 500ms
	RetryBackoff time.Duration `yaml:"retry_backoff"`

	// RetryBackoffMax caps the exponential retry backoff.
	// Default: 10s
	RetryBackoffMax time.Duration `yaml:"retry_backoff_max"`
}

// GameConfig contains configuration for driving games.
type GameConfig struct {
	// Scenario is the scenario number to play when none is given on the
	// command line.
	// Default: 1
	Scenario int `yaml:"scenario"`

	// TuningFile is the path to a YAML file with decision-rule tuning.
	// Empty means built-in defaults.
	TuningFile string `yaml:"tuning_file"`

	// WatchTuning enables hot reloading of the tuning file while a game
	// is running. Requires TuningFile.
	// Default: false
	WatchTuning bool `yaml:"watch_tuning"`

	// ProgressInterval is how many decisions pass between progress log
	// lines.
	// Default: 100
	ProgressInterval int `yaml:"progress_interval"`
}

// HistoryConfig contains configuration for per-decision history recording.
type HistoryConfig struct {
	// Backend selects the history storage backend. "none" disables
	// recording entirely.
	// Options: "none", "memory", "sqlite"
	// Default: "memory"
	Backend string `yaml:"backend"`

	// SQLite contains settings for the sqlite backend.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// BufferSize is the async recorder's channel capacity. When the
	// buffer is full, records are dropped rather than blocking the
	// decision loop.
	// Default: 1024
	BufferSize int `yaml:"buffer_size"`

	// Retention contains automatic pruning settings.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains settings for a sqlite-backed store.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "./doorman-history.db"
	Path string `yaml:"path"`
}

// RetentionConfig contains automatic history pruning settings.
type RetentionConfig struct {
	// Enabled controls whether old games are pruned on a schedule.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Days is the age in days beyond which finished games are pruned.
	// Default: 30
	Days int `yaml:"days"`

	// Schedule is the cron expression for the pruning job.
	// Default: "0 3 * * *"
	Schedule string `yaml:"schedule"`
}

// RunsConfig contains configuration for the persistent run results store.
type RunsConfig struct {
	// Enabled controls whether finished runs are saved to the results
	// database.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Path is the run store's database file path.
	// Default: "./doorman-runs.db"
	Path string `yaml:"path"`
}

// SimulatorConfig contains configuration for the local simulated venue.
type SimulatorConfig struct {
	// Seed seeds the simulated arrival stream. Zero means derive a seed
	// from the current time.
	// Default: 0
	Seed int64 `yaml:"seed"`

	// Capacity is the simulated venue capacity.
	// Default: 1000
	Capacity int `yaml:"capacity"`

	// Budget is the simulated rejection budget.
	// Default: 20000
	Budget int `yaml:"budget"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging settings.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics settings.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the log output format ("json", "text").
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log output.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactCredentials masks credential-bearing fields in log output in
	// addition to the masking log call sites already do.
	// Default: false
	RedactCredentials bool `yaml:"redact_credentials"`
}

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and served.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Namespace is the Prometheus metric namespace.
	// Default: "doorman"
	Namespace string `yaml:"namespace"`

	// Subsystem is the Prometheus metric subsystem.
	// Default: "game"
	Subsystem string `yaml:"subsystem"`

	// ListenAddress is the address for the metrics HTTP endpoint.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path the metrics are served on.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// RequestDurationBuckets are the histogram buckets, in seconds, for
	// API request latency.
	// Default: [0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10]
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}

package config

// ConfigBuilder provides a fluent API for building Config instances in
// tests. It starts from the defaults and allows selective overrides.
type ConfigBuilder struct {
	cfg Config
}

// NewTestConfig creates a ConfigBuilder preloaded with valid defaults.
func NewTestConfig() *ConfigBuilder {
	cfg := Config{}
	ApplyDefaults(&cfg)
	return &ConfigBuilder{cfg: cfg}
}

// Build returns the built Config instance.
func (b *ConfigBuilder) Build() *Config {
	return &b.cfg
}

// WithPlayerID sets the API player ID.
func (b *ConfigBuilder) WithPlayerID(id string) *ConfigBuilder {
	b.cfg.Server.PlayerID = id
	return b
}

// WithScenario sets the game scenario.
func (b *ConfigBuilder) WithScenario(n int) *ConfigBuilder {
	b.cfg.Game.Scenario = n
	return b
}

// WithHistoryBackend sets the history backend.
func (b *ConfigBuilder) WithHistoryBackend(backend string) *ConfigBuilder {
	b.cfg.History.Backend = backend
	return b
}

// WithRunsEnabled enables or disables the runs store.
func (b *ConfigBuilder) WithRunsEnabled(enabled bool) *ConfigBuilder {
	b.cfg.Runs.Enabled = enabled
	return b
}

// WithLoggingLevel sets the logging level.
func (b *ConfigBuilder) WithLoggingLevel(level string) *ConfigBuilder {
	b.cfg.Telemetry.Logging.Level = level
	return b
}

// WithMetricsEnabled enables or disables metrics.
func (b *ConfigBuilder) WithMetricsEnabled(enabled bool) *ConfigBuilder {
	b.cfg.Telemetry.Metrics.Enabled = enabled
	return b
}

// MinimalConfig returns a minimal valid configuration for tests that do
// not care about most values.
func MinimalConfig() *Config {
	return NewTestConfig().Build()
}

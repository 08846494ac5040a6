package config

import (
	"strings"
	"testing"
)

func TestValidate_Defaults(t *testing.T) {
	if err := Validate(MinimalConfig()); err != nil {
		t.Fatalf("defaults should validate, got: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:    "base url without scheme",
			modify:  func(c *Config) { c.Server.BaseURL = "example.test/api" },
			wantErr: "base_url",
		},
		{
			name:    "base url with bad scheme",
			modify:  func(c *Config) { c.Server.BaseURL = "ftp://example.test" },
			wantErr: "http or https",
		},
		{
			name:    "malformed player id",
			modify:  func(c *Config) { c.Server.PlayerID = "not-a-uuid" },
			wantErr: "player_id",
		},
		{
			name:    "zero timeout",
			modify:  func(c *Config) { c.Server.Timeout = 0 },
			wantErr: "timeout",
		},
		{
			name:    "negative retries",
			modify:  func(c *Config) { c.Server.MaxRetries = -1 },
			wantErr: "max_retries",
		},
		{
			name:    "backoff max below backoff",
			modify:  func(c *Config) { c.Server.RetryBackoffMax = c.Server.RetryBackoff / 2 },
			wantErr: "retry_backoff_max",
		},
		{
			name:    "zero scenario",
			modify:  func(c *Config) { c.Game.Scenario = 0 },
			wantErr: "scenario",
		},
		{
			name:    "watch without tuning file",
			modify:  func(c *Config) { c.Game.WatchTuning = true; c.Game.TuningFile = "" },
			wantErr: "watch_tuning",
		},
		{
			name:    "unknown history backend",
			modify:  func(c *Config) { c.History.Backend = "postgres" },
			wantErr: "backend",
		},
		{
			name:    "sqlite backend without path",
			modify:  func(c *Config) { c.History.Backend = "sqlite"; c.History.SQLite.Path = "" },
			wantErr: "sqlite.path",
		},
		{
			name:    "zero history buffer",
			modify:  func(c *Config) { c.History.BufferSize = 0 },
			wantErr: "buffer_size",
		},
		{
			name: "retention without backend",
			modify: func(c *Config) {
				c.History.Backend = "none"
				c.History.Retention.Enabled = true
			},
			wantErr: "retention",
		},
		{
			name: "retention with zero days",
			modify: func(c *Config) {
				c.History.Retention.Enabled = true
				c.History.Retention.Days = 0
			},
			wantErr: "retention.days",
		},
		{
			name:    "enabled runs without path",
			modify:  func(c *Config) { c.Runs.Enabled = true; c.Runs.Path = "" },
			wantErr: "path",
		},
		{
			name:    "zero simulator capacity",
			modify:  func(c *Config) { c.Simulator.Capacity = 0 },
			wantErr: "capacity",
		},
		{
			name:    "unknown logging level",
			modify:  func(c *Config) { c.Telemetry.Logging.Level = "verbose" },
			wantErr: "logging level",
		},
		{
			name:    "unknown logging format",
			modify:  func(c *Config) { c.Telemetry.Logging.Format = "xml" },
			wantErr: "logging format",
		},
		{
			name: "enabled metrics without listen address",
			modify: func(c *Config) {
				c.Telemetry.Metrics.Enabled = true
				c.Telemetry.Metrics.ListenAddress = ""
			},
			wantErr: "listen_address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := MinimalConfig()
			tt.modify(cfg)

			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error mentioning %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_PlayerIDOptional(t *testing.T) {
	cfg := MinimalConfig()
	cfg.Server.PlayerID = ""

	if err := Validate(cfg); err != nil {
		t.Errorf("empty player ID should be allowed, got: %v", err)
	}
}

func TestValidate_ValidPlayerID(t *testing.T) {
	cfg := NewTestConfig().WithPlayerID(testPlayerID).Build()

	if err := Validate(cfg); err != nil {
		t.Errorf("valid UUID player ID should pass, got: %v", err)
	}
}

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestInitialize(t *testing.T) {
	globalConfig = nil
	initOnce = *new(sync.Once)

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
game:
  scenario: 2
`

	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if err := Initialize(configPath); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	cfg := GetConfig()
	if cfg == nil {
		t.Fatal("expected non-nil config after initialization")
	}
	if cfg.Game.Scenario != 2 {
		t.Errorf("expected scenario 2, got %d", cfg.Game.Scenario)
	}
}

func TestInitialize_MultipleCallsIgnored(t *testing.T) {
	globalConfig = nil
	initOnce = *new(sync.Once)

	tmpDir := t.TempDir()
	configPath1 := filepath.Join(tmpDir, "config1.yaml")
	configPath2 := filepath.Join(tmpDir, "config2.yaml")

	if err := os.WriteFile(configPath1, []byte("game:\n  scenario: 1\n"), 0644); err != nil {
		t.Fatalf("failed to write config1 file: %v", err)
	}
	if err := os.WriteFile(configPath2, []byte("game:\n  scenario: 3\n"), 0644); err != nil {
		t.Fatalf("failed to write config2 file: %v", err)
	}

	if err := Initialize(configPath1); err != nil {
		t.Fatalf("failed to initialize config: %v", err)
	}

	Initialize(configPath2)

	if got := GetConfig().Game.Scenario; got != 1 {
		t.Errorf("second Initialize call should be ignored, got scenario %d", got)
	}
}

func TestGetConfig_BeforeInitialize(t *testing.T) {
	globalConfig = nil

	if cfg := GetConfig(); cfg != nil {
		t.Error("expected nil config before initialization")
	}
}

func TestSetConfig(t *testing.T) {
	globalConfig = nil

	testCfg := NewTestConfig().WithScenario(3).Build()
	SetConfig(testCfg)

	retrieved := GetConfig()
	if retrieved == nil {
		t.Fatal("expected non-nil config after SetConfig")
	}
	if retrieved.Game.Scenario != 3 {
		t.Errorf("expected scenario 3, got %d", retrieved.Game.Scenario)
	}
}

func TestMustGetConfig_PanicsUninitialized(t *testing.T) {
	globalConfig = nil
	initOnce = *new(sync.Once)

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected MustGetConfig to panic when not initialized")
		}
	}()

	MustGetConfig()
}

func TestMustGetConfig_AfterSet(t *testing.T) {
	globalConfig = nil

	SetConfig(MinimalConfig())

	if cfg := MustGetConfig(); cfg == nil {
		t.Error("expected non-nil config from MustGetConfig")
	}
}

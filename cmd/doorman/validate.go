package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"nocturne-labs/doorman/pkg/cli"
	"nocturne-labs/doorman/pkg/config"
	"nocturne-labs/doorman/pkg/simulator"
	"nocturne-labs/doorman/pkg/telemetry/logging"
)

var validateFlags struct {
	scenarioFile string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and tuning files",
	Long: `Validate configuration and tuning files without playing a game.

The validate command loads the config, the tuning file it references, and
optionally a scenario definition, then reports what a run would use. It
never contacts the challenge server, so it spends no rejection budget.

Examples:
  # Validate the default config
  doorman validate

  # Validate an alternate config
  doorman validate --config /etc/doorman/doorman.yaml

  # Also check a custom scenario definition
  doorman validate --scenario-file ./scenarios/rare-vips.yaml`,
	RunE: validateSetup,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.scenarioFile, "scenario-file", "", "also validate a YAML scenario definition")
}

func validateSetup(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load .env: %v", err))
	}
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := config.GetConfig()

	fmt.Printf("Validating %s\n\n", cfgFile)
	fmt.Println("✓ Configuration valid")
	fmt.Printf("  Server:    %s\n", cfg.Server.BaseURL)
	if cfg.Server.PlayerID != "" {
		fmt.Printf("  Player:    %s\n", logging.RedactPlayerID(cfg.Server.PlayerID))
	} else {
		fmt.Println("  Player:    not set (required for run)")
	}
	fmt.Printf("  Scenario:  %d\n", cfg.Game.Scenario)
	fmt.Printf("  History:   %s\n", cfg.History.Backend)
	if cfg.Runs.Enabled {
		fmt.Printf("  Runs:      %s\n", cfg.Runs.Path)
	} else {
		fmt.Println("  Runs:      disabled")
	}
	if cfg.Telemetry.Metrics.Enabled {
		fmt.Printf("  Metrics:   %s%s\n", cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
	} else {
		fmt.Println("  Metrics:   disabled")
	}

	if _, err := loadTuning(&cfg.Game); err != nil {
		return cli.NewConfigError("game.tuning_file", err.Error())
	}
	if cfg.Game.TuningFile != "" {
		fmt.Printf("✓ Tuning valid (%s)\n", cfg.Game.TuningFile)
	} else {
		fmt.Println("✓ Tuning: builtin defaults")
	}

	if validateFlags.scenarioFile != "" {
		scenario, err := simulator.LoadScenario(validateFlags.scenarioFile)
		if err != nil {
			return cli.NewCommandError("validate", err)
		}
		fmt.Printf("✓ Scenario %d (%s) valid: capacity %d, budget %d, %d constraint(s)\n",
			scenario.ID, scenario.Name, scenario.Capacity, scenario.Budget, len(scenario.Constraints))
	}

	return nil
}

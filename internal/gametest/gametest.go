// Package gametest provides scenario fixtures and config helpers shared
// by integration tests.
package gametest

import (
	"time"

	"nocturne-labs/doorman/pkg/config"
	"nocturne-labs/doorman/pkg/game"
	"nocturne-labs/doorman/pkg/simulator"
)

// TestPlayerID is a well-formed player credential for test servers.
const TestPlayerID = "00000000-0000-4000-8000-000000000000"

// SmallScenario returns a venue small enough for a full game to finish
// in well under a second. Both attributes are common, so a sane policy
// completes it with most of the budget left.
func SmallScenario(id int) simulator.Scenario {
	return simulator.Scenario{
		ID:       id,
		Name:     "small_venue",
		Capacity: 40,
		Budget:   400,
		Constraints: []game.Constraint{
			{Attribute: "young", MinCount: 12},
			{Attribute: "well_dressed", MinCount: 10},
		},
		Statistics: game.AttributeStatistics{
			RelativeFrequencies: map[game.AttributeID]float64{
				"young":        0.4,
				"well_dressed": 0.35,
			},
			Correlations: map[game.AttributeID]map[game.AttributeID]float64{
				"young":        {"young": 1, "well_dressed": 0.2},
				"well_dressed": {"young": 0.2, "well_dressed": 1},
			},
		},
	}
}

// ImpossibleScenario returns a venue that demands a full house of a
// rare attribute on a budget too small to find one. Games fail by
// budget exhaustion within a few dozen arrivals.
func ImpossibleScenario(id int) simulator.Scenario {
	return simulator.Scenario{
		ID:       id,
		Name:     "impossible_venue",
		Capacity: 20,
		Budget:   30,
		Constraints: []game.Constraint{
			{Attribute: "vip", MinCount: 20},
		},
		Statistics: game.AttributeStatistics{
			RelativeFrequencies: map[game.AttributeID]float64{
				"vip": 0.05,
			},
			Correlations: map[game.AttributeID]map[game.AttributeID]float64{
				"vip": {"vip": 1},
			},
		},
	}
}

// ServerConfig returns a client config pointed at a test server, with
// retries tightened so failures surface fast.
func ServerConfig(baseURL string) *config.ServerConfig {
	return &config.ServerConfig{
		BaseURL:         baseURL,
		PlayerID:        TestPlayerID,
		Timeout:         5 * time.Second,
		MaxRetries:      2,
		RetryBackoff:    10 * time.Millisecond,
		RetryBackoffMax: 50 * time.Millisecond,
	}
}

package simulator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"nocturne-labs/doorman/pkg/game"
)

// Scenario is a local game definition: what the venue looks like and
// what crowd the door sees. The statistics drive arrival sampling, and
// are also what a game started on this scenario publishes to the player.
type Scenario struct {
	// ID is the scenario number used on the wire.
	ID int `yaml:"id"`

	// Name labels the scenario in logs and listings.
	Name string `yaml:"name"`

	// Capacity is the venue size N.
	Capacity int `yaml:"capacity"`

	// Budget is the rejection budget R.
	Budget int `yaml:"budget"`

	// Constraints are the per-attribute minimum counts.
	Constraints []game.Constraint `yaml:"constraints"`

	// Statistics are the marginal frequencies and pairwise correlations
	// arrivals are sampled from.
	Statistics game.AttributeStatistics `yaml:"statistics"`
}

// Validate checks that the scenario is playable.
func (s *Scenario) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("scenario id must be > 0, got %d", s.ID)
	}
	if s.Capacity <= 0 {
		return fmt.Errorf("capacity must be > 0, got %d", s.Capacity)
	}
	if s.Budget <= 0 {
		return fmt.Errorf("budget must be > 0, got %d", s.Budget)
	}
	if len(s.Constraints) == 0 {
		return fmt.Errorf("scenario must have at least one constraint")
	}
	for _, c := range s.Constraints {
		if c.Attribute == "" {
			return fmt.Errorf("constraint attribute cannot be empty")
		}
		if c.MinCount <= 0 {
			return fmt.Errorf("constraint %s: min count must be > 0, got %d", c.Attribute, c.MinCount)
		}
		if c.MinCount > s.Capacity {
			return fmt.Errorf("constraint %s: min count %d exceeds capacity %d", c.Attribute, c.MinCount, s.Capacity)
		}
		if _, ok := s.Statistics.RelativeFrequencies[c.Attribute]; !ok {
			return fmt.Errorf("constraint %s: no relative frequency published", c.Attribute)
		}
	}
	if err := s.Statistics.Validate(); err != nil {
		return fmt.Errorf("invalid statistics: %w", err)
	}
	return nil
}

// BuiltinScenarios returns the three bundled scenarios, in ID order.
// They grow harder: balanced attributes first, then correlated crowds,
// then rare attributes with strong anti-correlation.
func BuiltinScenarios() []Scenario {
	return []Scenario{openingNight(), peakHours(), closingWeekend()}
}

// BuiltinScenario returns the bundled scenario with the given ID.
func BuiltinScenario(id int) (Scenario, error) {
	for _, s := range BuiltinScenarios() {
		if s.ID == id {
			return s, nil
		}
	}
	return Scenario{}, fmt.Errorf("no builtin scenario %d", id)
}

// LoadScenario reads a custom scenario from a YAML file.
func LoadScenario(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, fmt.Errorf("failed to parse scenario file: %w", err)
	}

	if err := s.Validate(); err != nil {
		return Scenario{}, fmt.Errorf("invalid scenario in %s: %w", path, err)
	}
	return s, nil
}

// openingNight is two balanced attributes with a mild positive
// correlation. Most people qualify for something, so the budget is
// generous relative to the difficulty.
func openingNight() Scenario {
	return Scenario{
		ID:       1,
		Name:     "opening_night",
		Capacity: 1000,
		Budget:   20000,
		Constraints: []game.Constraint{
			{Attribute: "young", MinCount: 600},
			{Attribute: "well_dressed", MinCount: 600},
		},
		Statistics: game.AttributeStatistics{
			RelativeFrequencies: map[game.AttributeID]float64{
				"young":        0.32,
				"well_dressed": 0.32,
			},
			Correlations: map[game.AttributeID]map[game.AttributeID]float64{
				"young":        {"young": 1, "well_dressed": 0.18},
				"well_dressed": {"young": 0.18, "well_dressed": 1},
			},
		},
	}
}

// peakHours is four attributes where the two largest quotas
// anti-correlate, so double-carriers are scarce and every slot counts.
func peakHours() Scenario {
	return Scenario{
		ID:       2,
		Name:     "peak_hours",
		Capacity: 1000,
		Budget:   20000,
		Constraints: []game.Constraint{
			{Attribute: "techno_lover", MinCount: 650},
			{Attribute: "well_connected", MinCount: 450},
			{Attribute: "creative", MinCount: 300},
			{Attribute: "berlin_local", MinCount: 750},
		},
		Statistics: game.AttributeStatistics{
			RelativeFrequencies: map[game.AttributeID]float64{
				"techno_lover":   0.63,
				"well_connected": 0.47,
				"creative":       0.06,
				"berlin_local":   0.40,
			},
			Correlations: map[game.AttributeID]map[game.AttributeID]float64{
				"techno_lover": {
					"techno_lover": 1, "well_connected": -0.47, "creative": 0.09, "berlin_local": -0.65,
				},
				"well_connected": {
					"techno_lover": -0.47, "well_connected": 1, "creative": 0.14, "berlin_local": 0.57,
				},
				"creative": {
					"techno_lover": 0.09, "well_connected": 0.14, "creative": 1, "berlin_local": 0.12,
				},
				"berlin_local": {
					"techno_lover": -0.65, "well_connected": 0.57, "creative": 0.12, "berlin_local": 1,
				},
			},
		},
	}
}

// closingWeekend is six attributes, two of them rare, with the two
// biggest quotas anti-correlated. Rare carriers must be hoarded from
// the first arrival.
func closingWeekend() Scenario {
	attrs := []game.AttributeID{
		"underground_veteran", "international", "fashion_forward",
		"queer_friendly", "vinyl_collector", "german_speaker",
	}
	pairs := map[[2]string]float64{
		{"underground_veteran", "fashion_forward"}: -0.32,
		{"underground_veteran", "vinyl_collector"}: 0.42,
		{"fashion_forward", "vinyl_collector"}:     -0.11,
		{"queer_friendly", "vinyl_collector"}:      0.10,
		{"international", "german_speaker"}:        -0.62,
	}

	correlations := make(map[game.AttributeID]map[game.AttributeID]float64, len(attrs))
	for _, a := range attrs {
		correlations[a] = make(map[game.AttributeID]float64, len(attrs))
		for _, b := range attrs {
			switch {
			case a == b:
				correlations[a][b] = 1
			default:
				if rho, ok := pairs[[2]string{string(a), string(b)}]; ok {
					correlations[a][b] = rho
				} else if rho, ok := pairs[[2]string{string(b), string(a)}]; ok {
					correlations[a][b] = rho
				}
			}
		}
	}

	return Scenario{
		ID:       3,
		Name:     "closing_weekend",
		Capacity: 1000,
		Budget:   20000,
		Constraints: []game.Constraint{
			{Attribute: "underground_veteran", MinCount: 500},
			{Attribute: "international", MinCount: 650},
			{Attribute: "fashion_forward", MinCount: 550},
			{Attribute: "queer_friendly", MinCount: 250},
			{Attribute: "vinyl_collector", MinCount: 200},
			{Attribute: "german_speaker", MinCount: 800},
		},
		Statistics: game.AttributeStatistics{
			RelativeFrequencies: map[game.AttributeID]float64{
				"underground_veteran": 0.68,
				"international":       0.57,
				"fashion_forward":     0.69,
				"queer_friendly":      0.046,
				"vinyl_collector":     0.045,
				"german_speaker":      0.46,
			},
			Correlations: correlations,
		},
	}
}

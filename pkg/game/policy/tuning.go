package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default tuning values. These are deliberately conservative: weights react
// within a handful of arrivals while the threshold never outruns the budget
// pace.
const (
	DefaultRaiseStep     = 0.10
	DefaultWeightFloor   = 0.01
	DefaultDecayFactor   = 0.90
	DefaultThresholdStep = 0.05
	DefaultThresholdMax  = 4.0
	DefaultRateSmoothing = 0.05
)

// Tuning holds the free parameters of the decision rule. Zero values are
// replaced by defaults via Normalize, so a partially specified tuning file
// works.
type Tuning struct {
	// RaiseStep is the step η applied to a constraint weight that is
	// behind pace: λ ← λ·(1+η) + η. It doubles as the additive seed
	// that lifts a zero weight off the ground.
	// Default: 0.10
	RaiseStep float64 `yaml:"raise_step"`

	// WeightFloor is the cutoff below which a decaying weight snaps to
	// zero, so a satisfied constraint stops influencing scores.
	// Default: 0.01
	WeightFloor float64 `yaml:"weight_floor"`

	// DecayFactor multiplies the weight of a satisfied constraint each
	// step, driving it back toward 0. Must be in (0, 1).
	// Default: 0.90
	DecayFactor float64 `yaml:"decay_factor"`

	// ThresholdStep is the additive step for the admission threshold θ.
	// Default: 0.05
	ThresholdStep float64 `yaml:"threshold_step"`

	// ThresholdMax caps θ.
	// Default: 4.0
	ThresholdMax float64 `yaml:"threshold_max"`

	// RateSmoothing is the EWMA factor α for the realized acceptance-rate
	// estimate. Must be in (0, 1).
	// Default: 0.05
	RateSmoothing float64 `yaml:"rate_smoothing"`
}

// DefaultTuning returns the default decision-rule parameters.
func DefaultTuning() Tuning {
	return Tuning{
		RaiseStep:     DefaultRaiseStep,
		WeightFloor:   DefaultWeightFloor,
		DecayFactor:   DefaultDecayFactor,
		ThresholdStep: DefaultThresholdStep,
		ThresholdMax:  DefaultThresholdMax,
		RateSmoothing: DefaultRateSmoothing,
	}
}

// Normalize fills zero-valued fields with defaults.
func (t *Tuning) Normalize() {
	if t.RaiseStep == 0 {
		t.RaiseStep = DefaultRaiseStep
	}
	if t.WeightFloor == 0 {
		t.WeightFloor = DefaultWeightFloor
	}
	if t.DecayFactor == 0 {
		t.DecayFactor = DefaultDecayFactor
	}
	if t.ThresholdStep == 0 {
		t.ThresholdStep = DefaultThresholdStep
	}
	if t.ThresholdMax == 0 {
		t.ThresholdMax = DefaultThresholdMax
	}
	if t.RateSmoothing == 0 {
		t.RateSmoothing = DefaultRateSmoothing
	}
}

// Validate checks that every parameter is inside its working range.
func (t Tuning) Validate() error {
	if t.RaiseStep <= 0 || t.RaiseStep > 10 {
		return fmt.Errorf("raise_step must be in (0, 10], got %v", t.RaiseStep)
	}
	if t.WeightFloor <= 0 || t.WeightFloor > 1 {
		return fmt.Errorf("weight_floor must be in (0, 1], got %v", t.WeightFloor)
	}
	if t.DecayFactor <= 0 || t.DecayFactor >= 1 {
		return fmt.Errorf("decay_factor must be in (0, 1), got %v", t.DecayFactor)
	}
	if t.ThresholdStep <= 0 {
		return fmt.Errorf("threshold_step must be positive, got %v", t.ThresholdStep)
	}
	if t.ThresholdMax <= 0 {
		return fmt.Errorf("threshold_max must be positive, got %v", t.ThresholdMax)
	}
	if t.RateSmoothing <= 0 || t.RateSmoothing >= 1 {
		return fmt.Errorf("rate_smoothing must be in (0, 1), got %v", t.RateSmoothing)
	}
	return nil
}

// LoadTuning reads a tuning YAML file, normalizes it, and validates it.
func LoadTuning(path string) (Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("failed to read tuning file: %w", err)
	}

	var t Tuning
	if err := yaml.Unmarshal(data, &t); err != nil {
		return Tuning{}, fmt.Errorf("failed to parse tuning file %s: %w", path, err)
	}

	t.Normalize()
	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("invalid tuning in %s: %w", path, err)
	}
	return t, nil
}

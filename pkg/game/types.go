package game

import (
	"fmt"
	"sort"
	"time"
)

// AttributeID identifies a single binary trait, e.g. "berlin_local" or
// "wearing_black". IDs are opaque; the set in play is fixed per game by the
// server's statistics payload.
type AttributeID string

// Person is one arrival: an ordinal index plus the person's attribute values.
// A Person is immutable once observed.
type Person struct {
	// Index is the strictly increasing ordinal assigned by the server,
	// starting at 0.
	Index int `json:"personIndex"`

	// Attributes maps every attribute in play to this person's value.
	Attributes map[AttributeID]bool `json:"attributes"`
}

// Has reports whether the person carries the given attribute.
func (p Person) Has(id AttributeID) bool {
	return p.Attributes[id]
}

// Constraint requires at least MinCount admitted people to carry Attribute.
type Constraint struct {
	Attribute AttributeID `json:"attribute" yaml:"attribute"`
	MinCount  int         `json:"minCount" yaml:"minCount"`
}

// AttributeStatistics is the distributional information the server publishes
// at game start: marginal frequencies per attribute and pairwise correlation
// coefficients between attributes. Only pairwise information is available;
// the full joint distribution is never supplied.
type AttributeStatistics struct {
	// RelativeFrequencies maps each attribute to its marginal probability,
	// in [0, 1].
	RelativeFrequencies map[AttributeID]float64 `json:"relativeFrequencies" yaml:"relativeFrequencies"`

	// Correlations maps attribute pairs to their correlation coefficient,
	// in [-1, 1]. The mapping is nested and symmetric; the diagonal is 1.
	Correlations map[AttributeID]map[AttributeID]float64 `json:"correlations" yaml:"correlations"`
}

// Attributes returns the attribute IDs with a known frequency, sorted for
// deterministic iteration.
func (s AttributeStatistics) Attributes() []AttributeID {
	ids := make([]AttributeID, 0, len(s.RelativeFrequencies))
	for id := range s.RelativeFrequencies {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Frequency returns the marginal probability of the attribute and whether it
// is known.
func (s AttributeStatistics) Frequency(id AttributeID) (float64, bool) {
	p, ok := s.RelativeFrequencies[id]
	return p, ok
}

// Correlation returns the pairwise correlation between two attributes. The
// diagonal is 1; an absent pair is treated as uncorrelated.
func (s AttributeStatistics) Correlation(a, b AttributeID) float64 {
	if a == b {
		return 1
	}
	if row, ok := s.Correlations[a]; ok {
		if rho, ok := row[b]; ok {
			return rho
		}
	}
	if row, ok := s.Correlations[b]; ok {
		if rho, ok := row[a]; ok {
			return rho
		}
	}
	return 0
}

// Validate checks the statistics payload for structural problems: frequencies
// outside [0, 1], correlations outside [-1, 1], or correlation entries that
// reference unknown attributes. A payload that fails validation must not be
// used to build a correlated model.
func (s AttributeStatistics) Validate() error {
	if len(s.RelativeFrequencies) == 0 {
		return fmt.Errorf("no relative frequencies supplied")
	}
	for id, p := range s.RelativeFrequencies {
		if p < 0 || p > 1 {
			return fmt.Errorf("relative frequency for %q out of range: %v", id, p)
		}
	}
	for a, row := range s.Correlations {
		if _, ok := s.RelativeFrequencies[a]; !ok {
			return fmt.Errorf("correlation row for unknown attribute %q", a)
		}
		for b, rho := range row {
			if _, ok := s.RelativeFrequencies[b]; !ok {
				return fmt.Errorf("correlation entry %q/%q references unknown attribute", a, b)
			}
			if rho < -1 || rho > 1 {
				return fmt.Errorf("correlation %q/%q out of range: %v", a, b, rho)
			}
		}
	}
	return nil
}

// Status is the lifecycle state of one game.
type Status string

const (
	// StatusInit is the state between construction and the first decision.
	StatusInit Status = "init"

	// StatusRunning means the game is accepting decisions.
	StatusRunning Status = "running"

	// StatusCompleted means the venue reached capacity. Terminal.
	StatusCompleted Status = "completed"

	// StatusFailed means the rejection budget was exhausted. Terminal.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseStatus converts a wire status string into a Status.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusInit, StatusRunning, StatusCompleted, StatusFailed:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("unknown game status %q", raw)
	}
}

// Decision is the outcome of one accept/reject call, with the scoring
// context that produced it. Decisions are what the history recorder stores.
type Decision struct {
	PersonIndex int     `json:"person_index"`
	Accepted    bool    `json:"accepted"`
	Forced      bool    `json:"forced"`
	Score       float64 `json:"score"`
	Threshold   float64 `json:"threshold"`

	// Weights is the constraint weight snapshot the score was computed
	// under, keyed by attribute.
	Weights map[AttributeID]float64 `json:"weights,omitempty"`

	DecidedAt time.Time `json:"decided_at"`
}

// BudgetStatus is a point-in-time view of the rejection budget.
type BudgetStatus struct {
	// Limit is the total rejection budget R.
	Limit int `json:"limit"`

	// Used is the number of rejections spent so far.
	Used int `json:"used"`

	// Remaining is Limit − Used.
	Remaining int `json:"remaining"`

	// Percentage is Used/Limit expressed as 0–100.
	Percentage float64 `json:"percentage"`

	// Exhausted is true once Used has reached Limit.
	Exhausted bool `json:"exhausted"`
}

// State is an immutable snapshot of one game's progress. The constraints
// package owns the live counters; snapshots are what gets logged, recorded,
// and reported.
type State struct {
	GameID   string `json:"game_id"`
	Scenario int    `json:"scenario"`

	// Capacity is the venue size N.
	Capacity int `json:"capacity"`

	// Budget is the rejection budget R.
	Budget int `json:"budget"`

	Admitted int `json:"admitted"`
	Rejected int `json:"rejected"`

	// AdmittedWith counts admitted people carrying each constrained
	// attribute.
	AdmittedWith map[AttributeID]int `json:"admitted_with"`

	Status Status `json:"status"`
}

// RemainingCapacity returns the unfilled venue slots.
func (s State) RemainingCapacity() int {
	return s.Capacity - s.Admitted
}

// RemainingBudget returns the rejections still allowed.
func (s State) RemainingBudget() int {
	return s.Budget - s.Rejected
}

// BudgetStatus derives the budget view from the snapshot.
func (s State) BudgetStatus() BudgetStatus {
	used := s.Rejected
	pct := 0.0
	if s.Budget > 0 {
		pct = float64(used) / float64(s.Budget) * 100
	}
	return BudgetStatus{
		Limit:      s.Budget,
		Used:       used,
		Remaining:  s.Budget - used,
		Percentage: pct,
		Exhausted:  used >= s.Budget,
	}
}

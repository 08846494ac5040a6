package constraints

import (
	"fmt"
	"sort"

	"nocturne-labs/doorman/pkg/game"
)

// Tracker is the authoritative local bookkeeping of one game's admission
// progress. RecordDecision is the only mutator.
type Tracker struct {
	capacity int
	budget   int

	constraints []game.Constraint
	minCount    map[game.AttributeID]int

	admitted     int
	rejected     int
	admittedWith map[game.AttributeID]int
}

// NewTracker creates a tracker for a game with the given venue capacity,
// rejection budget, and constraints. Duplicate constraint attributes and
// non-positive minimum counts are rejected; a constraint set that is already
// unsatisfiable (minCount beyond capacity) is allowed and reported through
// Feasible.
func NewTracker(capacity, budget int, cs []game.Constraint) (*Tracker, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	if budget <= 0 {
		return nil, fmt.Errorf("rejection budget must be positive, got %d", budget)
	}

	t := &Tracker{
		capacity:     capacity,
		budget:       budget,
		constraints:  make([]game.Constraint, len(cs)),
		minCount:     make(map[game.AttributeID]int, len(cs)),
		admittedWith: make(map[game.AttributeID]int, len(cs)),
	}
	copy(t.constraints, cs)

	for _, c := range cs {
		if c.Attribute == "" {
			return nil, fmt.Errorf("constraint with empty attribute")
		}
		if c.MinCount <= 0 {
			return nil, fmt.Errorf("constraint %q has non-positive minCount %d", c.Attribute, c.MinCount)
		}
		if _, dup := t.minCount[c.Attribute]; dup {
			return nil, fmt.Errorf("duplicate constraint for attribute %q", c.Attribute)
		}
		t.minCount[c.Attribute] = c.MinCount
		t.admittedWith[c.Attribute] = 0
	}
	return t, nil
}

// Capacity returns the venue capacity N.
func (t *Tracker) Capacity() int { return t.capacity }

// Budget returns the rejection budget R.
func (t *Tracker) Budget() int { return t.budget }

// Admitted returns the number of people admitted so far.
func (t *Tracker) Admitted() int { return t.admitted }

// Rejected returns the number of people rejected so far.
func (t *Tracker) Rejected() int { return t.rejected }

// Constraints returns the constraints in their original order.
func (t *Tracker) Constraints() []game.Constraint {
	out := make([]game.Constraint, len(t.constraints))
	copy(out, t.constraints)
	return out
}

// RemainingCapacity returns the unfilled venue slots.
func (t *Tracker) RemainingCapacity() int {
	return t.capacity - t.admitted
}

// RemainingBudget returns the rejections still allowed.
func (t *Tracker) RemainingBudget() int {
	return t.budget - t.rejected
}

// Deficit returns the remaining shortfall for one constrained attribute,
// never negative. Unconstrained attributes have no deficit.
func (t *Tracker) Deficit(id game.AttributeID) int {
	need, ok := t.minCount[id]
	if !ok {
		return 0
	}
	d := need - t.admittedWith[id]
	if d < 0 {
		return 0
	}
	return d
}

// Deficits returns the current deficit of every constrained attribute,
// including satisfied ones at 0.
func (t *Tracker) Deficits() map[game.AttributeID]int {
	out := make(map[game.AttributeID]int, len(t.minCount))
	for id := range t.minCount {
		out[id] = t.Deficit(id)
	}
	return out
}

// DeficientAttributes returns the constrained attributes still in deficit,
// sorted for deterministic iteration.
func (t *Tracker) DeficientAttributes() []game.AttributeID {
	out := make([]game.AttributeID, 0, len(t.minCount))
	for id := range t.minCount {
		if t.Deficit(id) > 0 {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// TotalDeficit returns the sum of all remaining deficits, counting
// constrained attributes as if they never co-occurred.
func (t *Tracker) TotalDeficit() int {
	sum := 0
	for id := range t.minCount {
		sum += t.Deficit(id)
	}
	return sum
}

// MaxDeficit returns the largest single-constraint deficit.
func (t *Tracker) MaxDeficit() int {
	max := 0
	for id := range t.minCount {
		if d := t.Deficit(id); d > max {
			max = d
		}
	}
	return max
}

// Satisfied reports whether every constraint has reached its minimum count.
func (t *Tracker) Satisfied() bool {
	return t.TotalDeficit() == 0
}

// Helps reports whether the person carries at least one attribute that is
// still in deficit.
func (t *Tracker) Helps(p game.Person) bool {
	for id := range t.minCount {
		if t.Deficit(id) > 0 && p.Has(id) {
			return true
		}
	}
	return false
}

// ZeroSlack reports whether every remaining slot is spoken for: remaining
// capacity no longer exceeds the sum of remaining deficits.
func (t *Tracker) ZeroSlack() bool {
	total := t.TotalDeficit()
	return total > 0 && t.RemainingCapacity() <= total
}

// IsForced reports the zero-slack regime for this person: slack is gone and
// the person reduces a deficit, so admission is mandatory. With zero slack
// and no deficient attribute the person must be rejected instead.
func (t *Tracker) IsForced(p game.Person) bool {
	return t.ZeroSlack() && t.Helps(p)
}

// Feasible reports whether the constraints can still be satisfied: false
// once remaining capacity has dropped below the largest single-constraint
// deficit. The server, not this tracker, decides the final game status.
func (t *Tracker) Feasible() bool {
	return t.RemainingCapacity() >= t.MaxDeficit()
}

// RecordDecision updates the counters for one decision. It is the only
// mutator. Counters are monotone; an admitted person increments the count of
// every constrained attribute they carry.
func (t *Tracker) RecordDecision(p game.Person, accepted bool) {
	if accepted {
		t.admitted++
		for id := range t.minCount {
			if p.Has(id) {
				t.admittedWith[id]++
			}
		}
		return
	}
	t.rejected++
}

// Reconcile compares the server's authoritative counts against local
// bookkeeping. A mismatch returns a game.ProtocolError: local state is out
// of sync and the game must be aborted.
func (t *Tracker) Reconcile(admitted, rejected int) error {
	if admitted == t.admitted && rejected == t.rejected {
		return nil
	}
	return game.NewProtocolErrorf("",
		"server counts diverged: server admitted=%d rejected=%d, local admitted=%d rejected=%d",
		admitted, rejected, t.admitted, t.rejected)
}

// Status derives the game status from the counters: completed exactly at
// capacity, failed exactly at budget exhaustion, running otherwise.
func (t *Tracker) Status() game.Status {
	switch {
	case t.admitted >= t.capacity:
		return game.StatusCompleted
	case t.rejected >= t.budget:
		return game.StatusFailed
	default:
		return game.StatusRunning
	}
}

// Snapshot returns an immutable copy of the current state. GameID and
// Scenario are filled in by the policy, which owns that context.
func (t *Tracker) Snapshot() game.State {
	with := make(map[game.AttributeID]int, len(t.admittedWith))
	for id, n := range t.admittedWith {
		with[id] = n
	}
	return game.State{
		Capacity:     t.capacity,
		Budget:       t.budget,
		Admitted:     t.admitted,
		Rejected:     t.rejected,
		AdmittedWith: with,
		Status:       t.Status(),
	}
}

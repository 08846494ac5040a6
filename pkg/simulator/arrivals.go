package simulator

import (
	"fmt"
	"math/rand"

	"nocturne-labs/doorman/pkg/game"
	"nocturne-labs/doorman/pkg/game/model"
)

// Arrivals streams synthetic persons for a scenario. Attributes are
// drawn from the scenario's published statistics, so a policy playing
// the simulator sees the same distribution it was told about. The
// stream is deterministic per seed, and person indices are monotone
// from zero.
//
// Arrivals is not safe for concurrent use. Each simulated game owns
// its own stream.
type Arrivals struct {
	model *model.Model
	rng   *rand.Rand
	next  int
}

// NewArrivals builds an arrival stream for the scenario. The same seed
// always produces the same sequence of persons.
func NewArrivals(scenario Scenario, seed int64) (*Arrivals, error) {
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	m, err := model.New(scenario.Statistics)
	if err != nil {
		return nil, fmt.Errorf("failed to build arrival model: %w", err)
	}

	return &Arrivals{
		model: m,
		rng:   rand.New(rand.NewSource(seed)),
	}, nil
}

// Next draws the next arrival.
func (a *Arrivals) Next() game.Person {
	person := game.Person{
		Index:      a.next,
		Attributes: a.model.Sample(a.rng),
	}
	a.next++
	return person
}

// Drawn reports how many persons have been drawn so far.
func (a *Arrivals) Drawn() int {
	return a.next
}

// Degraded reports whether the arrival model fell back to independent
// sampling because the correlation matrix was unusable.
func (a *Arrivals) Degraded() bool {
	return a.model.Degraded()
}

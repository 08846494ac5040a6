package policy

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nocturne-labs/doorman/pkg/game"
	"nocturne-labs/doorman/pkg/game/constraints"
	"nocturne-labs/doorman/pkg/game/model"
)

// Config carries everything needed to initialize a policy for one game.
type Config struct {
	// GameID is the server-assigned game identifier, used in logs and
	// protocol errors.
	GameID string

	// Scenario is the scenario number this game was started with.
	Scenario int

	// Capacity is the venue size N.
	Capacity int

	// Budget is the rejection budget R.
	Budget int

	// Constraints are the per-attribute minimum counts, in server order.
	Constraints []game.Constraint

	// Statistics is the published frequency/correlation payload.
	Statistics game.AttributeStatistics

	// Tuning holds the decision-rule step sizes. Zero values take
	// defaults.
	Tuning Tuning

	// Logger is optional; slog.Default() is used when nil.
	Logger *slog.Logger
}

// Policy decides admissions for exactly one game. It owns the attribute
// model, the constraint tracker, and the adaptive weights; nothing is shared
// between games. Not safe for concurrent use: decisions within a game are
// strictly sequential.
type Policy struct {
	gameID   string
	scenario int
	tuning   Tuning

	model   *model.Model
	tracker *constraints.Tracker
	logger  *slog.Logger

	// weights are the per-constraint shadow prices λ_k.
	weights map[game.AttributeID]float64

	// threshold is the admission bar θ.
	threshold float64

	// acceptRate is the EWMA estimate of the realized acceptance rate.
	acceptRate float64

	status         game.Status
	nextIndex      int
	degraded       bool
	finalized      bool
	feasibleWarned bool
}

// New initializes a policy from the game's constraints and statistics. The
// payload must carry a frequency for every constrained attribute; otherwise
// initialization fails fast. An infeasible correlation payload degrades to
// the frequency-only independence model and the game proceeds.
func New(cfg Config) (*Policy, error) {
	tuning := cfg.Tuning
	tuning.Normalize()
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}

	tracker, err := constraints.NewTracker(cfg.Capacity, cfg.Budget, cfg.Constraints)
	if err != nil {
		return nil, fmt.Errorf("invalid constraints: %w", err)
	}

	if len(cfg.Statistics.RelativeFrequencies) == 0 {
		return nil, fmt.Errorf("statistics payload has no relative frequencies")
	}
	for _, c := range cfg.Constraints {
		if _, ok := cfg.Statistics.Frequency(c.Attribute); !ok {
			return nil, fmt.Errorf("constrained attribute %q has no published frequency", c.Attribute)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "game.policy", "game_id", cfg.GameID)

	p := &Policy{
		gameID:     cfg.GameID,
		scenario:   cfg.Scenario,
		tuning:     tuning,
		tracker:    tracker,
		logger:     logger,
		weights:    make(map[game.AttributeID]float64, len(cfg.Constraints)),
		acceptRate: 1,
		status:     game.StatusInit,
	}
	for _, c := range cfg.Constraints {
		p.weights[c.Attribute] = 0
	}

	m, err := model.New(cfg.Statistics)
	if err != nil {
		logger.Warn("correlated attribute model unavailable, falling back to independence",
			"error", err,
		)
		m = model.NewIndependent(cfg.Statistics.RelativeFrequencies)
		p.degraded = true
	} else if m.Degraded() {
		logger.Warn("correlation matrix projected to nearest valid",
			"min_eigenvalue", m.MinEigenvalue(),
		)
		p.degraded = true
	}
	p.model = m

	logger.Info("policy initialized",
		"capacity", cfg.Capacity,
		"budget", cfg.Budget,
		"constraints", len(cfg.Constraints),
		"attributes", len(cfg.Statistics.RelativeFrequencies),
		"model_degraded", p.degraded,
	)
	return p, nil
}

// Decide returns the accept/reject decision for the next person. Persons
// must arrive in index order starting at 0; a decision requested out of
// sequence or after a terminal status is a game.ProtocolError.
func (p *Policy) Decide(person game.Person) (game.Decision, error) {
	if p.status.Terminal() {
		return game.Decision{}, game.NewProtocolErrorf(p.gameID,
			"decision requested after terminal status %q", p.status)
	}
	if person.Index != p.nextIndex {
		return game.Decision{}, game.NewProtocolErrorf(p.gameID,
			"person index out of sequence: got %d, want %d", person.Index, p.nextIndex)
	}
	p.nextIndex++
	p.status = game.StatusRunning

	p.updateWeights()

	accepted, forced, score := p.evaluate(person)
	thresholdUsed := p.threshold

	p.tracker.RecordDecision(person, accepted)
	p.adaptThreshold(accepted)

	if !p.feasibleWarned && !p.tracker.Feasible() {
		p.feasibleWarned = true
		p.logger.Warn("constraints no longer satisfiable",
			"remaining_capacity", p.tracker.RemainingCapacity(),
			"max_deficit", p.tracker.MaxDeficit(),
		)
	}

	if st := p.tracker.Status(); st.Terminal() {
		p.status = st
		p.logger.Info("game reached terminal status",
			"status", string(st),
			"admitted", p.tracker.Admitted(),
			"rejected", p.tracker.Rejected(),
		)
	}

	return game.Decision{
		PersonIndex: person.Index,
		Accepted:    accepted,
		Forced:      forced,
		Score:       score,
		Threshold:   thresholdUsed,
		Weights:     p.Weights(),
		DecidedAt:   time.Now(),
	}, nil
}

// updateWeights advances the shadow prices one step: constraints behind pace
// are raised, satisfied constraints decay toward 0, on-pace open constraints
// hold.
func (p *Policy) updateWeights() {
	remaining := p.tracker.RemainingCapacity()
	if remaining < 1 {
		remaining = 1
	}
	for id, w := range p.weights {
		deficit := p.tracker.Deficit(id)
		if deficit == 0 {
			w *= p.tuning.DecayFactor
			if w < p.tuning.WeightFloor {
				w = 0
			}
			p.weights[id] = w
			continue
		}
		// The additive seed keeps a behind-pace weight ahead of a
		// threshold raised at the same cadence, so carriers of a
		// deficient attribute always clear the bar.
		pace := float64(deficit) / float64(remaining)
		if pace > p.model.Marginal(id) {
			p.weights[id] = w*(1+p.tuning.RaiseStep) + p.tuning.RaiseStep
		}
	}
}

// evaluate applies the override ladder, then the scored rule. Ties at the
// threshold admit.
func (p *Policy) evaluate(person game.Person) (accepted, forced bool, score float64) {
	score = p.score(person)

	// Zero slack: every remaining slot must reduce a deficit.
	if p.tracker.ZeroSlack() {
		return p.tracker.Helps(person), true, score
	}

	// Every constraint satisfied: rejection buys nothing.
	if p.tracker.Satisfied() {
		return true, false, score
	}

	return score >= p.threshold, false, score
}

func (p *Policy) score(person game.Person) float64 {
	s := 0.0
	for id, w := range p.weights {
		if person.Has(id) {
			s += w
		}
	}
	return s
}

// adaptThreshold moves θ after a decision: down as soon as rejections outrun
// what the remaining budget affords, up while a constraint is behind pace and
// budget headroom remains, decaying toward 0 otherwise.
func (p *Policy) adaptThreshold(accepted bool) {
	obs := 0.0
	if accepted {
		obs = 1
	}
	p.acceptRate = (1-p.tuning.RateSmoothing)*p.acceptRate + p.tuning.RateSmoothing*obs

	remCap := p.tracker.RemainingCapacity()
	remBudget := p.tracker.RemainingBudget()
	horizon := remCap + remBudget
	if horizon < 1 {
		horizon = 1
	}
	affordable := float64(remBudget) / float64(horizon)
	realized := 1 - p.acceptRate

	switch {
	case realized > affordable:
		p.threshold -= p.tuning.ThresholdStep
		if p.threshold < 0 {
			p.threshold = 0
		}
	case p.behindPace():
		p.threshold += p.tuning.ThresholdStep
		if p.threshold > p.tuning.ThresholdMax {
			p.threshold = p.tuning.ThresholdMax
		}
	default:
		p.threshold *= p.tuning.DecayFactor
		if p.threshold < p.tuning.ThresholdStep/2 {
			p.threshold = 0
		}
	}
}

func (p *Policy) behindPace() bool {
	remaining := p.tracker.RemainingCapacity()
	if remaining < 1 {
		remaining = 1
	}
	for id := range p.weights {
		d := p.tracker.Deficit(id)
		if d == 0 {
			continue
		}
		if float64(d)/float64(remaining) > p.model.Marginal(id) {
			return true
		}
	}
	return false
}

// Reconcile checks the server's authoritative counts against local
// bookkeeping after a round trip. A divergence is a game.ProtocolError and
// the game must be abandoned.
func (p *Policy) Reconcile(admitted, rejected int) error {
	err := p.tracker.Reconcile(admitted, rejected)
	if err != nil {
		var pe *game.ProtocolError
		if errors.As(err, &pe) {
			pe.GameID = p.gameID
		}
	}
	return err
}

// Finalize records the server's terminal status for this game. It is
// idempotent for the same status; a conflict between a locally reached
// terminal status and the server's is a game.ProtocolError.
func (p *Policy) Finalize(status game.Status) error {
	if !status.Terminal() {
		return game.NewProtocolErrorf(p.gameID, "finalize with non-terminal status %q", status)
	}
	if p.finalized {
		if status == p.status {
			return nil
		}
		return game.NewProtocolErrorf(p.gameID,
			"finalize conflict: already %q, server says %q", p.status, status)
	}
	if p.status.Terminal() && p.status != status {
		return game.NewProtocolErrorf(p.gameID,
			"terminal status mismatch: local %q, server %q", p.status, status)
	}

	p.status = status
	p.finalized = true
	p.logger.Info("game finalized",
		"status", string(status),
		"admitted", p.tracker.Admitted(),
		"rejected", p.tracker.Rejected(),
		"constraints_satisfied", p.tracker.Satisfied(),
	)
	return nil
}

// SetTuning replaces the decision-rule tuning mid-game. Weights and the
// threshold carry over; only the step sizes change. Must not be called
// concurrently with Decide; callers apply reloads between decisions.
func (p *Policy) SetTuning(t Tuning) error {
	t.Normalize()
	if err := t.Validate(); err != nil {
		return fmt.Errorf("invalid tuning: %w", err)
	}
	p.tuning = t
	p.logger.Info("tuning updated",
		"raise_step", t.RaiseStep,
		"threshold_step", t.ThresholdStep,
		"threshold_max", t.ThresholdMax,
	)
	return nil
}

// Tuning returns the tuning currently in effect.
func (p *Policy) Tuning() Tuning {
	return p.tuning
}

// Status returns the policy's view of the game lifecycle, including the
// pre-first-decision init state.
func (p *Policy) Status() game.Status {
	return p.status
}

// State returns a snapshot of the game's progress.
func (p *Policy) State() game.State {
	s := p.tracker.Snapshot()
	s.GameID = p.gameID
	s.Scenario = p.scenario
	s.Status = p.status
	return s
}

// Weights returns a copy of the current shadow prices.
func (p *Policy) Weights() map[game.AttributeID]float64 {
	out := make(map[game.AttributeID]float64, len(p.weights))
	for id, w := range p.weights {
		out[id] = w
	}
	return out
}

// Threshold returns the current admission bar θ.
func (p *Policy) Threshold() float64 {
	return p.threshold
}

// Deficits returns the current deficit per constrained attribute.
func (p *Policy) Deficits() map[game.AttributeID]int {
	return p.tracker.Deficits()
}

// Feasible reports whether the constraints can still be satisfied.
func (p *Policy) Feasible() bool {
	return p.tracker.Feasible()
}

// Satisfied reports whether every constraint has reached its minimum.
func (p *Policy) Satisfied() bool {
	return p.tracker.Satisfied()
}

// ModelDegraded reports whether the policy is running on a projected or
// independence-fallback model instead of the published correlations.
func (p *Policy) ModelDegraded() bool {
	return p.degraded
}

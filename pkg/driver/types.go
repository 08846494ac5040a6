package driver

import (
	"context"
	"time"

	"nocturne-labs/doorman/pkg/client"
	"nocturne-labs/doorman/pkg/game"
)

// GameAPI is the game server surface the driver needs. *client.Client
// implements it; tests substitute an in-memory fake.
type GameAPI interface {
	// NewGame starts a game and returns its handle, constraints, and
	// attribute statistics.
	NewGame(ctx context.Context, scenario int) (*client.NewGameResponse, error)

	// DecideAndNext submits the verdict for person personIndex and
	// returns the authoritative game view plus the next arrival. The
	// first call of a game passes a nil verdict.
	DecideAndNext(ctx context.Context, gameID string, personIndex int, accept *bool) (*client.DecideResponse, error)
}

// DecisionRecorder persists per-decision records. Implemented by the
// history recorder; a nil recorder disables recording.
type DecisionRecorder interface {
	RecordDecision(ctx context.Context, gameID string, scenario int, person game.Person, decision game.Decision, admitted, rejected int) error
}

// Result is the outcome of one driven game.
type Result struct {
	// GameID is the server-assigned game identifier.
	GameID string `json:"game_id"`

	// Scenario is the scenario the game was played under.
	Scenario int `json:"scenario"`

	// Status is the terminal status the server reported.
	Status game.Status `json:"status"`

	// Admitted and Rejected are the server's final counts.
	Admitted int `json:"admitted"`
	Rejected int `json:"rejected"`

	// Decisions is the number of verdicts issued, and Forced how many
	// of them bypassed scoring.
	Decisions int `json:"decisions"`
	Forced    int `json:"forced"`

	// Satisfied records, per constrained attribute, whether its
	// minimum count was reached.
	Satisfied map[game.AttributeID]bool `json:"satisfied"`

	// Degraded is true when the policy ran on a fallback attribute
	// model instead of the published correlations.
	Degraded bool `json:"degraded"`

	// FinalThreshold is the admission bar when the game ended.
	FinalThreshold float64 `json:"final_threshold"`

	// Reason is the server's explanation for a failed game, if any.
	Reason string `json:"reason,omitempty"`

	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// Completed reports whether the venue was filled within budget.
func (r *Result) Completed() bool {
	return r.Status == game.StatusCompleted
}

// SatisfiedAll reports whether every constraint reached its minimum.
func (r *Result) SatisfiedAll() bool {
	for _, ok := range r.Satisfied {
		if !ok {
			return false
		}
	}
	return true
}

package runs

import (
	"time"

	"nocturne-labs/doorman/pkg/game"
)

// Run is one game's outcome summary. Saving the same ID again replaces
// the outcome, so a run opened at game start can be finalized in place.
type Run struct {
	// ID uniquely identifies this run. Assigned on save when empty.
	ID string `json:"id"`

	// GameID is the server-assigned game identifier.
	GameID string `json:"game_id"`

	// Scenario is the scenario the game was played under.
	Scenario int `json:"scenario"`

	// Status is the terminal game status (completed or failed).
	Status game.Status `json:"status"`

	// Admitted is the final occupancy.
	Admitted int `json:"admitted"`

	// Rejected is the number of rejections spent. Lower is better for
	// a completed run.
	Rejected int `json:"rejected"`

	// Satisfied records, per constrained attribute, whether its minimum
	// count was reached.
	Satisfied map[game.AttributeID]bool `json:"satisfied"`

	// Degraded is true when the joint attribute model fell back to
	// independence during the game.
	Degraded bool `json:"degraded"`

	// Duration is wall-clock time from first arrival to terminal status.
	Duration time.Duration `json:"duration"`

	// StartedAt is when the game was created.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the game reached a terminal status.
	FinishedAt time.Time `json:"finished_at"`
}

// Completed reports whether the run filled the venue within budget.
func (r *Run) Completed() bool {
	return r.Status == game.StatusCompleted
}

// SatisfiedAll reports whether every constraint reached its minimum.
func (r *Run) SatisfiedAll() bool {
	for _, ok := range r.Satisfied {
		if !ok {
			return false
		}
	}
	return true
}

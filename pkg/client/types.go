package client

import "nocturne-labs/doorman/pkg/game"

// Endpoint labels used in logs and metrics.
const (
	EndpointNewGame       = "new_game"
	EndpointDecideAndNext = "decide_and_next"
)

// NewGameResponse is the payload returned by /new-game: the game handle,
// the constraint set, and the published attribute statistics.
type NewGameResponse struct {
	GameID              string                   `json:"gameId"`
	Constraints         []game.Constraint        `json:"constraints"`
	AttributeStatistics game.AttributeStatistics `json:"attributeStatistics"`
}

// DecideResponse is the payload returned by /decide-and-next. While the
// game is running it carries the authoritative counts and the next
// person; at a terminal status NextPerson is null and Reason may explain
// a failure.
type DecideResponse struct {
	Status        string       `json:"status"`
	AdmittedCount *int         `json:"admittedCount,omitempty"`
	RejectedCount *int         `json:"rejectedCount,omitempty"`
	NextPerson    *game.Person `json:"nextPerson,omitempty"`
	Reason        string       `json:"reason,omitempty"`
}

// Running reports whether the response says the game is still accepting
// decisions.
func (r *DecideResponse) Running() bool {
	return r.Status == string(game.StatusRunning)
}

package logging

import "context"

type contextKey string

const (
	gameIDKey      contextKey = "game_id"
	scenarioKey    contextKey = "scenario"
	personIndexKey contextKey = "person_index"
)

// WithGameID returns a context carrying the game ID for log extraction.
func WithGameID(ctx context.Context, gameID string) context.Context {
	return context.WithValue(ctx, gameIDKey, gameID)
}

// GameIDFromContext extracts the game ID, or "" if absent.
func GameIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(gameIDKey).(string); ok {
		return v
	}
	return ""
}

// WithScenario returns a context carrying the scenario number.
func WithScenario(ctx context.Context, scenario int) context.Context {
	return context.WithValue(ctx, scenarioKey, scenario)
}

// ScenarioFromContext extracts the scenario number, or 0 if absent.
func ScenarioFromContext(ctx context.Context) int {
	if v, ok := ctx.Value(scenarioKey).(int); ok {
		return v
	}
	return 0
}

// WithPersonIndex returns a context carrying the current person index.
func WithPersonIndex(ctx context.Context, idx int) context.Context {
	return context.WithValue(ctx, personIndexKey, idx)
}

// PersonIndexFromContext extracts the person index, or -1 if absent.
func PersonIndexFromContext(ctx context.Context) int {
	if v, ok := ctx.Value(personIndexKey).(int); ok {
		return v
	}
	return -1
}

// extractContextFields pulls known fields out of the context in slog
// key/value form.
func extractContextFields(ctx context.Context) []any {
	var fields []any
	if id := GameIDFromContext(ctx); id != "" {
		fields = append(fields, "game_id", id)
	}
	if s := ScenarioFromContext(ctx); s != 0 {
		fields = append(fields, "scenario", s)
	}
	if idx := PersonIndexFromContext(ctx); idx >= 0 {
		fields = append(fields, "person_index", idx)
	}
	return fields
}

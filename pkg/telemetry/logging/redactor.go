package logging

import (
	"fmt"
	"strings"
)

// Redactor masks credential-bearing log fields. The player ID is the one
// long-lived credential this system handles; it must never appear whole in
// log output.
type Redactor struct {
	sensitiveKeys []string
}

// NewRedactor creates a Redactor with the built-in sensitive key list.
func NewRedactor() *Redactor {
	return &Redactor{
		sensitiveKeys: []string{
			"player_id", "playerid",
			"token", "secret",
			"api_key", "apikey",
			"authorization", "password",
		},
	}
}

// RedactArgs masks values whose keys indicate credentials. Args are in slog
// form: key1, value1, key2, value2, ...
func (r *Redactor) RedactArgs(args ...any) []any {
	if len(args) == 0 {
		return args
	}

	redacted := make([]any, len(args))
	copy(redacted, args)

	for i := 1; i < len(redacted); i += 2 {
		key, ok := redacted[i-1].(string)
		if ok && r.isSensitiveKey(key) {
			redacted[i] = r.redactValue(redacted[i])
		}
	}
	return redacted
}

func (r *Redactor) isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range r.sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// redactValue keeps a short prefix of the value for correlation during
// debugging.
func (r *Redactor) redactValue(value any) any {
	switch v := value.(type) {
	case string:
		if v == "" {
			return ""
		}
		if len(v) <= 8 {
			return "***"
		}
		return v[:8] + "***"
	case fmt.Stringer:
		return r.redactValue(v.String())
	default:
		return "***"
	}
}

// RedactPlayerID masks a player UUID, keeping the first segment so runs can
// still be correlated by eye.
func RedactPlayerID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i] + "-***"
	}
	if len(id) <= 8 {
		return "***"
	}
	return id[:8] + "***"
}

// Package logging provides structured logging for doorman on top of
// log/slog.
//
// New builds a *Logger from configuration (level, format, output) and
// optionally masks credential-bearing fields such as the player ID before
// they reach the output. Setup installs the logger as the process-wide slog
// default so component loggers created with slog.Default().With(...) inherit
// the handler.
//
// Context carriers (WithGameID, WithPersonIndex) let the driver stamp a
// context once and have every log line in the decision path tagged.
package logging

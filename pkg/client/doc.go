// Package client implements the HTTP client for the Berghain game API.
//
// The API is two GET endpoints. /new-game creates a game for a scenario
// and returns the constraint set plus attribute statistics. Then
// /decide-and-next is called once per arrival: it submits the decision
// for the current person and returns the next one, together with the
// server's authoritative admitted and rejected counts. The first call
// of a game carries no decision and just fetches person 0.
//
// Transient failures (network errors, 5xx responses, rate limits) are
// retried with exponential backoff; a 429 Retry-After hint is honored
// up to the configured backoff cap. Client errors (4xx) are returned
// to the caller as typed errors without retrying.
//
// The player ID is a credential. It is sent only as a query parameter
// and never appears in log output or error text.
package client

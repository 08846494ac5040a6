// Doorman is an online admission policy for the Berghain Challenge.
//
// It plays the challenge's admission game: people arrive one at a
// time, each must be accepted or rejected on the spot, the venue must
// fill to capacity before the rejection budget runs out, and every
// attribute quota must be met. Doorman drives the game over the
// challenge API (or a local simulator), deciding with an adaptive
// shadow-price policy and recording every decision for analysis.
//
// Usage:
//
//	# Play scenario 1 against the challenge server
//	doorman run --scenario 1
//
//	# Play with a custom configuration file
//	doorman run --config /path/to/doorman.yaml
//
//	# Play 20 games against the local simulator
//	doorman simulate --scenario 2 --games 20
//
//	# Query recorded decisions
//	doorman history list --game <game-id> --limit 50
//
//	# Show the best archived run for a scenario
//	doorman runs best --scenario 1
//
//	# Validate configuration
//	doorman validate
package main

func main() {
	Execute()
}

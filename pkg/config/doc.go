// Package config defines doorman's configuration structures and loading.
//
// Configuration is read from a YAML file, then defaults are applied, then
// environment variable overrides (DOORMAN_SECTION_FIELD), and the result is
// validated. The player ID credential can additionally come from a .env file
// or the PLAYER_ID environment variable, which is the usual way to keep it
// out of checked-in configuration.
//
// The loading sequence is:
//
//  1. Load YAML from file (a missing file yields pure defaults)
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
//
// Example:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("doorman.yaml")
//	if err != nil {
//	    return err
//	}
package config

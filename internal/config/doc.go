// Package config loads, defaults, and validates tally's TOML configuration.
//
// Load resolves the config file (explicit path, ~/.config/tally/config.toml,
// or ./tally.toml), merges it over Default(), expands and normalizes paths,
// and validates the result. A missing file is not an error; defaults apply.
package config

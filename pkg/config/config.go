package config

import (
	"os"
	"path/filepath"
)

// Config holds tool configuration.
type Config struct {
	// WitnessPath is the witness ledger file.
	WitnessPath string
	// CreatedAt, when set, overrides the manifest creation timestamp so
	// identical inputs can be re-sealed reproducibly.
	CreatedAt string
	// LogLevel controls stderr diagnostics (DEBUG, INFO, WARN, ERROR).
	LogLevel string
}

// Load loads configuration from environment variables.
func Load() *Config {
	witness := os.Getenv("PACK_WITNESS")
	if witness == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		witness = filepath.Join(home, ".epistemic", "witness.jsonl")
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "WARN"
	}

	return &Config{
		WitnessPath: witness,
		CreatedAt:   os.Getenv("PACK_CREATED_AT"),
		LogLevel:    logLevel,
	}
}

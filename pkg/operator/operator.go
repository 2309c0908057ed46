// Package operator holds the compiled-in operator.v0 self-description
// printed by `pack --describe`. Orchestrators read this instead of
// parsing help text.
package operator

import (
	"encoding/json"

	"github.com/epistemic-tools/pack/pkg/version"
)

// Subcommand describes one CLI verb: what it emits and what its exit
// codes mean.
type Subcommand struct {
	Description string            `json:"description"`
	OutputMode  string            `json:"output_mode"`
	Status      string            `json:"status,omitempty"`
	ExitCodes   map[string]string `json:"exit_codes"`
}

// Descriptor is the operator.v0 document.
type Descriptor struct {
	Name          string                `json:"name"`
	SchemaVersion string                `json:"schema_version"`
	Version       string                `json:"version"`
	Description   string                `json:"description"`
	OutputMode    string                `json:"output_mode"`
	Subcommands   map[string]Subcommand `json:"subcommands"`
	RefusalCodes  map[string]string     `json:"refusal_codes"`
	GlobalFlags   []string              `json:"global_flags"`
}

// Describe returns the descriptor for the current build.
func Describe() *Descriptor {
	return &Descriptor{
		Name:          "pack",
		SchemaVersion: "operator.v0",
		Version:       version.Tool(),
		Description:   "Seal lockfiles, reports, rules, and registry artifacts into one immutable, self-verifiable evidence pack.",
		OutputMode:    "mixed",
		Subcommands: map[string]Subcommand{
			"seal": {
				Description: "Seal artifacts into an evidence pack directory",
				OutputMode:  "directory_artifact",
				ExitCodes:   map[string]string{"0": "PACK_CREATED", "2": "REFUSAL"},
			},
			"verify": {
				Description: "Verify pack integrity (members + pack_id)",
				OutputMode:  "report",
				ExitCodes:   map[string]string{"0": "OK", "1": "INVALID", "2": "REFUSAL"},
			},
			"diff": {
				Description: "Deterministically diff two packs by manifest",
				OutputMode:  "report",
				ExitCodes:   map[string]string{"0": "NO_CHANGES", "1": "CHANGES", "2": "REFUSAL"},
			},
			"push": {
				Description: "Publish a pack to a remote store (deferred)",
				OutputMode:  "status",
				Status:      "deferred",
				ExitCodes:   map[string]string{"0": "PUBLISHED", "2": "REFUSAL"},
			},
			"pull": {
				Description: "Fetch a pack by ID from a remote store (deferred)",
				OutputMode:  "status",
				Status:      "deferred",
				ExitCodes:   map[string]string{"0": "FETCHED", "2": "REFUSAL"},
			},
			"witness": {
				Description: "Query the witness ledger",
				OutputMode:  "report",
				ExitCodes:   map[string]string{"0": "OK"},
			},
		},
		RefusalCodes: map[string]string{
			"E_EMPTY":     "seal called with no artifacts",
			"E_IO":        "Cannot read input, write output, or read pack directory",
			"E_DUPLICATE": "Member path collision during seal (including reserved paths)",
			"E_BAD_PACK":  "Missing or invalid manifest.json for verify/diff/push",
		},
		GlobalFlags: []string{"--describe", "--schema", "--version", "--no-witness"},
	}
}

// JSON renders the descriptor as indented JSON with sorted keys.
func (d *Descriptor) JSON() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

package manifest

import (
	_ "embed"
	"encoding/json"
)

//go:embed pack_v0_schema.json
var schemaJSON []byte

// SchemaJSON returns the pack.v0 JSON Schema document covering the
// manifest, member, and verify report shapes. Printed by `pack
// --schema` and compiled into the schema registry.
func SchemaJSON() []byte {
	out := make([]byte, len(schemaJSON))
	copy(out, schemaJSON)
	return out
}

// SchemaIndented returns the schema document pretty-printed.
func SchemaIndented() string {
	var v any
	if err := json.Unmarshal(schemaJSON, &v); err != nil {
		return string(schemaJSON)
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return string(schemaJSON)
	}
	return string(b)
}

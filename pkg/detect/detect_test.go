package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectJSONVersions(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		path        string
		wantType    string
		wantVersion string
	}{
		{"lockfile", `{"version": "lock.v0", "files": []}`, "nov.lock.json", TypeLockfile, "lock.v0"},
		{"rvl report", `{"version": "rvl.v0", "outcome": "REAL_CHANGE"}`, "rvl.report.json", TypeReport, "rvl.v0"},
		{"shape report", `{"version": "shape.v0", "columns": []}`, "shape.json", TypeReport, "shape.v0"},
		{"verify report", `{"version": "verify.v0", "violations": []}`, "verify.json", TypeReport, "verify.v0"},
		{"compare report", `{"version": "compare.v0", "differences": []}`, "compare.json", TypeReport, "compare.v0"},
		{"canon artifact", `{"version": "canon.v0", "canonical": true}`, "canon.json", TypeArtifact, "canon.v0"},
		{"assess artifact", `{"version": "assess.v0", "assessment": "PASS"}`, "assess.json", TypeArtifact, "assess.v0"},
		{"rules", `{"version": "verify.rules.v0", "rules": []}`, "rules.json", TypeRules, "verify.rules.v0"},
		{"nested pack", `{"version": "pack.v0", "members": []}`, "inner.pack.json", TypePack, "pack.v0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect([]byte(tt.content), tt.path)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantVersion, got.ArtifactVersion)
		})
	}
}

func TestDetectProfile(t *testing.T) {
	yamlProfile := `
schema_version: "1.0"
profile_id: baseline
description: test profile
`
	got := Detect([]byte(yamlProfile), "baseline.profile.yaml")
	assert.Equal(t, TypeProfile, got.Type)
	assert.Empty(t, got.ArtifactVersion)

	// JSON is valid YAML; profile markers are detected there too.
	jsonProfile := `{"schema_version": "1.0", "profile_id": "baseline"}`
	got = Detect([]byte(jsonProfile), "baseline.profile.json")
	assert.Equal(t, TypeProfile, got.Type)

	// One marker alone is not a profile.
	got = Detect([]byte("schema_version: \"1.0\"\n"), "partial.yaml")
	assert.Equal(t, TypeOther, got.Type)
}

func TestDetectRegistryByPath(t *testing.T) {
	assert.Equal(t, TypeRegistry, Detect([]byte("{}"), "registry.json").Type)
	assert.Equal(t, TypeRegistry, Detect([]byte("{}"), "data/registry.json").Type)
	assert.Equal(t, TypeRegistry, Detect([]byte("{}"), "snapshot.registry.json").Type)
	assert.Equal(t, TypeRegistry, Detect([]byte("id,name"), "registry/tables/users.csv").Type)
}

func TestDetectPrecedence(t *testing.T) {
	// A recognized JSON version wins over a registry-looking path.
	content := `{"version": "rvl.v0", "outcome": "REAL_CHANGE"}`
	got := Detect([]byte(content), "registry/report.json")
	assert.Equal(t, TypeReport, got.Type)
	assert.Equal(t, "rvl.v0", got.ArtifactVersion)
}

func TestDetectOther(t *testing.T) {
	tests := []struct {
		name    string
		content []byte
		path    string
	}{
		{"unknown version", []byte(`{"version": "unknown.v1", "data": "x"}`), "x.json"},
		{"plain text", []byte("plain text content"), "notes.txt"},
		{"binary", []byte{0x00, 0x01, 0x02, 0xff, 0xfe}, "blob.bin"},
		{"malformed json", []byte(`{"incomplete": json`), "bad.json"},
		{"non-string version", []byte(`{"version": 3}`), "v.json"},
		{"empty", []byte{}, "empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.content, tt.path)
			assert.Equal(t, TypeOther, got.Type)
			assert.Empty(t, got.ArtifactVersion)
		})
	}
}

func TestDetectDeterministic(t *testing.T) {
	content := []byte(`{"version": "rvl.v0", "outcome": "NO_REAL_CHANGE"}`)
	first := Detect(content, "r.json")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Detect(content, "r.json"))
	}
}

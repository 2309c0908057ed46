// Package detect classifies member file content into a pack member
// type. Detection is total and deterministic: classifiers run in a
// fixed priority order and unrecognized content always falls through
// to "other".
package detect

import (
	"encoding/json"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Member type strings written into the manifest.
const (
	TypeLockfile = "lockfile"
	TypeReport   = "report"
	TypeArtifact = "artifact"
	TypeRules    = "rules"
	TypePack     = "pack"
	TypeProfile  = "profile"
	TypeRegistry = "registry"
	TypeOther    = "other"
)

// Result of member type detection.
type Result struct {
	// Type is the detected member type string.
	Type string
	// ArtifactVersion is the parsed artifact version, when available.
	ArtifactVersion string
}

// classifier inspects content and path and either claims the member or
// declines. New artifact types are added by appending a classifier to
// the chain.
type classifier func(content []byte, path string) (Result, bool)

var chain = []classifier{
	matchJSONVersion,
	matchYAMLProfile,
	matchRegistryPath,
}

// jsonVersionTypes maps a top-level JSON "version" field to a member type.
var jsonVersionTypes = map[string]string{
	"lock.v0":         TypeLockfile,
	"rvl.v0":          TypeReport,
	"shape.v0":        TypeReport,
	"verify.v0":       TypeReport,
	"compare.v0":      TypeReport,
	"canon.v0":        TypeArtifact,
	"assess.v0":       TypeArtifact,
	"verify.rules.v0": TypeRules,
	"pack.v0":         TypePack,
}

// Detect classifies member content. It never fails; content that no
// classifier claims is "other" with no artifact version.
func Detect(content []byte, path string) Result {
	for _, classify := range chain {
		if result, ok := classify(content, path); ok {
			return result
		}
	}
	return Result{Type: TypeOther}
}

func matchJSONVersion(content []byte, _ string) (Result, bool) {
	if !utf8.Valid(content) {
		return Result{}, false
	}
	var value map[string]json.RawMessage
	if err := json.Unmarshal(content, &value); err != nil {
		return Result{}, false
	}
	raw, ok := value["version"]
	if !ok {
		return Result{}, false
	}
	var version string
	if err := json.Unmarshal(raw, &version); err != nil {
		return Result{}, false
	}
	memberType, ok := jsonVersionTypes[version]
	if !ok {
		return Result{}, false
	}
	return Result{Type: memberType, ArtifactVersion: version}, true
}

func matchYAMLProfile(content []byte, _ string) (Result, bool) {
	if !utf8.Valid(content) {
		return Result{}, false
	}
	var doc map[string]any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return Result{}, false
	}
	if _, ok := doc["schema_version"]; !ok {
		return Result{}, false
	}
	if _, ok := doc["profile_id"]; !ok {
		return Result{}, false
	}
	return Result{Type: TypeProfile}, true
}

func matchRegistryPath(_ []byte, path string) (Result, bool) {
	base := path
	if i := strings.LastIndex(path, "/"); i >= 0 {
		base = path[i+1:]
	}
	if base == "registry.json" || strings.HasSuffix(base, ".registry.json") || strings.Contains(path, "registry/") {
		return Result{Type: TypeRegistry}, true
	}
	return Result{}, false
}

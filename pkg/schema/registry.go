// Package schema holds the locally available JSON Schemas for known
// artifact versions. Lookup returns nothing for unregistered versions;
// callers treat that as "skip", never as an error.
package schema

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/epistemic-tools/pack/pkg/manifest"
)

// Registry maps artifact versions to compiled schemas.
type Registry struct {
	compiled map[string]*jsonschema.Schema
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry of compiled-in schemas. Compilation of
// the built-in documents happens once; a failure there is a programmer
// error and panics.
func Default() *Registry {
	defaultOnce.Do(func() {
		reg, err := newBuiltinRegistry()
		if err != nil {
			panic(fmt.Sprintf("schema: built-in registry failed to compile: %v", err))
		}
		defaultReg = reg
	})
	return defaultReg
}

// Lookup returns the compiled schema for an artifact version, or nil
// when no local schema is registered.
func (r *Registry) Lookup(artifactVersion string) *jsonschema.Schema {
	return r.compiled[artifactVersion]
}

// Versions returns the registered artifact versions, for diagnostics.
func (r *Registry) Versions() []string {
	out := make([]string, 0, len(r.compiled))
	for v := range r.compiled {
		out = append(out, v)
	}
	return out
}

// versionConstSchema is the minimal contract for flat artifact files: a
// JSON object whose "version" field carries the expected constant.
func versionConstSchema(version string) string {
	return fmt.Sprintf(`{
		"type": "object",
		"required": ["version"],
		"properties": { "version": { "const": %q } }
	}`, version)
}

func newBuiltinRegistry() (*Registry, error) {
	flatVersions := []string{
		"lock.v0",
		"rvl.v0", "shape.v0", "verify.v0", "compare.v0",
		"canon.v0", "assess.v0",
		"verify.rules.v0",
	}

	compiled := make(map[string]*jsonschema.Schema, len(flatVersions)+1)

	for _, v := range flatVersions {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		url := "schema://pack/" + strings.ReplaceAll(v, ".", "-") + ".schema.json"
		if err := c.AddResource(url, strings.NewReader(versionConstSchema(v))); err != nil {
			return nil, fmt.Errorf("add %s: %w", v, err)
		}
		s, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", v, err)
		}
		compiled[v] = s
	}

	// Nested packs are validated against the full manifest definition.
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	const packURL = "schema://pack/pack-v0.schema.json"
	if err := c.AddResource(packURL, bytes.NewReader(manifest.SchemaJSON())); err != nil {
		return nil, fmt.Errorf("add pack.v0: %w", err)
	}
	s, err := c.Compile(packURL + "#/definitions/manifest")
	if err != nil {
		return nil, fmt.Errorf("compile pack.v0: %w", err)
	}
	compiled["pack.v0"] = s

	return &Registry{compiled: compiled}, nil
}

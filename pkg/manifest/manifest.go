// Package manifest defines the pack.v0 manifest model and its
// self-referential content address. A manifest's pack_id is the SHA-256
// of its canonical encoding taken while pack_id is empty; construction
// is an explicit draft → hash → finalize sequence so the hashed bytes
// and the written bytes can never drift apart.
package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/epistemic-tools/pack/pkg/canonicalize"
)

const (
	// Filename is the reserved manifest file name inside a pack.
	Filename = "manifest.json"
	// FormatVersion is the manifest format identifier.
	FormatVersion = "pack.v0"
)

// Member describes one file bound into a pack.
type Member struct {
	Path            string  `json:"path"`
	BytesHash       string  `json:"bytes_hash"`
	Type            string  `json:"type"`
	ArtifactVersion *string `json:"artifact_version,omitempty"`
}

// Manifest is the self-describing, self-hashed pack document.
type Manifest struct {
	Version     string   `json:"version"`
	PackID      string   `json:"pack_id"`
	Created     string   `json:"created"`
	Note        *string  `json:"note,omitempty"`
	ToolVersion string   `json:"tool_version"`
	Members     []Member `json:"members"`
	MemberCount int      `json:"member_count"`
}

// Draft is a manifest under construction, before its pack_id exists.
type Draft struct {
	created     string
	note        *string
	toolVersion string
	members     []Member
}

// NewDraft starts a manifest draft. Members must already be in
// canonical order (sorted ascending by path).
func NewDraft(created string, note *string, toolVersion string, members []Member) *Draft {
	return &Draft{
		created:     created,
		note:        note,
		toolVersion: toolVersion,
		members:     members,
	}
}

// Finalize computes the self-hash and returns the completed manifest.
// The bytes that are hashed carry an empty pack_id; the returned
// manifest carries the resulting digest.
func (d *Draft) Finalize() (*Manifest, error) {
	m := &Manifest{
		Version:     FormatVersion,
		PackID:      "",
		Created:     d.created,
		Note:        d.note,
		ToolVersion: d.toolVersion,
		Members:     d.members,
		MemberCount: len(d.members),
	}

	id, err := canonicalize.HashValue(m)
	if err != nil {
		return nil, fmt.Errorf("manifest: self-hash failed: %w", err)
	}
	m.PackID = id
	return m, nil
}

// CanonicalHash recomputes the pack_id of m using the identical
// empty-then-hash procedure. It does not modify m.
func (m *Manifest) CanonicalHash() (string, error) {
	clone := *m
	clone.PackID = ""
	return canonicalize.HashValue(&clone)
}

// Encode renders the manifest in its canonical byte form, as written
// to disk inside a pack.
func (m *Manifest) Encode() ([]byte, error) {
	return canonicalize.Encode(m)
}

// Parse decodes manifest bytes. It does not check the format version;
// callers decide how to surface an unsupported version.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("manifest: invalid JSON: %w", err)
	}
	return &m, nil
}

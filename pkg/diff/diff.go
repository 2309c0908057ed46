// Package diff compares two sealed packs by their manifests. The
// comparison is purely declarative: member paths and bytes hashes as
// recorded, no filesystem re-hashing. Run verify first when the packs
// themselves are in doubt.
package diff

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/epistemic-tools/pack/pkg/manifest"
	"github.com/epistemic-tools/pack/pkg/refusal"
)

const (
	// ReportVersion identifies the diff report wire format.
	ReportVersion = "pack.diff.v0"

	OutcomeNoChanges = "NO_CHANGES"
	OutcomeChanges   = "CHANGES"
)

// Entry is a single difference between the two packs.
type Entry struct {
	Kind  string `json:"kind"`
	Path  string `json:"path"`
	AHash string `json:"a_hash,omitempty"`
	BHash string `json:"b_hash,omitempty"`
}

// Report is the pack.diff.v0 comparison result.
type Report struct {
	Version   string  `json:"version"`
	Outcome   string  `json:"outcome"`
	APackID   string  `json:"a_pack_id"`
	BPackID   string  `json:"b_pack_id"`
	Added     []Entry `json:"added"`
	Removed   []Entry `json:"removed"`
	Changed   []Entry `json:"changed"`
	Unchanged int     `json:"unchanged"`
}

// HasChanges reports whether any entry list is non-empty.
func (r *Report) HasChanges() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0 || len(r.Changed) > 0
}

// ExitCode is 0 for NO_CHANGES and 1 for CHANGES.
func (r *Report) ExitCode() int {
	if r.HasChanges() {
		return 1
	}
	return 0
}

func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Human renders the report for terminal consumption.
func (r *Report) Human() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pack diff: %s\n", r.Outcome)
	fmt.Fprintf(&b, "  a: %s\n", r.APackID)
	fmt.Fprintf(&b, "  b: %s\n", r.BPackID)

	if len(r.Added) > 0 {
		fmt.Fprintf(&b, "  added: %d\n", len(r.Added))
		for _, e := range r.Added {
			fmt.Fprintf(&b, "    + %s\n", e.Path)
		}
	}
	if len(r.Removed) > 0 {
		fmt.Fprintf(&b, "  removed: %d\n", len(r.Removed))
		for _, e := range r.Removed {
			fmt.Fprintf(&b, "    - %s\n", e.Path)
		}
	}
	if len(r.Changed) > 0 {
		fmt.Fprintf(&b, "  changed: %d\n", len(r.Changed))
		for _, e := range r.Changed {
			fmt.Fprintf(&b, "    ~ %s\n", e.Path)
		}
	}
	if r.Unchanged > 0 {
		fmt.Fprintf(&b, "  unchanged: %d\n", r.Unchanged)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Compare builds a deterministic report from two parsed manifests.
// Entries are sorted bytewise by path within each list.
func Compare(a, b *manifest.Manifest) *Report {
	aMembers := membersByPath(a)
	bMembers := membersByPath(b)

	report := &Report{
		Version: ReportVersion,
		APackID: a.PackID,
		BPackID: b.PackID,
		Added:   []Entry{},
		Removed: []Entry{},
		Changed: []Entry{},
	}

	for _, path := range sortedKeys(aMembers) {
		aMember := aMembers[path]
		bMember, ok := bMembers[path]
		switch {
		case !ok:
			report.Removed = append(report.Removed, Entry{
				Kind:  "removed",
				Path:  path,
				AHash: aMember.BytesHash,
			})
		case aMember.BytesHash != bMember.BytesHash:
			report.Changed = append(report.Changed, Entry{
				Kind:  "changed",
				Path:  path,
				AHash: aMember.BytesHash,
				BHash: bMember.BytesHash,
			})
		default:
			report.Unchanged++
		}
	}

	for _, path := range sortedKeys(bMembers) {
		if _, ok := aMembers[path]; !ok {
			report.Added = append(report.Added, Entry{
				Kind:  "added",
				Path:  path,
				BHash: bMembers[path].BytesHash,
			})
		}
	}

	report.Outcome = OutcomeNoChanges
	if report.HasChanges() {
		report.Outcome = OutcomeChanges
	}
	return report
}

// ReadManifest loads and validates a single pack manifest for
// comparison. The label names the side (A or B) in refusal messages.
func ReadManifest(packDir, label string) (*manifest.Manifest, *refusal.Envelope) {
	data, err := os.ReadFile(filepath.Join(packDir, manifest.Filename))
	if err != nil {
		return nil, refusal.BadPack(packDir,
			fmt.Sprintf("cannot read manifest.json from pack %s: %v", label, err))
	}
	m, err := manifest.Parse(data)
	if err != nil {
		return nil, refusal.BadPack(packDir,
			fmt.Sprintf("invalid manifest.json in pack %s: %v", label, err))
	}
	if m.Version != manifest.FormatVersion {
		return nil, refusal.BadPack(packDir,
			fmt.Sprintf("unsupported manifest version in pack %s: %s", label, m.Version))
	}
	return m, nil
}

func membersByPath(m *manifest.Manifest) map[string]manifest.Member {
	byPath := make(map[string]manifest.Member, len(m.Members))
	for _, member := range m.Members {
		byPath[member.Path] = member
	}
	return byPath
}

func sortedKeys(members map[string]manifest.Member) []string {
	keys := make([]string, 0, len(members))
	for path := range members {
		keys = append(keys, path)
	}
	sort.Strings(keys)
	return keys
}

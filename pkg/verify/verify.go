// Package verify re-derives a pack's expected state with the same
// primitives used to seal it and reports every deviation. The pipeline
// never short-circuits on a finding: one invocation surfaces the
// complete defect set. Verification never writes to the pack.
package verify

import (
	"encoding/json"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/epistemic-tools/pack/pkg/canonicalize"
	"github.com/epistemic-tools/pack/pkg/collect"
	"github.com/epistemic-tools/pack/pkg/manifest"
	"github.com/epistemic-tools/pack/pkg/refusal"
	"github.com/epistemic-tools/pack/pkg/schema"
)

// Options configures a verification run.
type Options struct {
	// Schemas resolves artifact versions to local schemas. Nil means
	// the compiled-in registry.
	Schemas *schema.Registry
	// Logger receives pipeline diagnostics. Nil disables them.
	Logger *slog.Logger
}

// Verify checks the pack at packDir and always returns a report: OK,
// INVALID with the complete ordered finding set, or REFUSAL when no
// parseable known-version manifest exists.
func Verify(packDir string, opts Options) *Report {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	registry := opts.Schemas
	if registry == nil {
		registry = schema.Default()
	}

	// Stage 1: manifest parse. Failure here is a refusal; nothing else
	// can be checked without a manifest.
	raw, err := os.ReadFile(filepath.Join(packDir, manifest.Filename))
	if err != nil {
		return refusalReport(refusal.CodeBadPack, "Cannot read manifest.json: "+err.Error())
	}
	m, err := manifest.Parse(raw)
	if err != nil {
		return refusalReport(refusal.CodeBadPack, "Invalid manifest.json: "+err.Error())
	}
	if m.Version != manifest.FormatVersion {
		return refusalReport(refusal.CodeBadPack, "Unsupported manifest version: "+m.Version)
	}

	checks := Checks{ManifestParse: true}
	var findings []Finding

	// Stage 2: declared count vs. members array.
	checks.MemberCount = true
	if m.MemberCount != len(m.Members) {
		checks.MemberCount = false
		findings = append(findings, Finding{
			Code:     CodeMemberCountMismatch,
			Expected: strconv.Itoa(m.MemberCount),
			Actual:   strconv.Itoa(len(m.Members)),
		})
	}

	// Stage 3: path uniqueness, safety, reservation.
	pathFindings, unsafe := checkMemberPaths(m)
	checks.MemberPaths = len(pathFindings) == 0
	findings = append(findings, pathFindings...)

	// Stage 4: per-member existence, regularity, content hash.
	memberFindings := checkMemberFiles(m, packDir, unsafe)
	checks.MemberHashes = len(memberFindings) == 0
	findings = append(findings, memberFindings...)

	// Stage 5: closed set. declared ∪ {manifest.json} vs. observed.
	extraFindings := checkExtraMembers(m, packDir)
	checks.ExtraMembers = len(extraFindings) == 0
	findings = append(findings, extraFindings...)

	// Stage 6: recompute the self-hash from the as-read manifest.
	recomputed, err := m.CanonicalHash()
	if err == nil && recomputed == m.PackID {
		checks.PackID = true
	} else {
		actual := recomputed
		if err != nil {
			actual = "unhashable: " + err.Error()
		}
		findings = append(findings, Finding{
			Code:     CodePackIDMismatch,
			Expected: m.PackID,
			Actual:   actual,
		})
	}

	// Stage 7: schema validation for members with local schemas.
	schemaOutcome, schemaFindings := checkSchemas(m, packDir, registry)
	checks.SchemaValidation = schemaOutcome
	findings = append(findings, schemaFindings...)

	logger.Debug("verification complete", "pack_id", m.PackID, "findings", len(findings))

	if len(findings) == 0 {
		return okReport(m.PackID, checks)
	}
	return invalidReport(m.PackID, checks, findings)
}

// checkMemberPaths returns path findings plus the set of member paths
// that are unsafe to touch on the filesystem.
func checkMemberPaths(m *manifest.Manifest) ([]Finding, map[string]bool) {
	var findings []Finding
	seen := make(map[string]bool, len(m.Members))
	unsafe := make(map[string]bool)

	for _, member := range m.Members {
		if seen[member.Path] {
			findings = append(findings, Finding{Code: CodeDuplicateMemberPath, Path: member.Path})
		}
		seen[member.Path] = true

		if member.Path == manifest.Filename {
			findings = append(findings, Finding{Code: CodeReservedMemberPath, Path: member.Path})
		}
		if !collect.IsSafeRelativePath(member.Path) {
			findings = append(findings, Finding{Code: CodeUnsafeMemberPath, Path: member.Path})
			unsafe[member.Path] = true
		}
	}
	return findings, unsafe
}

func checkMemberFiles(m *manifest.Manifest, packDir string, unsafe map[string]bool) []Finding {
	var findings []Finding

	for _, member := range m.Members {
		// Unsafe paths are never resolved against the filesystem, and
		// a reserved manifest.json entry can never hash-match itself.
		if unsafe[member.Path] || member.Path == manifest.Filename {
			continue
		}
		full := filepath.Join(packDir, filepath.FromSlash(member.Path))

		info, err := os.Lstat(full)
		if err != nil {
			findings = append(findings, Finding{Code: CodeMissingMember, Path: member.Path})
			continue
		}
		if !info.Mode().IsRegular() {
			findings = append(findings, Finding{Code: CodeNonRegularMember, Path: member.Path})
			continue
		}

		actual, err := canonicalize.HashFile(full)
		if err != nil {
			findings = append(findings, Finding{Code: CodeMissingMember, Path: member.Path})
			continue
		}
		if actual != member.BytesHash {
			findings = append(findings, Finding{
				Code:     CodeHashMismatch,
				Path:     member.Path,
				Expected: member.BytesHash,
				Actual:   actual,
			})
		}
	}
	return findings
}

// checkExtraMembers diffs the observed file tree against the declared
// set. Declared and observed are explicit sorted sets; extras are
// observed − (declared ∪ {manifest.json}).
func checkExtraMembers(m *manifest.Manifest, packDir string) []Finding {
	declared := make(map[string]bool, len(m.Members)+1)
	declared[manifest.Filename] = true
	for _, member := range m.Members {
		declared[member.Path] = true
	}

	var extras []string
	_ = filepath.WalkDir(packDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || path == packDir {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(packDir, path)
		if relErr != nil {
			return nil
		}
		observed := filepath.ToSlash(rel)
		if !declared[observed] {
			extras = append(extras, observed)
		}
		return nil
	})

	sort.Strings(extras)
	findings := make([]Finding, 0, len(extras))
	for _, path := range extras {
		findings = append(findings, Finding{Code: CodeExtraMember, Path: path})
	}
	return findings
}

func checkSchemas(m *manifest.Manifest, packDir string, registry *schema.Registry) (string, []Finding) {
	var findings []Finding
	attempted := 0

	for _, member := range m.Members {
		if member.ArtifactVersion == nil {
			continue
		}
		artifactVersion := *member.ArtifactVersion
		compiled := registry.Lookup(artifactVersion)
		if compiled == nil {
			continue
		}
		if !collect.IsSafeRelativePath(member.Path) {
			continue
		}

		attempted++

		content, err := os.ReadFile(filepath.Join(packDir, filepath.FromSlash(member.Path)))
		if err != nil {
			// Missing files are reported by the member file check.
			attempted--
			continue
		}

		var value any
		if err := json.Unmarshal(content, &value); err != nil {
			findings = append(findings, Finding{
				Code:     CodeSchemaViolation,
				Path:     member.Path,
				Expected: "valid " + artifactVersion + " schema",
				Actual:   "invalid JSON: " + err.Error(),
			})
			continue
		}
		if err := compiled.Validate(value); err != nil {
			findings = append(findings, Finding{
				Code:     CodeSchemaViolation,
				Path:     member.Path,
				Expected: "valid " + artifactVersion + " schema",
				Actual:   err.Error(),
			})
		}
	}

	if attempted == 0 {
		return "skipped", findings
	}
	if len(findings) == 0 {
		return "pass", findings
	}
	return "fail", findings
}

package verify

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epistemic-tools/pack/pkg/canonicalize"
	"github.com/epistemic-tools/pack/pkg/manifest"
	"github.com/epistemic-tools/pack/pkg/refusal"
	"github.com/epistemic-tools/pack/pkg/seal"
)

const fixedCreated = "2026-01-15T10:30:00Z"

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// sealPack builds a two-member pack and returns its directory.
func sealPack(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	a := writeFile(t, filepath.Join(src, "a.json"), `{"version": "lock.v0", "files": []}`)
	b := writeFile(t, filepath.Join(src, "notes.txt"), "free-form text\n")
	out := filepath.Join(t.TempDir(), "out")

	_, env := seal.Seal(seal.Options{Inputs: []string{a, b}, Output: out, Created: fixedCreated})
	require.Nil(t, env)
	return out
}

func findingCodes(r *Report) []string {
	codes := make([]string, 0, len(r.Invalid))
	for _, f := range r.Invalid {
		codes = append(codes, f.Code)
	}
	return codes
}

// rewriteManifest parses, mutates, and writes back the manifest
// without resealing, leaving the pack_id stale on purpose unless the
// mutation refreshes it.
func rewriteManifest(t *testing.T, dir string, mutate func(*manifest.Manifest)) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, manifest.Filename))
	require.NoError(t, err)
	m, err := manifest.Parse(data)
	require.NoError(t, err)
	mutate(m)
	out, err := m.Encode()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.Filename), out, 0o644))
}

func TestVerifySealedPackIsOK(t *testing.T) {
	dir := sealPack(t)

	report := Verify(dir, Options{})

	assert.Equal(t, OutcomeOK, report.Outcome)
	assert.Empty(t, report.Invalid)
	assert.Equal(t, 0, report.ExitCode())
	assert.True(t, report.Checks.ManifestParse)
	assert.True(t, report.Checks.MemberCount)
	assert.True(t, report.Checks.MemberPaths)
	assert.True(t, report.Checks.MemberHashes)
	assert.True(t, report.Checks.ExtraMembers)
	assert.True(t, report.Checks.PackID)
	assert.Equal(t, "pass", report.Checks.SchemaValidation)
	require.NotNil(t, report.PackID)
}

func TestVerifyTamperedMember(t *testing.T) {
	dir := sealPack(t)
	writeFile(t, filepath.Join(dir, "notes.txt"), "tampered text\n")

	report := Verify(dir, Options{})

	assert.Equal(t, OutcomeInvalid, report.Outcome)
	assert.Equal(t, 1, report.ExitCode())
	assert.False(t, report.Checks.MemberHashes)
	assert.True(t, report.Checks.PackID)

	require.Len(t, report.Invalid, 1)
	f := report.Invalid[0]
	assert.Equal(t, CodeHashMismatch, f.Code)
	assert.Equal(t, "notes.txt", f.Path)
	assert.Equal(t, canonicalize.HashBytes([]byte("tampered text\n")), f.Actual)
	assert.NotEqual(t, f.Expected, f.Actual)
}

func TestVerifyManifestEditBreaksPackID(t *testing.T) {
	dir := sealPack(t)
	note := "edited after sealing"
	rewriteManifest(t, dir, func(m *manifest.Manifest) { m.Note = &note })

	report := Verify(dir, Options{})

	assert.Equal(t, OutcomeInvalid, report.Outcome)
	assert.False(t, report.Checks.PackID)
	assert.True(t, report.Checks.MemberHashes)
	require.Equal(t, []string{CodePackIDMismatch}, findingCodes(report))
	assert.NotEmpty(t, report.Invalid[0].Expected)
	assert.NotEmpty(t, report.Invalid[0].Actual)
}

func TestVerifyMissingMember(t *testing.T) {
	dir := sealPack(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "notes.txt")))

	report := Verify(dir, Options{})

	assert.Equal(t, OutcomeInvalid, report.Outcome)
	assert.False(t, report.Checks.MemberHashes)
	require.Equal(t, []string{CodeMissingMember}, findingCodes(report))
	assert.Equal(t, "notes.txt", report.Invalid[0].Path)
}

func TestVerifyExtraMember(t *testing.T) {
	dir := sealPack(t)
	writeFile(t, filepath.Join(dir, "sneaky.txt"), "not declared")
	writeFile(t, filepath.Join(dir, "deep", "also.txt"), "nested extra")

	report := Verify(dir, Options{})

	assert.Equal(t, OutcomeInvalid, report.Outcome)
	assert.False(t, report.Checks.ExtraMembers)
	require.Equal(t, []string{CodeExtraMember, CodeExtraMember}, findingCodes(report))
	assert.Equal(t, "deep/also.txt", report.Invalid[0].Path)
	assert.Equal(t, "sneaky.txt", report.Invalid[1].Path)
}

func TestVerifyMemberCountMismatch(t *testing.T) {
	dir := sealPack(t)
	rewriteManifest(t, dir, func(m *manifest.Manifest) { m.MemberCount = 7 })

	report := Verify(dir, Options{})

	assert.Equal(t, OutcomeInvalid, report.Outcome)
	assert.False(t, report.Checks.MemberCount)
	codes := findingCodes(report)
	assert.Contains(t, codes, CodeMemberCountMismatch)
	// The manifest edit also breaks the self-hash.
	assert.Contains(t, codes, CodePackIDMismatch)
}

func TestVerifyUnsafeAndDuplicatePaths(t *testing.T) {
	dir := sealPack(t)
	rewriteManifest(t, dir, func(m *manifest.Manifest) {
		escape := m.Members[0]
		escape.Path = "../escape.json"
		dup := m.Members[1]
		m.Members = append(m.Members, escape, dup, manifest.Member{
			Path:      manifest.Filename,
			BytesHash: "sha256:0000000000000000000000000000000000000000000000000000000000000000",
			Type:      "other",
		})
		m.MemberCount = len(m.Members)
	})

	report := Verify(dir, Options{})

	assert.Equal(t, OutcomeInvalid, report.Outcome)
	assert.False(t, report.Checks.MemberPaths)
	codes := findingCodes(report)
	assert.Contains(t, codes, CodeUnsafeMemberPath)
	assert.Contains(t, codes, CodeDuplicateMemberPath)
	assert.Contains(t, codes, CodeReservedMemberPath)
	// The unsafe path is never touched on disk.
	for _, f := range report.Invalid {
		if f.Path == "../escape.json" {
			assert.Equal(t, CodeUnsafeMemberPath, f.Code)
		}
	}
}

func TestVerifySchemaViolation(t *testing.T) {
	dir := sealPack(t)
	// Keep the hash consistent with the new bytes so only the schema
	// check and the pack_id can complain about the content change.
	bad := `{"version": "lock.v0", "files": "not-an-array"}`
	writeFile(t, filepath.Join(dir, "a.json"), bad)
	rewriteManifest(t, dir, func(m *manifest.Manifest) {
		m.Members[0].BytesHash = canonicalize.HashBytes([]byte(bad))
	})

	report := Verify(dir, Options{})

	assert.Equal(t, OutcomeInvalid, report.Outcome)
	assert.Equal(t, "fail", report.Checks.SchemaValidation)
	assert.True(t, report.Checks.MemberHashes)
	codes := findingCodes(report)
	assert.Contains(t, codes, CodeSchemaViolation)
}

func TestVerifySchemaSkippedWithoutTypedMembers(t *testing.T) {
	src := t.TempDir()
	a := writeFile(t, filepath.Join(src, "plain.txt"), "nothing structured here\n")
	out := filepath.Join(t.TempDir(), "out")
	_, env := seal.Seal(seal.Options{Inputs: []string{a}, Output: out, Created: fixedCreated})
	require.Nil(t, env)

	report := Verify(out, Options{})

	assert.Equal(t, OutcomeOK, report.Outcome)
	assert.Equal(t, "skipped", report.Checks.SchemaValidation)
}

func TestVerifyMissingManifestRefuses(t *testing.T) {
	dir := t.TempDir()

	report := Verify(dir, Options{})

	assert.Equal(t, OutcomeRefusal, report.Outcome)
	assert.Equal(t, 2, report.ExitCode())
	require.NotNil(t, report.Refusal)
	assert.Equal(t, refusal.CodeBadPack, report.Refusal.Code)
	assert.False(t, report.Checks.ManifestParse)
	assert.Equal(t, "skipped", report.Checks.SchemaValidation)
	assert.Nil(t, report.PackID)
}

func TestVerifyCorruptManifestRefuses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, manifest.Filename), "{not json")

	report := Verify(dir, Options{})

	assert.Equal(t, OutcomeRefusal, report.Outcome)
	require.NotNil(t, report.Refusal)
	assert.Equal(t, refusal.CodeBadPack, report.Refusal.Code)
}

func TestVerifyUnknownManifestVersionRefuses(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, manifest.Filename),
		`{"version": "pack.v9", "pack_id": "sha256:ab", "created": "2026-01-01T00:00:00Z", "tool_version": "9.9.9", "members": [], "member_count": 0}`)

	report := Verify(dir, Options{})

	assert.Equal(t, OutcomeRefusal, report.Outcome)
	require.NotNil(t, report.Refusal)
	assert.Contains(t, report.Refusal.Message, "pack.v9")
}

func TestVerifyReportJSONShape(t *testing.T) {
	dir := sealPack(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "notes.txt")))

	report := Verify(dir, Options{})

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(report.JSON()), &decoded))
	assert.Equal(t, "pack.verify.v0", decoded["version"])
	assert.Equal(t, "INVALID", decoded["outcome"])

	checks, ok := decoded["checks"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, checks["manifest_parse"])
	assert.Equal(t, false, checks["member_hashes"])

	invalid, ok := decoded["invalid"].([]any)
	require.True(t, ok)
	require.Len(t, invalid, 1)
}

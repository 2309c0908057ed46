// Package seal builds immutable pack directories. The pipeline is
// transactional: collect → copy into staging → build and self-hash the
// manifest → atomically promote staging to the destination. Any
// failure before promotion leaves nothing at the destination.
package seal

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/epistemic-tools/pack/pkg/collect"
	"github.com/epistemic-tools/pack/pkg/detect"
	"github.com/epistemic-tools/pack/pkg/manifest"
	"github.com/epistemic-tools/pack/pkg/refusal"
	"github.com/epistemic-tools/pack/pkg/version"
)

// Options configures one seal invocation.
type Options struct {
	// Inputs are the files and directories to seal.
	Inputs []string
	// Output is the destination directory. Empty means pack/<pack_id>.
	Output string
	// Note is an optional annotation stored in the manifest.
	Note string
	// Created overrides the manifest creation timestamp (RFC 3339).
	// Empty means current UTC time. Fixing it makes re-sealing
	// identical inputs reproducible.
	Created string
	// Logger receives pipeline diagnostics. Nil disables them.
	Logger *slog.Logger
}

// Result of a successful seal.
type Result struct {
	PackID      string
	OutputDir   string
	MemberCount int
}

// Seal runs the pipeline to completion. Exactly one of result and
// envelope is non-nil.
func Seal(opts Options) (*Result, *refusal.Envelope) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Collect and validate inputs before any filesystem side effect.
	collector := collect.New()
	if env := collector.Collect(opts.Inputs); env != nil {
		return nil, env
	}
	if collector.Empty() {
		return nil, refusal.Empty()
	}
	candidates := collector.Candidates()
	logger.Debug("collected members", "count", len(candidates))

	// An explicitly named destination is checked before staging so a
	// doomed seal copies nothing.
	if opts.Output != "" {
		if env := checkDestination(opts.Output); env != nil {
			return nil, env
		}
	}

	staging, err := os.MkdirTemp("", "pack-staging-*")
	if err != nil {
		return nil, refusal.IO(os.TempDir(), "create_staging_dir", err)
	}
	defer os.RemoveAll(staging)

	copied, copyErr := copyMembers(candidates, staging)
	if copyErr != nil {
		return nil, refusal.IO(copyErr.source, copyErr.operation, copyErr.err)
	}
	logger.Debug("staged members", "staging", staging)

	created := opts.Created
	if created == "" {
		created = time.Now().UTC().Format(time.RFC3339)
	}

	m, env := buildManifest(copied, staging, created, opts.Note)
	if env != nil {
		return nil, env
	}

	dest := opts.Output
	if dest == "" {
		dest = filepath.Join("pack", m.PackID)
	}
	if env := checkDestination(dest); env != nil {
		return nil, env
	}

	if env := promote(staging, dest); env != nil {
		return nil, env
	}
	logger.Info("pack created", "pack_id", m.PackID, "dir", dest, "members", m.MemberCount)

	return &Result{
		PackID:      m.PackID,
		OutputDir:   dest,
		MemberCount: m.MemberCount,
	}, nil
}

// buildManifest detects member types from the staged bytes, assembles
// the manifest draft, finalizes the self-hash, and writes the manifest
// into staging.
func buildManifest(copied []copiedMember, staging, created, note string) (*manifest.Manifest, *refusal.Envelope) {
	members := make([]manifest.Member, 0, len(copied))
	for _, cm := range copied {
		content, err := os.ReadFile(filepath.Join(staging, filepath.FromSlash(cm.memberPath)))
		if err != nil {
			return nil, refusal.IO(cm.memberPath, "read_staged_member", err)
		}

		detected := detect.Detect(content, cm.memberPath)
		member := manifest.Member{
			Path:      cm.memberPath,
			BytesHash: cm.bytesHash,
			Type:      detected.Type,
		}
		if detected.ArtifactVersion != "" {
			v := detected.ArtifactVersion
			member.ArtifactVersion = &v
		}
		members = append(members, member)
	}

	var notePtr *string
	if note != "" {
		notePtr = &note
	}

	m, err := manifest.NewDraft(created, notePtr, version.Tool(), members).Finalize()
	if err != nil {
		return nil, refusal.IO(manifest.Filename, "finalize_manifest", err)
	}

	encoded, err := m.Encode()
	if err != nil {
		return nil, refusal.IO(manifest.Filename, "encode_manifest", err)
	}
	if err := os.WriteFile(filepath.Join(staging, manifest.Filename), encoded, 0o644); err != nil {
		return nil, refusal.IO(manifest.Filename, "write_manifest", err)
	}
	return m, nil
}

// checkDestination refuses when dest exists and is non-empty.
func checkDestination(dest string) *refusal.Envelope {
	entries, err := os.ReadDir(dest)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return refusal.IO(dest, "read_dir", err)
	}
	if len(entries) > 0 {
		return refusal.New(refusal.CodeIO,
			"Output directory already exists and is non-empty: "+dest,
			&refusal.Detail{Path: dest, Operation: "promote"})
	}
	return nil
}

// promote moves staging to dest in one operation. When rename fails
// (e.g. staging and dest are on different filesystems) it falls back to
// a recursive copy.
func promote(staging, dest string) *refusal.Envelope {
	if parent := filepath.Dir(dest); parent != "." {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return refusal.IO(parent, "create_dir", err)
		}
	}

	// dest may exist as an empty directory; rename needs it gone.
	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return refusal.IO(dest, "replace_empty_dir", err)
	}

	if err := os.Rename(staging, dest); err == nil {
		return nil
	}

	if err := copyTree(staging, dest); err != nil {
		_ = os.RemoveAll(dest)
		return refusal.IO(dest, "promote", err)
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}

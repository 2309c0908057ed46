// Package collect enumerates seal inputs into a safe, deduplicated,
// sorted candidate set. The sort order established here is the
// canonical member order used in the manifest and everywhere
// downstream.
package collect

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/epistemic-tools/pack/pkg/manifest"
	"github.com/epistemic-tools/pack/pkg/refusal"
)

// Candidate is one file selected for pack inclusion.
type Candidate struct {
	// Source is the file's location on the local filesystem.
	Source string
	// MemberPath is its normalized path within the pack.
	MemberPath string
}

// Collector accumulates candidates with collision detection.
type Collector struct {
	files map[string]Candidate
}

// New creates an empty collector.
func New() *Collector {
	return &Collector{files: make(map[string]Candidate)}
}

// Collect enumerates all inputs. A file input contributes one candidate
// named by its base filename; a directory input contributes every
// regular file beneath it, named <dir-basename>/<relative-path>.
// Returns a refusal on unreadable or non-regular sources (E_IO) and on
// member path collisions, including collisions with the reserved
// manifest filename (E_DUPLICATE).
func (c *Collector) Collect(inputs []string) *refusal.Envelope {
	for _, input := range inputs {
		if env := c.collectInput(input); env != nil {
			return env
		}
	}
	return nil
}

// Candidates returns the collected set sorted bytewise ascending by
// member path.
func (c *Collector) Candidates() []Candidate {
	out := make([]Candidate, 0, len(c.files))
	for _, cand := range c.files {
		out = append(out, cand)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberPath < out[j].MemberPath })
	return out
}

// Empty reports whether nothing was collected.
func (c *Collector) Empty() bool {
	return len(c.files) == 0
}

func (c *Collector) collectInput(input string) *refusal.Envelope {
	info, err := os.Lstat(input)
	if err != nil {
		return refusal.IO(input, "stat", err)
	}

	switch {
	case info.Mode().IsRegular():
		member, err := NormalizeMemberPath(filepath.Base(input))
		if err != nil {
			return refusal.IO(input, "path_normalization", err)
		}
		return c.add(input, member)
	case info.IsDir():
		return c.collectDirectory(input)
	default:
		// Symlink, socket, device, FIFO.
		return refusal.IO(input, "file_type_check", errNonRegular(info))
	}
}

func (c *Collector) collectDirectory(dir string) *refusal.Envelope {
	base := filepath.Base(filepath.Clean(dir))

	var envStop *refusal.Envelope
	walkErr := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			envStop = refusal.IO(path, "read_dir", err)
			return fs.SkipAll
		}
		if path == dir {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			envStop = refusal.IO(path, "stat", err)
			return fs.SkipAll
		}

		if d.IsDir() {
			return nil
		}
		if !info.Mode().IsRegular() {
			envStop = refusal.IO(path, "file_type_check", errNonRegular(info))
			return fs.SkipAll
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			envStop = refusal.IO(path, "path_normalization", err)
			return fs.SkipAll
		}
		member, err := NormalizeMemberPath(memberPathFor(base, filepath.ToSlash(rel)))
		if err != nil {
			envStop = refusal.IO(path, "path_normalization", err)
			return fs.SkipAll
		}
		if env := c.add(path, member); env != nil {
			envStop = env
			return fs.SkipAll
		}
		return nil
	})

	if envStop != nil {
		return envStop
	}
	if walkErr != nil {
		return refusal.IO(dir, "read_dir", walkErr)
	}
	return nil
}

func (c *Collector) add(source, memberPath string) *refusal.Envelope {
	if memberPath == manifest.Filename {
		return refusal.Duplicate(memberPath, []string{source, "reserved manifest filename"})
	}
	if existing, ok := c.files[memberPath]; ok {
		return refusal.Duplicate(memberPath, []string{existing.Source, source})
	}
	c.files[memberPath] = Candidate{Source: source, MemberPath: memberPath}
	return nil
}

type nonRegularError string

func (e nonRegularError) Error() string { return string(e) }

func errNonRegular(info os.FileInfo) error {
	kind := "special file (socket/device/fifo)"
	if info.Mode()&os.ModeSymlink != 0 {
		kind = "symbolic link"
	}
	return nonRegularError("non-regular source not supported: " + kind)
}

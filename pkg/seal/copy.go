package seal

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/epistemic-tools/pack/pkg/canonicalize"
	"github.com/epistemic-tools/pack/pkg/collect"
)

// copiedMember is one member landed in staging with its content hash.
type copiedMember struct {
	memberPath string
	bytesHash  string
	size       int64
}

// copyError names the source that failed so the refusal can point at it.
type copyError struct {
	source    string
	operation string
	err       error
}

func (e *copyError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.operation, e.source, e.err)
}

// copyMembers copies every candidate into staging at its member path
// and hashes the copied bytes. Copies run in parallel; the result slice
// is indexed by the candidates' canonical order, so scheduling never
// affects member order.
func copyMembers(candidates []collect.Candidate, stagingDir string) ([]copiedMember, *copyError) {
	results := make([]copiedMember, len(candidates))

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, cand := range candidates {
		g.Go(func() error {
			copied, err := copyOne(cand, stagingDir)
			if err != nil {
				return err
			}
			results[i] = copied
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		var ce *copyError
		if !errors.As(err, &ce) {
			ce = &copyError{source: stagingDir, operation: "copy", err: err}
		}
		return nil, ce
	}
	return results, nil
}

func copyOne(cand collect.Candidate, stagingDir string) (copiedMember, error) {
	dest := filepath.Join(stagingDir, filepath.FromSlash(cand.MemberPath))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return copiedMember{}, &copyError{source: cand.Source, operation: "mkdir", err: err}
	}

	src, err := os.Open(cand.Source)
	if err != nil {
		return copiedMember{}, &copyError{source: cand.Source, operation: "read", err: err}
	}
	defer src.Close()

	dst, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return copiedMember{}, &copyError{source: cand.Source, operation: "write", err: err}
	}
	defer dst.Close()

	// Hash the bytes actually written to staging, not the source.
	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(dst, h), src)
	if err != nil {
		return copiedMember{}, &copyError{source: cand.Source, operation: "copy", err: err}
	}
	if err := dst.Close(); err != nil {
		return copiedMember{}, &copyError{source: cand.Source, operation: "write", err: err}
	}

	return copiedMember{
		memberPath: cand.MemberPath,
		bytesHash:  canonicalize.HashPrefix + hex.EncodeToString(h.Sum(nil)),
		size:       size,
	}, nil
}

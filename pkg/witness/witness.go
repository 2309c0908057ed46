// Package witness implements the append-only outcome ledger. Every
// seal/verify/diff invocation appends one witness.v0 record; appends
// are best-effort and must never change the outcome of the command
// that produced them.
package witness

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Record is one witness.v0 ledger entry.
type Record struct {
	ID        string  `json:"id"`
	Version   string  `json:"version"`
	Tool      string  `json:"tool"`
	Command   string  `json:"command"`
	Outcome   string  `json:"outcome"`
	PackID    *string `json:"pack_id"`
	Timestamp string  `json:"timestamp"`
}

// NewRecord creates a record for a command outcome. packID may be
// empty when the operation produced none.
func NewRecord(command, outcome, packID string) Record {
	rec := Record{
		ID:        uuid.New().String(),
		Version:   "witness.v0",
		Tool:      "pack",
		Command:   command,
		Outcome:   outcome,
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
	if packID != "" {
		rec.PackID = &packID
	}
	return rec
}

// Recorder is the outcome sink consumed by command handlers.
type Recorder interface {
	Record(command, outcome, packID string) error
}

// FileLedger is a JSONL witness ledger on the local filesystem.
type FileLedger struct {
	Path string
}

// NewFileLedger creates a ledger at path. The file and its parent
// directory are created on first append.
func NewFileLedger(path string) *FileLedger {
	return &FileLedger{Path: path}
}

// Record appends a new witness entry for a command outcome.
func (l *FileLedger) Record(command, outcome, packID string) error {
	return l.Append(NewRecord(command, outcome, packID))
}

// Append writes one record as a JSON line.
func (l *FileLedger) Append(rec Record) error {
	if dir := filepath.Dir(l.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("witness: create ledger directory: %w", err)
		}
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("witness: serialize record: %w", err)
	}

	f, err := os.OpenFile(l.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("witness: open ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("witness: write record: %w", err)
	}
	return nil
}

// Records reads the full ledger, keeping only well-formed entries from
// this tool. A missing ledger yields an empty slice.
func (l *FileLedger) Records() ([]Record, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("witness: open ledger: %w", err)
	}
	defer f.Close()

	var out []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if rec.Tool != "pack" {
			continue
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("witness: read ledger: %w", err)
	}
	return out, nil
}

// Last returns the most recent record, or nil when the ledger is empty.
func (l *FileLedger) Last() (*Record, error) {
	records, err := l.Records()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[len(records)-1], nil
}

// Count returns the number of records in the ledger.
func (l *FileLedger) Count() (int, error) {
	records, err := l.Records()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Discard is a Recorder that records nothing, used for --no-witness.
type Discard struct{}

func (Discard) Record(string, string, string) error { return nil }

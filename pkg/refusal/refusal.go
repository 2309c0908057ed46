// Package refusal defines the terminal-failure model for pack
// operations. A refusal means the operation could not even be
// attempted; it is distinct from verification findings, which report a
// completed but non-conforming pack.
package refusal

import (
	"encoding/json"
	"fmt"
)

// Code identifies the class of refusal.
type Code string

const (
	// CodeEmpty - no artifacts provided to seal.
	CodeEmpty Code = "E_EMPTY"
	// CodeIO - cannot read input, write output, or read the pack directory.
	CodeIO Code = "E_IO"
	// CodeDuplicate - member path collision during seal.
	CodeDuplicate Code = "E_DUPLICATE"
	// CodeBadPack - missing or invalid manifest for verify/diff.
	CodeBadPack Code = "E_BAD_PACK"
)

// Message returns the human-readable summary for the code.
func (c Code) Message() string {
	switch c {
	case CodeEmpty:
		return "No artifacts provided to seal"
	case CodeIO:
		return "IO operation failed"
	case CodeDuplicate:
		return "Resolved member path collision"
	case CodeBadPack:
		return "Invalid pack directory"
	default:
		return string(c)
	}
}

// NextCommand returns a suggested follow-up action, if any.
func (c Code) NextCommand() string {
	switch c {
	case CodeEmpty:
		return "Provide files/directories to seal"
	case CodeIO:
		return "Check paths/permissions"
	case CodeDuplicate:
		return "Rename inputs or adjust source layout"
	case CodeBadPack:
		return "Recreate pack via `pack seal`"
	default:
		return ""
	}
}

// Detail carries the contextual payload of a refusal. Only the fields
// relevant to the code are populated.
type Detail struct {
	Path      string   `json:"path,omitempty"`
	Sources   []string `json:"sources,omitempty"`
	Operation string   `json:"operation,omitempty"`
	Error     string   `json:"error,omitempty"`
	Expected  string   `json:"expected,omitempty"`
	PackDir   string   `json:"pack_dir,omitempty"`
	Issue     string   `json:"issue,omitempty"`
}

// Info is the refusal block inside an Envelope.
type Info struct {
	Code        Code    `json:"code"`
	Message     string  `json:"message"`
	Detail      *Detail `json:"detail,omitempty"`
	NextCommand string  `json:"next_command,omitempty"`
}

// Envelope is the complete refusal output for any command.
type Envelope struct {
	Version string `json:"version"`
	Outcome string `json:"outcome"`
	Refusal Info   `json:"refusal"`
}

// New builds an envelope for code with an optional message override and
// detail payload.
func New(code Code, message string, detail *Detail) *Envelope {
	if message == "" {
		message = code.Message()
	}
	return &Envelope{
		Version: "pack.v0",
		Outcome: "REFUSAL",
		Refusal: Info{
			Code:        code,
			Message:     message,
			Detail:      detail,
			NextCommand: code.NextCommand(),
		},
	}
}

// Empty builds the refusal for a seal invocation with no inputs.
func Empty() *Envelope {
	return New(CodeEmpty, "", &Detail{Expected: "files or directories"})
}

// IO builds an E_IO refusal naming the offending path and operation.
func IO(path, operation string, err error) *Envelope {
	d := &Detail{Path: path, Operation: operation}
	if err != nil {
		d.Error = err.Error()
	}
	return New(CodeIO, fmt.Sprintf("IO operation %q failed on %s", operation, path), d)
}

// Duplicate builds an E_DUPLICATE refusal for a member path collision.
func Duplicate(memberPath string, sources []string) *Envelope {
	return New(CodeDuplicate,
		fmt.Sprintf("Duplicate member path %q", memberPath),
		&Detail{Path: memberPath, Sources: sources})
}

// BadPack builds an E_BAD_PACK refusal for verify/diff.
func BadPack(packDir, issue string) *Envelope {
	return New(CodeBadPack,
		fmt.Sprintf("Invalid pack directory %s: %s", packDir, issue),
		&Detail{PackDir: packDir, Issue: issue})
}

// Error implements the error interface so pipelines can return an
// Envelope through error-shaped plumbing.
func (e *Envelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Refusal.Code, e.Refusal.Message)
}

// JSON renders the envelope as indented JSON.
func (e *Envelope) JSON() string {
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		// The envelope contains only plain strings; this cannot happen.
		return fmt.Sprintf(`{"version":"pack.v0","outcome":"REFUSAL","refusal":{"code":%q}}`, e.Refusal.Code)
	}
	return string(b)
}

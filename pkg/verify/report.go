package verify

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/epistemic-tools/pack/pkg/refusal"
)

// Outcome of a verification run.
type Outcome string

const (
	OutcomeOK      Outcome = "OK"
	OutcomeInvalid Outcome = "INVALID"
	OutcomeRefusal Outcome = "REFUSAL"
)

// Finding codes, in pipeline order.
const (
	CodeMemberCountMismatch = "MEMBER_COUNT_MISMATCH"
	CodeDuplicateMemberPath = "DUPLICATE_MEMBER_PATH"
	CodeReservedMemberPath  = "RESERVED_MEMBER_PATH"
	CodeUnsafeMemberPath    = "UNSAFE_MEMBER_PATH"
	CodeMissingMember       = "MISSING_MEMBER"
	CodeNonRegularMember    = "NON_REGULAR_MEMBER"
	CodeHashMismatch        = "HASH_MISMATCH"
	CodeExtraMember         = "EXTRA_MEMBER"
	CodePackIDMismatch      = "PACK_ID_MISMATCH"
	CodeSchemaViolation     = "SCHEMA_VIOLATION"
)

// Checks records which pipeline stages passed. Every stage always runs
// (except after a manifest refusal); a false value means the stage
// produced at least one finding.
type Checks struct {
	ManifestParse    bool   `json:"manifest_parse"`
	MemberCount      bool   `json:"member_count"`
	MemberPaths      bool   `json:"member_paths"`
	MemberHashes     bool   `json:"member_hashes"`
	ExtraMembers     bool   `json:"extra_members"`
	PackID           bool   `json:"pack_id"`
	SchemaValidation string `json:"schema_validation"`
}

// Finding is one integrity or schema defect.
type Finding struct {
	Code     string `json:"code"`
	Path     string `json:"path,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// ReportRefusal is the refusal block inside a verify report.
type ReportRefusal struct {
	Code    refusal.Code `json:"code"`
	Message string       `json:"message"`
}

// Report is the pack.verify.v0 output document.
type Report struct {
	Version string         `json:"version"`
	Outcome Outcome        `json:"outcome"`
	PackID  *string        `json:"pack_id,omitempty"`
	Checks  Checks         `json:"checks"`
	Invalid []Finding      `json:"invalid"`
	Refusal *ReportRefusal `json:"refusal,omitempty"`
}

const reportVersion = "pack.verify.v0"

func okReport(packID string, checks Checks) *Report {
	return &Report{
		Version: reportVersion,
		Outcome: OutcomeOK,
		PackID:  &packID,
		Checks:  checks,
		Invalid: []Finding{},
	}
}

func invalidReport(packID string, checks Checks, findings []Finding) *Report {
	return &Report{
		Version: reportVersion,
		Outcome: OutcomeInvalid,
		PackID:  &packID,
		Checks:  checks,
		Invalid: findings,
	}
}

func refusalReport(code refusal.Code, message string) *Report {
	return &Report{
		Version: reportVersion,
		Outcome: OutcomeRefusal,
		Checks:  Checks{SchemaValidation: "skipped"},
		Invalid: []Finding{},
		Refusal: &ReportRefusal{Code: code, Message: message},
	}
}

// JSON renders the report as indented JSON.
func (r *Report) JSON() string {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"version":%q,"outcome":"REFUSAL"}`, reportVersion)
	}
	return string(b)
}

// Human renders the report for terminal consumption.
func (r *Report) Human() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("pack verify: %s", r.Outcome))
	if r.PackID != nil {
		lines = append(lines, fmt.Sprintf("  pack_id: %s", *r.PackID))
	}
	if len(r.Invalid) > 0 {
		lines = append(lines, "  findings:")
		for _, f := range r.Invalid {
			entry := fmt.Sprintf("    - %s", f.Code)
			if f.Path != "" {
				entry += fmt.Sprintf(" path=%s", f.Path)
			}
			if f.Expected != "" {
				entry += fmt.Sprintf(" expected=%s", f.Expected)
			}
			if f.Actual != "" {
				entry += fmt.Sprintf(" actual=%s", f.Actual)
			}
			lines = append(lines, entry)
		}
	}
	if r.Refusal != nil {
		lines = append(lines, fmt.Sprintf("  refusal: %s: %s", r.Refusal.Code, r.Refusal.Message))
	}
	return strings.Join(lines, "\n")
}

// ExitCode maps the outcome to the process exit code.
func (r *Report) ExitCode() int {
	switch r.Outcome {
	case OutcomeOK:
		return 0
	case OutcomeInvalid:
		return 1
	default:
		return 2
	}
}

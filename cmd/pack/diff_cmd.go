package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/epistemic-tools/pack/pkg/diff"
	"github.com/epistemic-tools/pack/pkg/manifest"
	"github.com/epistemic-tools/pack/pkg/version"
)

// runDiffCmd implements `pack diff`.
//
// Exit codes:
//
//	0 = no changes
//	1 = changes
//	2 = refusal (either side unreadable)
func runDiffCmd(env *cmdEnv, args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("diff", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var jsonOutput bool
	cmd.BoolVar(&jsonOutput, "json", false, "Output report as JSON")

	if err := cmd.Parse(args); err != nil {
		return exitRefusal
	}
	if cmd.NArg() != 2 {
		_, _ = fmt.Fprintln(stderr, "Usage: pack diff <pack-a> <pack-b> [--json]")
		return exitRefusal
	}

	a, envlp := diff.ReadManifest(cmd.Arg(0), "A")
	if envlp != nil {
		env.witnessOutcome("diff", "REFUSAL", "")
		_, _ = fmt.Fprintln(stdout, envlp.JSON())
		return exitRefusal
	}
	b, envlp := diff.ReadManifest(cmd.Arg(1), "B")
	if envlp != nil {
		env.witnessOutcome("diff", "REFUSAL", "")
		_, _ = fmt.Fprintln(stdout, envlp.JSON())
		return exitRefusal
	}

	warnToolVersion(env, a, cmd.Arg(0))
	warnToolVersion(env, b, cmd.Arg(1))

	report := diff.Compare(a, b)
	env.witnessOutcome("diff", report.Outcome, "")

	if jsonOutput {
		data, err := report.JSON()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "pack: %v\n", err)
			return exitRefusal
		}
		_, _ = fmt.Fprintln(stdout, string(data))
	} else {
		_, _ = fmt.Fprintln(stdout, report.Human())
	}
	return report.ExitCode()
}

// warnToolVersion flags packs sealed by a different major tool version;
// hash semantics are stable within a major.
func warnToolVersion(env *cmdEnv, m *manifest.Manifest, dir string) {
	if !version.SameMajor(m.ToolVersion) {
		env.logger.Warn("pack sealed by a different major tool version",
			"pack_dir", dir, "sealed_with", m.ToolVersion, "current", version.Tool())
	}
}

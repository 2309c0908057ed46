package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/epistemic-tools/pack/pkg/verify"
)

// runVerifyCmd implements `pack verify`.
//
// Exit codes:
//
//	0 = pack is intact
//	1 = invalid (findings reported)
//	2 = refusal (no readable manifest)
func runVerifyCmd(env *cmdEnv, args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var jsonOutput bool
	cmd.BoolVar(&jsonOutput, "json", false, "Output report as JSON")

	if err := cmd.Parse(args); err != nil {
		return exitRefusal
	}
	if cmd.NArg() != 1 {
		_, _ = fmt.Fprintln(stderr, "Usage: pack verify <pack-dir> [--json]")
		return exitRefusal
	}

	report := verify.Verify(cmd.Arg(0), verify.Options{Logger: env.logger})

	packID := ""
	if report.PackID != nil {
		packID = *report.PackID
	}
	env.witnessOutcome("verify", string(report.Outcome), packID)

	if jsonOutput {
		_, _ = fmt.Fprintln(stdout, report.JSON())
	} else {
		_, _ = fmt.Fprintln(stdout, report.Human())
	}
	return report.ExitCode()
}

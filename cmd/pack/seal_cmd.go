package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/epistemic-tools/pack/pkg/seal"
)

// runSealCmd implements `pack seal`.
//
// Exit codes:
//
//	0 = pack created
//	2 = refusal
func runSealCmd(env *cmdEnv, args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("seal", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		output  string
		note    string
		created string
	)

	cmd.StringVar(&output, "output", "", "Output directory (default: pack/<pack_id>/)")
	cmd.StringVar(&note, "note", "", "Optional annotation in manifest")
	cmd.StringVar(&created, "created", "", "Manifest creation timestamp, RFC 3339 (default: now)")

	if err := cmd.Parse(args); err != nil {
		return exitRefusal
	}

	if created == "" {
		created = env.cfg.CreatedAt
	}

	result, envlp := seal.Seal(seal.Options{
		Inputs:  cmd.Args(),
		Output:  output,
		Note:    note,
		Created: created,
		Logger:  env.logger,
	})
	if envlp != nil {
		env.witnessOutcome("seal", "REFUSAL", "")
		_, _ = fmt.Fprintln(stdout, envlp.JSON())
		return exitRefusal
	}

	env.witnessOutcome("seal", "PACK_CREATED", result.PackID)
	_, _ = fmt.Fprintf(stdout, "PACK_CREATED %s\n", result.PackID)
	_, _ = fmt.Fprintln(stdout, result.OutputDir)
	return exitSuccess
}

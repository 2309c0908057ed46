package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/epistemic-tools/pack/pkg/witness"
)

// runWitnessCmd implements `pack witness query|last|count`. Ledger
// queries are read-only and are themselves never witnessed.
func runWitnessCmd(env *cmdEnv, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stderr, "Usage: pack witness <query|last|count> [--json]")
		return exitRefusal
	}

	cmd := flag.NewFlagSet("witness "+args[0], flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var jsonOutput bool
	cmd.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	if err := cmd.Parse(args[1:]); err != nil {
		return exitRefusal
	}

	switch args[0] {
	case "query":
		return witnessQuery(env.ledger, jsonOutput, stdout, stderr)
	case "last":
		return witnessLast(env.ledger, jsonOutput, stdout, stderr)
	case "count":
		return witnessCount(env.ledger, jsonOutput, stdout, stderr)
	default:
		_, _ = fmt.Fprintf(stderr, "pack witness: unknown subcommand %q\n", args[0])
		return exitRefusal
	}
}

func witnessQuery(ledger *witness.FileLedger, jsonOutput bool, stdout, stderr io.Writer) int {
	records, err := ledger.Records()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "pack witness: %v\n", err)
		return exitRefusal
	}

	if len(records) == 0 {
		if jsonOutput {
			_, _ = fmt.Fprintln(stdout, "[]")
		} else {
			_, _ = fmt.Fprintln(stdout, "No witness records found.")
		}
		return exitSuccess
	}

	if jsonOutput {
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "pack witness: %v\n", err)
			return exitRefusal
		}
		_, _ = fmt.Fprintln(stdout, string(data))
		return exitSuccess
	}
	for _, rec := range records {
		_, _ = fmt.Fprintln(stdout, formatRecord(rec))
	}
	return exitSuccess
}

func witnessLast(ledger *witness.FileLedger, jsonOutput bool, stdout, stderr io.Writer) int {
	rec, err := ledger.Last()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "pack witness: %v\n", err)
		return exitRefusal
	}

	if rec == nil {
		if jsonOutput {
			_, _ = fmt.Fprintln(stdout, "null")
		} else {
			_, _ = fmt.Fprintln(stdout, "No witness records found.")
		}
		return exitSuccess
	}

	if jsonOutput {
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "pack witness: %v\n", err)
			return exitRefusal
		}
		_, _ = fmt.Fprintln(stdout, string(data))
		return exitSuccess
	}
	_, _ = fmt.Fprintln(stdout, formatRecord(*rec))
	return exitSuccess
}

func witnessCount(ledger *witness.FileLedger, jsonOutput bool, stdout, stderr io.Writer) int {
	count, err := ledger.Count()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "pack witness: %v\n", err)
		return exitRefusal
	}

	if jsonOutput {
		_, _ = fmt.Fprintf(stdout, "{\"count\": %d}\n", count)
	} else {
		_, _ = fmt.Fprintf(stdout, "%d witness record(s)\n", count)
	}
	return exitSuccess
}

func formatRecord(r witness.Record) string {
	packID := "-"
	if r.PackID != nil {
		packID = *r.PackID
	}
	return fmt.Sprintf("%s %s %s %s", r.Timestamp, r.Command, r.Outcome, packID)
}

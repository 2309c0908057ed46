// Command pack seals artifacts into immutable, self-verifiable
// evidence pack directories and verifies them.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/epistemic-tools/pack/pkg/config"
	"github.com/epistemic-tools/pack/pkg/manifest"
	"github.com/epistemic-tools/pack/pkg/operator"
	"github.com/epistemic-tools/pack/pkg/version"
	"github.com/epistemic-tools/pack/pkg/witness"
)

const (
	exitSuccess = 0
	exitInvalid = 1
	exitRefusal = 2
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// cmdEnv carries the pieces every subcommand needs.
type cmdEnv struct {
	cfg      *config.Config
	logger   *slog.Logger
	recorder witness.Recorder
	ledger   *witness.FileLedger
}

// Run is the entrypoint for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	rest, global := splitGlobalFlags(args[1:])

	// --describe and --schema short-circuit before any input handling.
	if global.describe {
		data, err := operator.Describe().JSON()
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "pack: %v\n", err)
			return exitRefusal
		}
		_, _ = fmt.Fprintln(stdout, string(data))
		return exitSuccess
	}
	if global.schema {
		_, _ = fmt.Fprintln(stdout, manifest.SchemaIndented())
		return exitSuccess
	}
	if global.version {
		_, _ = fmt.Fprintf(stdout, "pack %s\n", version.Tool())
		return exitSuccess
	}

	cfg := config.Load()
	env := &cmdEnv{
		cfg:    cfg,
		logger: newLogger(stderr, cfg.LogLevel),
		ledger: witness.NewFileLedger(cfg.WitnessPath),
	}
	env.recorder = env.ledger
	if global.noWitness {
		env.recorder = witness.Discard{}
	}

	if len(rest) == 0 {
		_, _ = fmt.Fprintln(stderr, "pack: no command provided. Try --help.")
		return exitRefusal
	}

	switch rest[0] {
	case "seal":
		return runSealCmd(env, rest[1:], stdout, stderr)
	case "verify":
		return runVerifyCmd(env, rest[1:], stdout, stderr)
	case "diff":
		return runDiffCmd(env, rest[1:], stdout, stderr)
	case "push":
		_, _ = fmt.Fprintln(stderr, "pack push: deferred in v0.1")
		return exitRefusal
	case "pull":
		_, _ = fmt.Fprintln(stderr, "pack pull: deferred in v0.1")
		return exitRefusal
	case "witness":
		return runWitnessCmd(env, rest[1:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return exitSuccess
	default:
		_, _ = fmt.Fprintf(stderr, "pack: unknown command %q. Try --help.\n", rest[0])
		return exitRefusal
	}
}

type globalFlags struct {
	describe  bool
	schema    bool
	version   bool
	noWitness bool
}

// splitGlobalFlags extracts the global flags, which may appear anywhere
// on the command line, and returns the remaining arguments in order.
func splitGlobalFlags(args []string) ([]string, globalFlags) {
	var rest []string
	var global globalFlags
	for _, arg := range args {
		switch arg {
		case "--describe":
			global.describe = true
		case "--schema":
			global.schema = true
		case "--version":
			global.version = true
		case "--no-witness":
			global.noWitness = true
		default:
			rest = append(rest, arg)
		}
	}
	return rest, global
}

func newLogger(stderr io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "INFO":
		lvl = slog.LevelInfo
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl}))
}

// witnessOutcome appends a ledger record, demoting failures to a log
// warning so the command outcome is never affected.
func (e *cmdEnv) witnessOutcome(command, outcome, packID string) {
	if err := e.recorder.Record(command, outcome, packID); err != nil {
		e.logger.Warn("witness append failed", "command", command, "error", err)
	}
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, `pack — seal artifacts into an immutable, self-verifiable evidence pack.

Usage:
  pack seal <artifact>... [--output DIR] [--note TEXT] [--created RFC3339]
  pack verify <pack-dir> [--json]
  pack diff <pack-a> <pack-b> [--json]
  pack witness <query|last|count> [--json]
  pack push <pack-dir>          (deferred)
  pack pull <pack-id> --out DIR (deferred)

Global flags:
  --describe    print the operator.v0 self-description and exit
  --schema      print the pack.v0 JSON Schema and exit
  --version     print the tool version and exit
  --no-witness  suppress witness ledger recording`)
}

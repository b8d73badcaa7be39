package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/logicrun/internal/config"
	"github.com/roach88/logicrun/internal/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	TasksDir     string
	RegistryPath string
	DBPath       string
	Exclude      []string
	Algorithm    string

	// RunIDs overrides the run ID generator (for testing).
	// If nil, defaults to engine.UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the logicrun CLI.
// Flag defaults come from the environment (see internal/config).
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cfg := config.Load()

	cmd := &cobra.Command{
		Use:   "logicrun [flags] [--] <log_id> <expression>",
		Short: "logicrun - verified boolean task orchestration",
		Long: `Run task units chosen by a boolean expression.

Every task unit referenced by the expression is verified against its
registered fingerprint before anything runs. The expression is then
evaluated left to right and its result becomes the exit code:
0 when true, 1 when false or when parsing or verification fails,
2 for command errors.

Stderr carries integers only: the status of every task as it completes,
then the final exit code. Everything else goes to stdout.

The log ID is opaque. Callers that do not control it must put "--" before
it: a log ID that names a subcommand (parse, history, registry, fingerprint,
help, completion) or starts with "-" is otherwise read as that subcommand or
as a flag.

` + expressionHelp + `

Examples:
  logicrun -- job-42 "(A)"
  logicrun --tasks-dir ./tasks -- -7 "(A)"
  logicrun job-42 "|| [ && [ (A:hello,world), (B) ], && [ (C:test), (D), (E:2,4) ] ]"
  logicrun --tasks-dir ./tasks --registry registry.yaml job-42 "! (A)"`,
		Args:          validateRunArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			setupLogging(cmd.OutOrStdout(), opts)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDriver(cmd, opts, args[0], args[1])
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.TasksDir, "tasks-dir", cfg.TasksDir,
		"directory holding one sub-directory per task unit (env "+config.EnvTasksDir+")")
	cmd.PersistentFlags().StringVar(&opts.RegistryPath, "registry", cfg.RegistryPath,
		"YAML or CUE fingerprint registry file (env "+config.EnvRegistry+")")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", cfg.DBPath,
		"SQLite database for the registry table and run history (env "+config.EnvDB+")")
	cmd.PersistentFlags().StringSliceVar(&opts.Exclude, "exclude", cfg.Exclude,
		"directory names left out of fingerprints (env "+config.EnvExclude+")")
	cmd.PersistentFlags().StringVar(&opts.Algorithm, "algorithm", cfg.Algorithm,
		"fingerprint algorithm, md5 or sha256 (env "+config.EnvAlgorithm+")")

	cmd.AddCommand(NewFingerprintCommand(opts))
	cmd.AddCommand(NewParseCommand(opts))
	cmd.AddCommand(NewRegistryCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// validateRunArgs requires exactly a log ID and an expression.
func validateRunArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		return NewExitError(ExitFailure,
			fmt.Sprintf("expected <log_id> <expression>, got %d argument(s)\n\n%s", len(args), expressionHelp))
	}
	return nil
}

// usageArgs marks argument count errors of subcommands as command errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return WrapExitError(ExitCommandError, "usage: "+cmd.UseLine(), err)
		}
		return nil
	}
}

// setupLogging installs the default slog handler on w.
// Stderr is never used: it belongs to the diagnostic channel.
func setupLogging(w io.Writer, opts *RootOptions) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(w, handlerOpts)
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}
	slog.SetDefault(slog.New(handler))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// Execute runs the CLI with args and returns the process exit code.
//
// Failures a command did not report itself are printed to stdout (text or
// JSON per --format) and their exit code is written to stderr.
func Execute(args []string, stdout, stderr io.Writer) int {
	opts := &RootOptions{}
	cmd := newRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	code := GetExitCode(err)
	if err != nil && !isReported(err) {
		f := &OutputFormatter{Format: opts.Format, Writer: stdout, Verbose: opts.Verbose}
		if !isValidFormat(f.Format) {
			f.Format = "text"
		}
		f.Error(errorCode(code), err.Error(), nil)
		fmt.Fprintf(stderr, "%d\n", code)
	}
	return code
}

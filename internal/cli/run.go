package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/logicrun/internal/engine"
	"github.com/roach88/logicrun/internal/expr"
	"github.com/roach88/logicrun/internal/invoker"
)

const expressionHelp = expr.Usage

// RunResult is the structured summary of a run.
type RunResult struct {
	LogID       string           `json:"log_id"`
	RunID       string           `json:"run_id"`
	Expression  string           `json:"expression,omitempty"`
	Result      bool             `json:"result"`
	ExitCode    int              `json:"exit_code"`
	Invocations []InvocationJSON `json:"invocations"`
	Error       string           `json:"error,omitempty"`

	// VerificationCode is set when pre-flight verification stopped the run.
	VerificationCode string `json:"verification_code,omitempty"`
}

// InvocationJSON is one task invocation in structured output.
type InvocationJSON struct {
	Seq    int64    `json:"seq"`
	Task   string   `json:"task"`
	Args   []string `json:"args"`
	Status int      `json:"status"`
}

func (r RunResult) String() string {
	return fmt.Sprintf("Result: %t\nExit code: %d", r.Result, r.ExitCode)
}

// runDriver executes one expression: verify, evaluate, report.
func runDriver(cmd *cobra.Command, opts *RootOptions, logID, expression string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fp, err := opts.fingerprinter()
	if err != nil {
		return err
	}
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	reg, source, err := opts.loadRegistry(ctx, st)
	if err != nil {
		return err
	}
	slog.Debug("registry loaded", "source", source, "entries", reg.Len())

	verifier := &engine.Verifier{
		TasksDir:      opts.TasksDir,
		Registry:      reg,
		Fingerprinter: fp,
		Exclude:       opts.Exclude,
	}
	engineOpts := []engine.Option{engine.WithDiagnostics(cmd.ErrOrStderr())}
	if st != nil {
		engineOpts = append(engineOpts, engine.WithRecorder(st))
	}
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	eng := engine.New(verifier, invoker.New(opts.TasksDir, cmd.OutOrStdout()), engineOpts...)

	out := eng.Run(ctx, logID, expression)

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose, RunID: out.RunID}
	result := RunResult{
		LogID:       logID,
		RunID:       out.RunID,
		Result:      out.Result,
		ExitCode:    out.ExitCode,
		Invocations: []InvocationJSON{},
	}
	if out.Tree != nil {
		result.Expression = out.Tree.String()
	}
	for _, r := range out.Records {
		args := r.Args
		if args == nil {
			args = []string{}
		}
		result.Invocations = append(result.Invocations, InvocationJSON{Seq: r.Seq, Task: r.Task, Args: args, Status: r.Status})
	}

	if out.Err != nil {
		result.Error = out.Err.Error()
		code := CodeFailure
		switch {
		case expr.IsFormatError(out.Err):
			code = CodeFormat
		case expr.IsParseError(out.Err):
			code = CodeParse
		case engine.IsVerificationError(out.Err):
			code = CodeVerification
			vc, _ := engine.VerificationCode(out.Err)
			result.VerificationCode = string(vc)
		}
		f.Error(code, out.Err.Error(), result)
		if expr.IsFormatError(out.Err) && opts.Format != "json" {
			fmt.Fprintln(cmd.OutOrStdout(), expr.Usage)
		}
	} else if err := f.Success(result); err != nil {
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	if out.ExitCode != ExitSuccess {
		return &ExitError{Code: out.ExitCode, Message: "run failed", Err: out.Err, Reported: true}
	}
	return nil
}

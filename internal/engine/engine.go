package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/logicrun/internal/expr"
	"github.com/roach88/logicrun/internal/store"
)

// Exit codes produced by Run.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Recorder persists run history. Implemented by *store.Store.
type Recorder interface {
	StartRun(ctx context.Context, run store.Run) error
	WriteInvocation(ctx context.Context, inv store.Invocation) error
	FinishRun(ctx context.Context, runID string, exitCode int) error
}

// InvocationRecord is the result of one task invocation during a run.
type InvocationRecord struct {
	Seq    int64
	Task   string
	Args   []string
	Status int
}

// Outcome describes a finished run.
type Outcome struct {
	// ExitCode is 0 when the expression evaluated to true, 1 otherwise.
	ExitCode int

	// Result is the boolean value of the expression. False when the run
	// stopped before evaluation.
	Result bool

	RunID string

	// Tree is the parsed expression, nil when parsing failed.
	Tree expr.Node

	// Diagnostics are the recoverable parse problems.
	Diagnostics []expr.Diagnostic

	// Records lists every invocation in call order.
	Records []InvocationRecord

	// Err is the format, parse or verification failure that stopped the
	// run before evaluation.
	Err error
}

// Engine drives one expression from text to exit code:
// parse, verify every referenced task unit, evaluate, map the result.
//
// Evaluation is strictly sequential. Each invocation's status and the final
// exit code are written to the diagnostic writer, one integer per line.
type Engine struct {
	verifier *Verifier
	invoker  expr.Invoker
	recorder Recorder
	diag     io.Writer
	runIDs   RunIDGenerator
	clock    *Clock
}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder stores run history in r.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithDiagnostics sets the writer receiving status codes. Default: io.Discard.
func WithDiagnostics(w io.Writer) Option {
	return func(e *Engine) {
		e.diag = w
	}
}

// WithRunIDGenerator replaces the default UUIDv7 run IDs.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithClock sets the clock stamping invocation records.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine verifying with v and running tasks through inv.
func New(v *Verifier, inv expr.Invoker, opts ...Option) *Engine {
	e := &Engine{
		verifier: v,
		invoker:  inv,
		diag:     io.Discard,
		runIDs:   UUIDv7Generator{},
		clock:    NewClock(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run parses, verifies and evaluates expression. It never panics; a panic
// during evaluation is reported as exit code 1 with Err set.
func (e *Engine) Run(ctx context.Context, logID, expression string) (out Outcome) {
	out.RunID = e.runIDs.Generate()
	out.ExitCode = ExitFailure
	log := slog.With("log_id", logID, "run_id", out.RunID)

	e.record(ctx, log, "start run", func() error {
		return e.recorder.StartRun(ctx, store.Run{ID: out.RunID, LogID: logID, Expression: expression})
	})

	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "run aborted", "panic", r)
			out.ExitCode, out.Result = ExitFailure, false
			out.Err = fmt.Errorf("run aborted: %v", r)
		}
		fmt.Fprintf(e.diag, "%d\n", out.ExitCode)
		e.record(ctx, log, "finish run", func() error {
			return e.recorder.FinishRun(ctx, out.RunID, out.ExitCode)
		})
		log.InfoContext(ctx, "run finished", "result", out.Result, "exit_code", out.ExitCode)
	}()

	log.InfoContext(ctx, "parsing expression", "expression", expression)
	res, err := expr.Parse(expression)
	if err != nil {
		log.ErrorContext(ctx, "invalid expression", "error", err)
		out.Err = err
		return out
	}
	out.Tree = res.Root
	out.Diagnostics = res.Diagnostics
	for _, d := range res.Diagnostics {
		log.WarnContext(ctx, "expression diagnostic", "severity", d.Severity, "pos", d.Pos, "message", d.Message)
	}
	log.InfoContext(ctx, "parsed expression", "tree", res.Root.String())

	if err := e.verifier.VerifyAll(ctx, res.Root); err != nil {
		log.ErrorContext(ctx, "verification failed", "error", err)
		out.Err = err
		return out
	}
	log.InfoContext(ctx, "all task units verified", "tasks", len(expr.Names(res.Root)))

	recording := expr.InvokerFunc(func(ctx context.Context, name string, args []string) int {
		status := e.invoker.Invoke(ctx, name, args)
		rec := InvocationRecord{Seq: e.clock.Next(), Task: name, Args: slices.Clone(args), Status: status}
		out.Records = append(out.Records, rec)
		fmt.Fprintf(e.diag, "%d\n", status)
		log.DebugContext(ctx, "task completed", "task", name, "status", status, "seq", rec.Seq)
		e.record(ctx, log, "write invocation", func() error {
			return e.recorder.WriteInvocation(ctx, store.Invocation{
				RunID:  out.RunID,
				Seq:    rec.Seq,
				Task:   rec.Task,
				Args:   rec.Args,
				Status: rec.Status,
			})
		})
		return status
	})

	out.Result = expr.Evaluate(ctx, res.Root, recording)
	if out.Result {
		out.ExitCode = ExitSuccess
	}
	return out
}

// record runs a history write when a recorder is configured. Failures are
// logged and never change the run's outcome.
func (e *Engine) record(ctx context.Context, log *slog.Logger, what string, fn func() error) {
	if e.recorder == nil {
		return
	}
	if err := fn(); err != nil {
		log.WarnContext(ctx, "run history write failed", "op", what, "error", err)
	}
}

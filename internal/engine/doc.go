// Package engine turns an expression into an exit code.
//
// A run has three phases, always in this order:
//
//  1. Parse: the text becomes an expr.Node tree. A format or parse error
//     ends the run with exit code 1.
//  2. Verify: every distinct task name in the tree, sorted ascending, must
//     have a directory below the tasks dir, a registry entry, and a current
//     fingerprint equal to that entry. The first failure ends the run with
//     exit code 1 and no task has been invoked.
//  3. Evaluate: the tree is evaluated left to right with the configured
//     invoker. True maps to exit code 0, false to 1.
//
// DIAGNOSTIC CHANNEL:
//
// The engine writes integers only, one per line, to its diagnostic writer:
// the status of every invocation as it completes, then the final exit code.
// Human-readable output goes through log/slog.
//
// ORDERING:
//
// Invocation records are stamped by a monotonic logical Clock. Run history
// written through a Recorder is ordered by those seq values, never by
// wall-clock time.
//
// Evaluation is strictly sequential. The engine never runs task units
// concurrently and never retries them.
package engine

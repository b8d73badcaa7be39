package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/logicrun/internal/expr"
	"github.com/roach88/logicrun/internal/store"
)

// HistoryRun is one recorded run in history output.
type HistoryRun struct {
	RunID       string           `json:"run_id"`
	Seq         int64            `json:"seq"`
	Expression  string           `json:"expression"`
	ExitCode    *int             `json:"exit_code"` // nil while unfinished
	Invocations []InvocationJSON `json:"invocations"`
}

// HistoryResult is the output of the history command.
type HistoryResult struct {
	LogID string       `json:"log_id"`
	Runs  []HistoryRun `json:"runs"`
}

func (h HistoryResult) String() string {
	if len(h.Runs) == 0 {
		return fmt.Sprintf("No runs recorded for %s", h.LogID)
	}
	var b strings.Builder
	for i, r := range h.Runs {
		if i > 0 {
			b.WriteByte('\n')
		}
		exit := "running"
		if r.ExitCode != nil {
			exit = fmt.Sprintf("exit %d", *r.ExitCode)
		}
		fmt.Fprintf(&b, "Run %s (#%d, %s): %s", r.RunID, r.Seq, exit, r.Expression)
		for _, inv := range r.Invocations {
			fmt.Fprintf(&b, "\n  [%d] %s", inv.Seq, inv.Task)
			if len(inv.Args) > 0 {
				quoted := make([]string, len(inv.Args))
				for j, a := range inv.Args {
					quoted[j] = expr.QuoteArg(a)
				}
				fmt.Fprintf(&b, ":%s", strings.Join(quoted, ","))
			}
			fmt.Fprintf(&b, " -> %d", inv.Status)
		}
	}
	return b.String()
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "history <log_id>",
		Short: "Show recorded runs for a log ID",
		Long: `List every run recorded in --db under a log ID, oldest first, with the
task invocations of each run in call order.

Examples:
  logicrun --db logicrun.db history job-42
  logicrun --db logicrun.db --format json history job-42`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd, rootOpts, args[0])
		},
	}
}

func runHistory(cmd *cobra.Command, opts *RootOptions, logID string) error {
	st, err := opts.requireStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	ctx := cmd.Context()
	runs, err := st.RunsByLogID(ctx, logID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}

	result := HistoryResult{LogID: logID, Runs: make([]HistoryRun, 0, len(runs))}
	for _, r := range runs {
		invs, err := st.Invocations(ctx, r.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read history", err)
		}
		result.Runs = append(result.Runs, historyRun(r, invs))
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	return f.Success(result)
}

func historyRun(r store.Run, invs []store.Invocation) HistoryRun {
	hr := HistoryRun{
		RunID:       r.ID,
		Seq:         r.Seq,
		Expression:  r.Expression,
		Invocations: make([]InvocationJSON, 0, len(invs)),
	}
	if r.Finished {
		code := r.ExitCode
		hr.ExitCode = &code
	}
	for _, inv := range invs {
		args := inv.Args
		if args == nil {
			args = []string{}
		}
		hr.Invocations = append(hr.Invocations, InvocationJSON{
			Seq:    inv.Seq,
			Task:   inv.Task,
			Args:   args,
			Status: inv.Status,
		})
	}
	return hr
}

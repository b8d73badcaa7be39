package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/logicrun/internal/expr"
)

// ParseOutput is the result of the parse command.
type ParseOutput struct {
	Canonical   string   `json:"canonical"`
	Normalized  string   `json:"normalized"`
	Tasks       []string `json:"tasks"`
	Diagnostics []string `json:"diagnostics"`
}

func (p ParseOutput) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Canonical: %s\n", p.Canonical)
	fmt.Fprintf(&b, "Tasks: %s", strings.Join(p.Tasks, ", "))
	for _, d := range p.Diagnostics {
		fmt.Fprintf(&b, "\n  %s", d)
	}
	return b.String()
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <expression>",
		Short: "Check an expression without running it",
		Long: `Check an expression and print its canonical form.

Nothing is verified or invoked. The exit code is 1 when the expression is
rejected, 0 otherwise.

` + expressionHelp,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, rootOpts, args[0])
		},
	}
}

func runParse(cmd *cobra.Command, opts *RootOptions, text string) error {
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	res, err := expr.Parse(text)
	if err != nil {
		code := CodeParse
		if expr.IsFormatError(err) {
			code = CodeFormat
		}
		f.Error(code, err.Error(), nil)
		if code == CodeFormat && opts.Format != "json" {
			fmt.Fprintln(cmd.OutOrStdout(), expressionHelp)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d\n", ExitFailure)
		return &ExitError{Code: ExitFailure, Message: "invalid expression", Err: err, Reported: true}
	}

	out := ParseOutput{
		Canonical:   res.Root.String(),
		Normalized:  res.Normalized,
		Tasks:       expr.Names(res.Root),
		Diagnostics: make([]string, 0, len(res.Diagnostics)),
	}
	for _, d := range res.Diagnostics {
		out.Diagnostics = append(out.Diagnostics, d.String())
	}
	if out.Tasks == nil {
		out.Tasks = []string{}
	}
	return f.Success(out)
}

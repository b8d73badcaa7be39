package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/logicrun/internal/fingerprint"
	"github.com/roach88/logicrun/internal/registry"
)

// FingerprintResult is the output of the fingerprint command.
type FingerprintResult struct {
	Algorithm    string            `json:"algorithm"`
	Fingerprints map[string]string `json:"fingerprints"`

	// Snippet is the YAML registry document for the fingerprinted tasks.
	Snippet string `json:"-"`
}

func (r FingerprintResult) String() string {
	return strings.TrimRight(r.Snippet, "\n")
}

// NewFingerprintCommand creates the fingerprint command.
func NewFingerprintCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint <task>...",
		Short: "Compute task unit fingerprints",
		Long: `Compute the fingerprint of each named task unit under --tasks-dir.

The output is a registry document that can be saved as a YAML registry file
or loaded with "logicrun registry import".

Examples:
  logicrun fingerprint A B C > registry.yaml
  logicrun fingerprint --algorithm sha256 --format json A`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFingerprint(cmd, rootOpts, args)
		},
	}
}

func runFingerprint(cmd *cobra.Command, opts *RootOptions, names []string) error {
	svc, err := opts.fingerprinter()
	if err != nil {
		return err
	}
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	entries := make(map[string]string, len(names))
	for _, name := range names {
		name = registry.NormalizeName(name)
		dir := filepath.Join(opts.TasksDir, name)

		if opts.Verbose {
			lines, err := svc.Entries(dir, opts.Exclude)
			if err == nil {
				f.VerboseLog("%s:", name)
				for _, line := range lines {
					f.VerboseLog("  %s", line)
				}
			}
		}

		sum, err := svc.Fingerprint(dir, opts.Exclude)
		if errors.Is(err, fingerprint.ErrNoContent) {
			return NewExitError(ExitFailure, fmt.Sprintf("task %q has no content at %s", name, dir))
		}
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("failed to fingerprint task %q", name), err)
		}
		entries[name] = sum
	}

	reg, err := registry.New(entries)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid task names", err)
	}
	snippet, err := reg.EncodeYAML()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode registry", err)
	}

	return f.Success(FingerprintResult{
		Algorithm:    string(svc.Algorithm),
		Fingerprints: reg.Entries(),
		Snippet:      string(snippet),
	})
}

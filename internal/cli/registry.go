package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/logicrun/internal/registry"
)

// RegistryResult is the output of the registry subcommands.
type RegistryResult struct {
	Source       string            `json:"source,omitempty"`
	Imported     int               `json:"imported,omitempty"`
	Fingerprints map[string]string `json:"fingerprints"`

	text string
}

func (r RegistryResult) String() string {
	return r.text
}

// NewRegistryCommand creates the registry command group.
func NewRegistryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Manage the fingerprint registry",
		Long: `Manage the registry of expected task unit fingerprints.

A run reads its registry from --registry when set, otherwise from the
task_fingerprints table of --db. Without either, every task fails
verification.`,
	}
	cmd.AddCommand(newRegistryImportCommand(rootOpts))
	cmd.AddCommand(newRegistryListCommand(rootOpts))
	return cmd
}

func newRegistryImportCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Load a YAML or CUE registry file into the database",
		Long: `Upsert every entry of a registry file into the task_fingerprints table
of --db. Entries for other tasks are left in place.

Examples:
  logicrun --db logicrun.db registry import registry.yaml
  logicrun --db logicrun.db registry import registry.cue`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistryImport(cmd, rootOpts, args[0])
		},
	}
}

func runRegistryImport(cmd *cobra.Command, opts *RootOptions, path string) error {
	st, err := opts.requireStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	reg, err := registry.LoadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load registry", err)
	}
	if err := st.ImportRegistry(cmd.Context(), reg); err != nil {
		return WrapExitError(ExitCommandError, "failed to import registry", err)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	for _, name := range reg.Names() {
		fp, _ := reg.Lookup(name)
		f.VerboseLog("  %s %s", name, fp)
	}
	return f.Success(RegistryResult{
		Source:       path,
		Imported:     reg.Len(),
		Fingerprints: reg.Entries(),
		text:         fmt.Sprintf("Imported %d fingerprint(s) from %s into %s", reg.Len(), path, st.Path()),
	})
}

func newRegistryListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print the effective registry",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRegistryList(cmd, rootOpts)
		},
	}
}

func runRegistryList(cmd *cobra.Command, opts *RootOptions) error {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	reg, source, err := opts.loadRegistry(cmd.Context(), st)
	if err != nil {
		return err
	}
	doc, err := reg.EncodeYAML()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to encode registry", err)
	}

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	f.VerboseLog("# source: %s", source)
	return f.Success(RegistryResult{
		Source:       source,
		Fingerprints: reg.Entries(),
		text:         strings.TrimRight(string(doc), "\n"),
	})
}

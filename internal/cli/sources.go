package cli

import (
	"context"
	"log/slog"

	"github.com/roach88/logicrun/internal/fingerprint"
	"github.com/roach88/logicrun/internal/registry"
	"github.com/roach88/logicrun/internal/store"
)

// fingerprinter builds the fingerprint service selected by --algorithm.
func (o *RootOptions) fingerprinter() (*fingerprint.Service, error) {
	algo, err := fingerprint.ParseAlgorithm(o.Algorithm)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --algorithm", err)
	}
	return fingerprint.New(algo), nil
}

// openStore opens --db. It returns nil without error when no database is set.
func (o *RootOptions) openStore() (*store.Store, error) {
	if o.DBPath == "" {
		return nil, nil
	}
	slog.Debug("opening database", "path", o.DBPath)
	st, err := store.Open(o.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// requireStore is openStore for commands that cannot work without --db.
func (o *RootOptions) requireStore() (*store.Store, error) {
	if o.DBPath == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	return o.openStore()
}

// loadRegistry resolves the effective registry: the --registry file when
// set, otherwise the task_fingerprints table of st, otherwise an empty
// registry that fails every verification.
func (o *RootOptions) loadRegistry(ctx context.Context, st *store.Store) (*registry.Registry, string, error) {
	switch {
	case o.RegistryPath != "":
		reg, err := registry.LoadFile(o.RegistryPath)
		if err != nil {
			return nil, "", WrapExitError(ExitCommandError, "failed to load registry", err)
		}
		return reg, o.RegistryPath, nil
	case st != nil:
		reg, err := st.LoadRegistry(ctx)
		if err != nil {
			return nil, "", WrapExitError(ExitCommandError, "failed to load registry", err)
		}
		return reg, st.Path(), nil
	}
	slog.Warn("no registry configured; every task will fail verification")
	return registry.Empty(), "", nil
}

func closeStore(st *store.Store) {
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

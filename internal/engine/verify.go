package engine

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/logicrun/internal/expr"
	"github.com/roach88/logicrun/internal/fingerprint"
	"github.com/roach88/logicrun/internal/registry"
)

// Fingerprinter computes the digest of a task unit directory.
// Implemented by *fingerprint.Service.
type Fingerprinter interface {
	Fingerprint(root string, exclude []string) (string, error)
}

// Verifier checks every task unit referenced by an expression against the
// registry before anything runs.
type Verifier struct {
	TasksDir      string
	Registry      *registry.Registry
	Fingerprinter Fingerprinter

	// Exclude lists directory names left out of fingerprints.
	Exclude []string
}

// VerifyAll verifies each distinct task name in root, in ascending name
// order, and stops at the first failure. Verification is all-or-nothing: a
// nil return means every task unit exists, is registered and is unchanged.
func (v *Verifier) VerifyAll(ctx context.Context, root expr.Node) error {
	for _, name := range expr.Names(root) {
		if err := v.Verify(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// Verify checks a single task unit.
func (v *Verifier) Verify(ctx context.Context, name string) error {
	dir := filepath.Join(v.TasksDir, name)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return &VerificationError{Code: ErrCodeMissingDirectory, Task: name, Path: dir, Err: err}
	}

	reg := v.Registry
	if reg == nil {
		reg = registry.Empty()
	}
	expected, ok := reg.Lookup(name)
	if !ok {
		return &VerificationError{Code: ErrCodeMissingFingerprint, Task: name, Path: dir}
	}

	actual, err := v.Fingerprinter.Fingerprint(dir, v.Exclude)
	if err != nil && !errors.Is(err, fingerprint.ErrNoContent) {
		return &VerificationError{Code: ErrCodeFingerprintFailed, Task: name, Path: dir, Err: err}
	}
	if actual == "" || !strings.EqualFold(actual, expected) {
		return &VerificationError{
			Code:     ErrCodeFingerprintMismatch,
			Task:     name,
			Path:     dir,
			Expected: expected,
			Actual:   actual,
		}
	}

	slog.DebugContext(ctx, "fingerprint verified", "task", name, "fingerprint", actual)
	return nil
}

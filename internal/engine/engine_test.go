package engine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicrun/internal/expr"
	"github.com/roach88/logicrun/internal/fingerprint"
	"github.com/roach88/logicrun/internal/registry"
	"github.com/roach88/logicrun/internal/store"
	"github.com/roach88/logicrun/internal/testutil"
)

// setupTasks creates a task unit per name and a registry holding their
// current fingerprints.
func setupTasks(t *testing.T, names ...string) (string, *registry.Registry) {
	t.Helper()
	dir := t.TempDir()
	svc := fingerprint.New(fingerprint.AlgorithmMD5)
	entries := make(map[string]string)
	for _, name := range names {
		taskDir := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(taskDir, 0755))
		src := fmt.Sprintf("package main\n\nfunc %s() {}\n", name)
		require.NoError(t, os.WriteFile(filepath.Join(taskDir, name+".go"), []byte(src), 0644))
		fp, err := svc.Fingerprint(taskDir, fingerprint.DefaultExclude)
		require.NoError(t, err)
		entries[name] = fp
	}
	reg, err := registry.New(entries)
	require.NoError(t, err)
	return dir, reg
}

func newVerifier(dir string, reg *registry.Registry) *Verifier {
	return &Verifier{
		TasksDir:      dir,
		Registry:      reg,
		Fingerprinter: fingerprint.New(fingerprint.AlgorithmMD5),
		Exclude:       fingerprint.DefaultExclude,
	}
}

func TestRun_WorkedExamples(t *testing.T) {
	dir, reg := setupTasks(t, "A", "B", "C")

	tests := []struct {
		name      string
		expr      string
		statuses  map[string]int
		wantExit  int
		wantCalls []string
		wantDiag  string
	}{
		{"single atom", "(A)", map[string]int{"A": 0}, 0, []string{"A"}, "0\n0\n"},
		{"short-circuit and", "&& [ (A), (B) ]", map[string]int{"A": 0, "B": 1}, 1, []string{"A", "B"}, "0\n1\n1\n"},
		{"non-short-circuit and", "& [ (A), (B) ]", map[string]int{"A": 0, "B": 1}, 1, []string{"A", "B"}, "0\n1\n1\n"},
		{"short-circuit or", "|| [ (A), (B) ]", map[string]int{"A": 1, "B": 0}, 0, []string{"A", "B"}, "1\n0\n0\n"},
		{"or stops at first true", "|| [ (A), (B), (C) ]", map[string]int{"A": 0}, 0, []string{"A"}, "0\n0\n"},
		{"and stops at first false", "&& [ (A), (B), (C) ]", map[string]int{"A": 3}, 1, []string{"A"}, "3\n1\n"},
		{"not", "! (A)", map[string]int{"A": 1}, 0, []string{"A"}, "1\n0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := testutil.NewRecordingInvoker(tt.statuses)
			var diag bytes.Buffer
			e := New(newVerifier(dir, reg), inv, WithDiagnostics(&diag))

			out := e.Run(context.Background(), "log-1", tt.expr)

			require.NoError(t, out.Err)
			assert.Equal(t, tt.wantExit, out.ExitCode)
			assert.Equal(t, tt.wantExit == 0, out.Result)
			assert.Equal(t, tt.wantCalls, inv.Names())
			assert.Equal(t, tt.wantDiag, diag.String())
		})
	}
}

func TestRun_PreflightIsAllOrNothing(t *testing.T) {
	dir, full := setupTasks(t, "A", "B")
	entries := full.Entries()
	delete(entries, "B")
	partial, err := registry.New(entries)
	require.NoError(t, err)

	inv := testutil.NewRecordingInvoker(map[string]int{"A": 0, "B": 0})
	var diag bytes.Buffer
	out := New(newVerifier(dir, partial), inv, WithDiagnostics(&diag)).
		Run(context.Background(), "log-1", "&& [ (A), (B) ]")

	assert.Equal(t, ExitFailure, out.ExitCode)
	assert.Empty(t, inv.Calls(), "no task may run when verification fails")
	assert.Empty(t, out.Records)
	assert.Equal(t, "1\n", diag.String())

	code, ok := VerificationCode(out.Err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeMissingFingerprint, code)
}

func TestRun_VerificationFailures(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		dir, reg := setupTasks(t, "A")
		out := New(newVerifier(dir, reg), testutil.NewRecordingInvoker(nil)).
			Run(context.Background(), "log", "&& [ (A), (Z) ]")

		var ve *VerificationError
		require.ErrorAs(t, out.Err, &ve)
		assert.Equal(t, ErrCodeMissingDirectory, ve.Code)
		assert.Equal(t, "Z", ve.Task)
		assert.Equal(t, filepath.Join(dir, "Z"), ve.Path)
	})

	t.Run("content changed", func(t *testing.T) {
		dir, reg := setupTasks(t, "A")
		require.NoError(t, os.WriteFile(filepath.Join(dir, "A", "extra.txt"), []byte("drift"), 0644))

		inv := testutil.NewRecordingInvoker(map[string]int{"A": 0})
		out := New(newVerifier(dir, reg), inv).Run(context.Background(), "log", "(A)")

		var ve *VerificationError
		require.ErrorAs(t, out.Err, &ve)
		assert.Equal(t, ErrCodeFingerprintMismatch, ve.Code)
		expected, _ := reg.Lookup("A")
		assert.Equal(t, expected, ve.Expected)
		assert.NotEqual(t, expected, ve.Actual)
		assert.Empty(t, inv.Calls())
	})

	t.Run("empty directory", func(t *testing.T) {
		dir, reg := setupTasks(t, "A")
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "Hollow"), 0755))
		entries := reg.Entries()
		entries["Hollow"] = "d41d8cd98f00b204e9800998ecf8427e"
		reg, err := registry.New(entries)
		require.NoError(t, err)

		out := New(newVerifier(dir, reg), testutil.NewRecordingInvoker(nil)).
			Run(context.Background(), "log", "(Hollow)")

		var ve *VerificationError
		require.ErrorAs(t, out.Err, &ve)
		assert.Equal(t, ErrCodeFingerprintMismatch, ve.Code)
		assert.Empty(t, ve.Actual)
		assert.Contains(t, ve.Error(), "<no content>")
	})

	t.Run("excluded directories are ignored", func(t *testing.T) {
		dir, reg := setupTasks(t, "A")
		require.NoError(t, os.MkdirAll(filepath.Join(dir, "A", "__pycache__"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "A", "__pycache__", "x.pyc"), []byte("x"), 0644))

		out := New(newVerifier(dir, reg), testutil.NewRecordingInvoker(map[string]int{"A": 0})).
			Run(context.Background(), "log", "(A)")
		require.NoError(t, out.Err)
		assert.Equal(t, ExitSuccess, out.ExitCode)
	})
}

func TestVerifyAll_SortedOrder(t *testing.T) {
	dir, _ := setupTasks(t, "A", "B")
	v := newVerifier(dir, registry.Empty())

	err := v.VerifyAll(context.Background(), expr.MustParse("&& [ (B), (A) ]"))

	var ve *VerificationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "A", ve.Task, "names are verified in ascending order")
}

func TestVerify_NilRegistry(t *testing.T) {
	dir, _ := setupTasks(t, "A")
	v := newVerifier(dir, nil)

	code, ok := VerificationCode(v.Verify(context.Background(), "A"))
	require.True(t, ok)
	assert.Equal(t, ErrCodeMissingFingerprint, code)
}

func TestRun_ParseFailures(t *testing.T) {
	dir, reg := setupTasks(t, "A")

	tests := []struct {
		name  string
		expr  string
		check func(error) bool
	}{
		{"format", "&& (A)", expr.IsFormatError},
		{"unbalanced", "&& [ (A)", expr.IsFormatError},
		{"empty name", "( )", expr.IsParseError},
		{"empty", "", expr.IsParseError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := testutil.NewRecordingInvoker(map[string]int{"A": 0})
			var diag bytes.Buffer
			out := New(newVerifier(dir, reg), inv, WithDiagnostics(&diag)).
				Run(context.Background(), "log", tt.expr)

			assert.True(t, tt.check(out.Err), "unexpected error: %v", out.Err)
			assert.Nil(t, out.Tree)
			assert.Equal(t, ExitFailure, out.ExitCode)
			assert.Empty(t, inv.Calls())
			assert.Equal(t, "1\n", diag.String())
		})
	}
}

func TestRun_RecoverableDiagnostics(t *testing.T) {
	dir, reg := setupTasks(t, "A")
	out := New(newVerifier(dir, reg), testutil.NewRecordingInvoker(map[string]int{"A": 0})).
		Run(context.Background(), "log", "(A) (B)")

	require.NoError(t, out.Err)
	assert.Equal(t, ExitSuccess, out.ExitCode)
	require.NotEmpty(t, out.Diagnostics)
	assert.Contains(t, out.Diagnostics[0].Message, "remainder")
}

func TestRun_RecordsInvocations(t *testing.T) {
	dir, reg := setupTasks(t, "E")
	out := New(newVerifier(dir, reg), testutil.NewRecordingInvoker(map[string]int{"E": 0})).
		Run(context.Background(), "log", `& [ (E:2,4), (E:"x,y") ]`)

	assert.Equal(t, []InvocationRecord{
		{Seq: 1, Task: "E", Args: []string{"2", "4"}, Status: 0},
		{Seq: 2, Task: "E", Args: []string{"x,y"}, Status: 0},
	}, out.Records)
}

func TestRun_RecoversFromPanic(t *testing.T) {
	dir, reg := setupTasks(t, "A")
	boom := expr.InvokerFunc(func(context.Context, string, []string) int {
		panic("invoker exploded")
	})
	var diag bytes.Buffer
	out := New(newVerifier(dir, reg), boom, WithDiagnostics(&diag)).
		Run(context.Background(), "log", "(A)")

	assert.Equal(t, ExitFailure, out.ExitCode)
	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "invoker exploded")
	assert.Equal(t, "1\n", diag.String())
}

func TestRun_WritesHistory(t *testing.T) {
	ctx := context.Background()
	dir, reg := setupTasks(t, "A", "B")
	s, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	e := New(newVerifier(dir, reg),
		testutil.NewRecordingInvoker(map[string]int{"A": 0, "B": 2}),
		WithRecorder(s),
		WithRunIDGenerator(testutil.NewFixedRunIDGenerator("run-1")),
	)
	out := e.Run(ctx, "log-7", "& [ (A:x), (B) ]")
	assert.Equal(t, "run-1", out.RunID)

	runs, err := s.RunsByLogID(ctx, "log-7")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "& [ (A:x), (B) ]", runs[0].Expression)
	assert.True(t, runs[0].Finished)
	assert.Equal(t, ExitFailure, runs[0].ExitCode)

	invs, err := s.Invocations(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []store.Invocation{
		{RunID: "run-1", Seq: 1, Task: "A", Args: []string{"x"}, Status: 0},
		{RunID: "run-1", Seq: 2, Task: "B", Args: []string{}, Status: 2},
	}, invs)
}

func TestRun_ClockSpansRuns(t *testing.T) {
	dir, reg := setupTasks(t, "A", "B")
	inv := testutil.NewRecordingInvoker(map[string]int{"A": 0, "B": 0})
	e := New(newVerifier(dir, reg), inv)

	first := e.Run(context.Background(), "log", "|| [ (A), (B) ]")
	second := e.Run(context.Background(), "log", "|| [ (A), (B) ]")

	assert.Equal(t, []string{"A", "A"}, inv.Names())
	assert.Equal(t, int64(1), first.Records[0].Seq)
	assert.Equal(t, int64(2), second.Records[0].Seq, "the clock keeps running across runs")
}

func TestRun_TraceGolden(t *testing.T) {
	dir, reg := setupTasks(t, "A", "B", "C", "D", "E", "F")
	inv := testutil.NewRecordingInvoker(map[string]int{"A": 0, "B": 1, "C": 0, "D": 0, "E": 0, "F": 0})
	var diag bytes.Buffer
	e := New(newVerifier(dir, reg), inv,
		WithDiagnostics(&diag),
		WithRunIDGenerator(testutil.NewFixedRunIDGenerator("test-run-golden")),
	)

	out := e.Run(context.Background(), "log-1",
		"||[&&[(A:hello,world),(B)],&&[(C:test),(D),(E:2,4)],(F)]")
	require.NoError(t, out.Err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "run_trace", []byte(renderTrace(out, diag.String())))
}

// renderTrace prints a run in a stable, human-readable layout.
func renderTrace(out Outcome, diag string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "run: %s\n", out.RunID)
	fmt.Fprintf(&b, "tree: %s\n", out.Tree)
	b.WriteString("invocations:\n")
	for _, r := range out.Records {
		fmt.Fprintf(&b, "  seq=%d task=%s args=%q status=%d\n", r.Seq, r.Task, r.Args, r.Status)
	}
	b.WriteString("outcomes:\n")
	expr.Walk(out.Tree, func(n expr.Node) bool {
		fmt.Fprintf(&b, "  %-5s %s\n", n.Outcome(), n)
		return true
	})
	fmt.Fprintf(&b, "diagnostic channel: %s\n", strings.Join(strings.Fields(diag), " "))
	fmt.Fprintf(&b, "result: %t exit: %d\n", out.Result, out.ExitCode)
	return b.String()
}

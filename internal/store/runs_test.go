package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/logicrun/internal/registry"
)

func TestImportAndLoadRegistry(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	empty, err := s.LoadRegistry(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	first, err := registry.New(map[string]string{
		"A": "6c8c069a22d96be8a18c21722cdac82d",
		"B": "efa8b2f56b3c0c5414e8bf6f91da1dd5",
	})
	require.NoError(t, err)
	require.NoError(t, s.ImportRegistry(ctx, first))

	second, err := registry.New(map[string]string{
		"B": "00000000000000000000000000000000",
		"C": "11111111111111111111111111111111",
	})
	require.NoError(t, err)
	require.NoError(t, s.ImportRegistry(ctx, second))

	loaded, err := s.LoadRegistry(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"A": "6c8c069a22d96be8a18c21722cdac82d",
		"B": "00000000000000000000000000000000",
		"C": "11111111111111111111111111111111",
	}, loaded.Entries())
}

func TestLoadRegistryRejectsCorruptRows(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO task_fingerprints (task_name, fingerprint) VALUES ('A', 'not-hex')`)
	require.NoError(t, err)

	_, err = s.LoadRegistry(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid hex")
}

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.StartRun(ctx, Run{ID: "run-1", LogID: "log-42", Expression: "&& [ (A), (B) ]"}))
	require.NoError(t, s.WriteInvocation(ctx, Invocation{RunID: "run-1", Seq: 1, Task: "A", Args: []string{"x,y", ""}, Status: 0}))
	require.NoError(t, s.WriteInvocation(ctx, Invocation{RunID: "run-1", Seq: 2, Task: "B", Status: 3}))

	runs, err := s.RunsByLogID(ctx, "log-42")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].Finished)

	require.NoError(t, s.FinishRun(ctx, "run-1", 1))

	runs, err = s.RunsByLogID(ctx, "log-42")
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, Run{
		ID:         "run-1",
		LogID:      "log-42",
		Expression: "&& [ (A), (B) ]",
		Seq:        1,
		ExitCode:   1,
		Finished:   true,
	}, runs[0])

	invs, err := s.Invocations(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []Invocation{
		{RunID: "run-1", Seq: 1, Task: "A", Args: []string{"x,y", ""}, Status: 0},
		{RunID: "run-1", Seq: 2, Task: "B", Args: []string{}, Status: 3},
	}, invs)
}

func TestRunsOrderedBySeq(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	// IDs sort opposite to insertion order.
	for _, id := range []string{"z", "m", "a"} {
		require.NoError(t, s.StartRun(ctx, Run{ID: id, LogID: "log", Expression: "(A)"}))
	}
	require.NoError(t, s.StartRun(ctx, Run{ID: "other", LogID: "elsewhere", Expression: "(A)"}))

	runs, err := s.RunsByLogID(ctx, "log")
	require.NoError(t, err)

	var ids []string
	var seqs []int64
	for _, r := range runs {
		ids = append(ids, r.ID)
		seqs = append(seqs, r.Seq)
	}
	assert.Equal(t, []string{"z", "m", "a"}, ids)
	assert.Equal(t, []int64{1, 2, 3}, seqs)
}

func TestWriteInvocationIdempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.StartRun(ctx, Run{ID: "run-1", LogID: "log", Expression: "(A)"}))
	inv := Invocation{RunID: "run-1", Seq: 1, Task: "A", Status: 0}
	require.NoError(t, s.WriteInvocation(ctx, inv))
	inv.Status = 9
	require.NoError(t, s.WriteInvocation(ctx, inv))

	invs, err := s.Invocations(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Equal(t, 0, invs[0].Status, "first write wins")
}

func TestFinishUnknownRun(t *testing.T) {
	err := createTestStore(t).FinishRun(context.Background(), "nope", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown run")
}

func TestEmptyListings(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	runs, err := s.RunsByLogID(ctx, "none")
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)

	invs, err := s.Invocations(ctx, "none")
	require.NoError(t, err)
	assert.NotNil(t, invs)
	assert.Empty(t, invs)
}

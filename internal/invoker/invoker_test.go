package invoker

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTask creates <dir>/<name>/<name>.go with src.
func writeTask(t *testing.T, dir, name, src string) {
	t.Helper()
	taskDir := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(taskDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(taskDir, name+".go"), []byte(src), 0644))
}

// runTask loads and calls a task without banners or status mapping.
func runTask(inv *Invoker, name string, args []string) (any, error) {
	task, err := inv.load(name)
	if err != nil {
		return nil, err
	}
	return task.call(args)
}

func TestInvokeSuccess(t *testing.T) {
	dir := t.TempDir()
	writeTask(t, dir, "A", `package main

import "fmt"

func A(greeting, name string) {
	fmt.Println(greeting + ", " + name)
}
`)
	var out bytes.Buffer
	status := New(dir, &out).Invoke(context.Background(), "A", []string{"hello", "world"})

	assert.Equal(t, StatusSuccess, status)
	assert.Contains(t, out.String(), "=== STARTING A ===")
	assert.Contains(t, out.String(), "hello, world\n")
	assert.Contains(t, out.String(), "=== FINISHED A (0) ===")
}

func TestInvokeFailures(t *testing.T) {
	dir := t.TempDir()
	writeTask(t, dir, "Err", `package main

import "errors"

func Err() error { return errors.New("boom") }
`)
	writeTask(t, dir, "Panics", `package main

func Panics() { panic("kaboom") }
`)
	writeTask(t, dir, "Arity", `package main

func Arity(a, b string) {}
`)
	writeTask(t, dir, "Broken", `package main

func Broken( {
`)
	writeTask(t, dir, "NoFunc", `package main

func Other() {}
`)
	writeTask(t, dir, "NotString", `package main

func NotString(n int) {}
`)
	writeTask(t, dir, "BadReturn", `package main

func BadReturn() int { return 3 }
`)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Empty"), 0755))

	tests := []struct {
		name string
		args []string
	}{
		{"Err", nil},
		{"Panics", nil},
		{"Arity", []string{"only-one"}},
		{"Broken", nil},
		{"NoFunc", nil},
		{"NotString", []string{"1"}},
		{"BadReturn", nil},
		{"Empty", nil},
		{"Missing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			status := New(dir, &out).Invoke(context.Background(), tt.name, tt.args)
			assert.Equal(t, StatusFailure, status)
			assert.Contains(t, out.String(), "=== FAILED "+tt.name+" (1) ===")
			assert.NotContains(t, out.String(), "FINISHED")
		})
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Empty"), 0755))
	inv := New(dir, nil)

	_, err := runTask(inv, "Missing", nil)
	assert.ErrorIs(t, err, ErrMissingDirectory)

	_, err = runTask(inv, "Empty", nil)
	assert.ErrorIs(t, err, ErrMissingSource)
}

func TestRunReturnsValue(t *testing.T) {
	dir := t.TempDir()
	writeTask(t, dir, "Sum", `package main

import "strconv"

func Sum(nums ...string) (int, error) {
	total := 0
	for _, n := range nums {
		v, err := strconv.Atoi(n)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}
`)
	inv := New(dir, nil)

	v, err := runTask(inv, "Sum", []string{"2", "4"})
	require.NoError(t, err)
	assert.Equal(t, 6, v)

	v, err = runTask(inv, "Sum", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	_, err = runTask(inv, "Sum", []string{"x"})
	require.Error(t, err)
}

func TestNonIdentifierNameUsesRun(t *testing.T) {
	dir := t.TempDir()
	writeTask(t, dir, "my-task", `package main

func Run(arg string) error { return nil }
`)
	status := New(dir, nil).Invoke(context.Background(), "my-task", []string{"x"})
	assert.Equal(t, StatusSuccess, status)
}

func TestFuncName(t *testing.T) {
	assert.Equal(t, "A", FuncName("A"))
	assert.Equal(t, "build_docs", FuncName("build_docs"))
	assert.Equal(t, "Run", FuncName("my-task"))
	assert.Equal(t, "Run", FuncName("func"))
	assert.Equal(t, "Run", FuncName("1st"))
}

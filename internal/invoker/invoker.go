// Package invoker runs task units through an embedded Go interpreter.
//
// A task unit named N lives in <tasks-dir>/N/N.go and declares package main
// with a function named N. When N is not a valid Go identifier the function
// must be named Run instead. Every parameter must be a string (a final
// ...string is allowed). The function may return nothing, an error, or a
// value and an error:
//
//	package main
//
//	import "fmt"
//
//	func A(greeting, name string) (string, error) {
//		fmt.Println(greeting, name)
//		return "ok", nil
//	}
//
// Invoke never returns an error and never panics: any failure becomes
// status 1 and success is status 0.
package invoker

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// Status codes returned by Invoke.
const (
	StatusSuccess = 0
	StatusFailure = 1
)

// fallbackFuncName is the entry point for task names that are not Go identifiers.
const fallbackFuncName = "Run"

var (
	// ErrMissingDirectory means <tasks-dir>/<name> does not exist.
	ErrMissingDirectory = errors.New("task directory not found")

	// ErrMissingSource means the task directory has no <name>.go file.
	ErrMissingSource = errors.New("task source not found")
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Invoker locates task units below TasksDir and interprets them.
type Invoker struct {
	TasksDir string

	// Stdout receives banners and everything the task prints to stdout.
	// Nil discards output.
	Stdout io.Writer

	// Stderr receives what the task prints to stderr. Nil falls back to Stdout.
	Stderr io.Writer
}

// New creates an Invoker for tasksDir writing all task output to out.
func New(tasksDir string, out io.Writer) *Invoker {
	return &Invoker{TasksDir: tasksDir, Stdout: out}
}

// Invoke runs the task unit name with args and returns its status code.
func (inv *Invoker) Invoke(ctx context.Context, name string, args []string) int {
	out := inv.stdout()

	task, err := inv.load(name)
	if err != nil {
		slog.ErrorContext(ctx, "task load failed", "task", name, "error", err)
		fmt.Fprintf(out, "Error: %v\n", err)
		fmt.Fprintf(out, "=== FAILED %s (%d) ===\n\n", name, StatusFailure)
		return StatusFailure
	}

	fmt.Fprintf(out, "\n=== STARTING %s ===\n", name)
	ret, err := task.call(args)
	if err != nil {
		slog.ErrorContext(ctx, "task failed", "task", name, "error", err)
		fmt.Fprintf(out, "Error running %s: %v\n", name, err)
		fmt.Fprintf(out, "=== FAILED %s (%d) ===\n\n", name, StatusFailure)
		return StatusFailure
	}

	if ret != nil {
		slog.DebugContext(ctx, "task returned", "task", name, "value", ret)
	}
	fmt.Fprintf(out, "=== FINISHED %s (%d) ===\n\n", name, StatusSuccess)
	return StatusSuccess
}

// SourcePath returns the expected entry file of a task unit.
func (inv *Invoker) SourcePath(name string) string {
	return filepath.Join(inv.TasksDir, name, name+".go")
}

// FuncName returns the function a task unit must define.
func FuncName(name string) string {
	if token.IsIdentifier(name) {
		return name
	}
	return fallbackFuncName
}

func (inv *Invoker) stdout() io.Writer {
	if inv.Stdout == nil {
		return io.Discard
	}
	return inv.Stdout
}

func (inv *Invoker) stderr() io.Writer {
	if inv.Stderr == nil {
		return inv.stdout()
	}
	return inv.Stderr
}

// task is a loaded entry function.
type task struct {
	name string
	fn   reflect.Value
}

func (inv *Invoker) load(name string) (t *task, err error) {
	dir := filepath.Join(inv.TasksDir, name)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrMissingDirectory, dir)
	}
	path := inv.SourcePath(name)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingSource, path)
	}

	// The interpreter may panic on malformed input.
	defer func() {
		if r := recover(); r != nil {
			t, err = nil, fmt.Errorf("interpret %s: panic: %v", path, r)
		}
	}()

	i := interp.New(interp.Options{Stdout: inv.stdout(), Stderr: inv.stderr()})
	i.Use(stdlib.Symbols)
	if _, err := i.EvalPath(path); err != nil {
		return nil, fmt.Errorf("interpret %s: %w", path, err)
	}

	fnName := FuncName(name)
	fn, err := i.Eval(fnName)
	if err != nil {
		return nil, fmt.Errorf("%s must define func %s: %w", path, fnName, err)
	}
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%s: %s is not a function", path, fnName)
	}
	if err := checkSignature(fn.Type()); err != nil {
		return nil, fmt.Errorf("%s: func %s: %w", path, fnName, err)
	}
	return &task{name: fnName, fn: fn}, nil
}

func checkSignature(ft reflect.Type) error {
	for i := 0; i < ft.NumIn(); i++ {
		in := ft.In(i)
		if ft.IsVariadic() && i == ft.NumIn()-1 {
			in = in.Elem()
		}
		if in.Kind() != reflect.String {
			return fmt.Errorf("parameter %d is %s, want string", i+1, ft.In(i))
		}
	}
	switch ft.NumOut() {
	case 0:
	case 1, 2:
		if !ft.Out(ft.NumOut() - 1).Implements(errorType) {
			return fmt.Errorf("last result must be error, got %s", ft.Out(ft.NumOut()-1))
		}
	default:
		return fmt.Errorf("returns %d values, want at most 2", ft.NumOut())
	}
	return nil
}

// call invokes the entry function, converting panics and returned errors.
func (t *task) call(args []string) (ret any, err error) {
	ft := t.fn.Type()
	if ft.IsVariadic() {
		if len(args) < ft.NumIn()-1 {
			return nil, fmt.Errorf("%s takes at least %d arguments, got %d", t.name, ft.NumIn()-1, len(args))
		}
	} else if len(args) != ft.NumIn() {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", t.name, ft.NumIn(), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, a := range args {
		in[i] = reflect.ValueOf(a)
	}

	defer func() {
		if r := recover(); r != nil {
			ret, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	out := t.fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return nil, asError(out[0])
	default:
		if err := asError(out[1]); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}
}

func asError(v reflect.Value) error {
	if !v.IsValid() || v.IsNil() {
		return nil
	}
	if err, ok := v.Interface().(error); ok {
		return err
	}
	return fmt.Errorf("returned non-error value %v", v.Interface())
}

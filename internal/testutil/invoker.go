// Package testutil provides deterministic fakes shared by package tests.
package testutil

import (
	"context"
	"slices"
	"sync"
)

// Call records one task invocation.
type Call struct {
	Name string
	Args []string
}

// RecordingInvoker is a fake task invoker. It returns the configured status
// for each task name and records every call in order. Unknown tasks fail
// with status 1, the same code a missing task directory produces.
//
// Thread-safety: safe for concurrent use via internal mutex.
type RecordingInvoker struct {
	mu       sync.Mutex
	statuses map[string]int
	calls    []Call
}

// NewRecordingInvoker creates an invoker answering with statuses.
func NewRecordingInvoker(statuses map[string]int) *RecordingInvoker {
	return &RecordingInvoker{statuses: statuses}
}

// Invoke records the call and returns the configured status.
func (r *RecordingInvoker) Invoke(_ context.Context, name string, args []string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Name: name, Args: slices.Clone(args)})
	status, ok := r.statuses[name]
	if !ok {
		return 1
	}
	return status
}

// Calls returns a copy of the recorded calls.
func (r *RecordingInvoker) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Names returns the invoked task names in call order.
func (r *RecordingInvoker) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.calls))
	for i, c := range r.calls {
		names[i] = c.Name
	}
	return names
}

// Count returns how many times name was invoked.
func (r *RecordingInvoker) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

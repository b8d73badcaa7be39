// Package registry holds the expected fingerprint of every task unit.
//
// A Registry is built once at start-up and is read-only afterwards, so it is
// safe to share between goroutines without locking. Task names are unique
// after Unicode NFC normalization; fingerprints are stored as lowercase hex.
//
// Registries are loaded from YAML or CUE files:
//
//	fingerprints:
//	  A: 6c8c069a22d96be8a18c21722cdac82d
//
// or from the SQLite store (see internal/store).
package registry

import (
	"encoding/hex"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Registry maps task names to expected fingerprints.
type Registry struct {
	entries map[string]string
}

// New validates entries and builds a Registry. The input map is copied.
func New(entries map[string]string) (*Registry, error) {
	r := &Registry{entries: make(map[string]string, len(entries))}
	for _, name := range slices.Sorted(maps.Keys(entries)) {
		key := NormalizeName(name)
		if key == "" {
			return nil, fmt.Errorf("registry: empty task name")
		}
		if _, dup := r.entries[key]; dup {
			return nil, fmt.Errorf("registry: duplicate task name %q after normalization", key)
		}
		value, err := normalizeFingerprint(entries[name])
		if err != nil {
			return nil, fmt.Errorf("registry: task %q: %w", key, err)
		}
		r.entries[key] = value
	}
	return r, nil
}

// Empty returns a registry with no entries. Every lookup misses.
func Empty() *Registry {
	return &Registry{entries: map[string]string{}}
}

// NormalizeName trims and NFC-normalizes a task name.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func normalizeFingerprint(value string) (string, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return "", fmt.Errorf("empty fingerprint")
	}
	if _, err := hex.DecodeString(value); err != nil {
		return "", fmt.Errorf("fingerprint %q is not valid hex", value)
	}
	return value, nil
}

// Lookup returns the expected fingerprint for name.
func (r *Registry) Lookup(name string) (string, bool) {
	fp, ok := r.entries[NormalizeName(name)]
	return fp, ok
}

// Names returns every task name, sorted ascending.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.entries))
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Entries returns a copy of the name → fingerprint table.
func (r *Registry) Entries() map[string]string {
	return maps.Clone(r.entries)
}

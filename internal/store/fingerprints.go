package store

import (
	"context"
	"fmt"

	"github.com/roach88/logicrun/internal/registry"
)

// ImportRegistry upserts every entry of r into task_fingerprints in a single
// transaction. Existing entries for other task names are kept.
func (s *Store) ImportRegistry(ctx context.Context, r *registry.Registry) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("import registry: begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO task_fingerprints (task_name, fingerprint)
		VALUES (?, ?)
		ON CONFLICT(task_name) DO UPDATE SET fingerprint = excluded.fingerprint
	`)
	if err != nil {
		return fmt.Errorf("import registry: prepare: %w", err)
	}
	defer stmt.Close()

	entries := r.Entries()
	for _, name := range r.Names() {
		if _, err = stmt.ExecContext(ctx, name, entries[name]); err != nil {
			return fmt.Errorf("import registry: task %q: %w", name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("import registry: commit: %w", err)
	}
	return nil
}

// LoadRegistry reads task_fingerprints into a validated Registry.
// An empty table yields an empty registry.
func (s *Store) LoadRegistry(ctx context.Context) (*registry.Registry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_name, fingerprint
		FROM task_fingerprints
		ORDER BY task_name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query fingerprints: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]string)
	for rows.Next() {
		var name, fp string
		if err := rows.Scan(&name, &fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}
		entries[name] = fp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprints: %w", err)
	}

	r, err := registry.New(entries)
	if err != nil {
		return nil, fmt.Errorf("load registry from %s: %w", s.path, err)
	}
	return r, nil
}

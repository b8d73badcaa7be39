// Package store provides SQLite-backed storage for the fingerprint registry
// and the run history.
//
// Tables:
//   - task_fingerprints: expected fingerprint per task name
//   - runs: one row per orchestration run, keyed by run ID
//   - invocations: one row per task invocation inside a run
//
// # Ordering
//
// Runs and invocations are ordered by seq INTEGER (logical clock), never by
// timestamps. Run seq is allocated by the store on insert; invocation seq
// comes from the engine's clock. Every listing query orders by seq first
// and by a binary-collated key second, so results are stable across reads.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store

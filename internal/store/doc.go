// Package store provides SQLite-backed storage for the token sender.
//
// The store holds:
//   - contract_state: the singleton limit record under the fixed key 'state'
//   - contract_info: the contract name/version written at instantiation
//   - balances: the built-in bank, one row per (address, denom)
//   - invocations and completions: the append-only audit log
//
// Every request the engine runs is one Update transaction, so a failed
// request leaves no partial state behind.
//
// # Ordering
//
// Audit queries order by seq (the engine's logical clock), then id, so the
// same log always reads back in the same order.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Invocation and completion IDs are computed in internal/ir/hash.go.
package store

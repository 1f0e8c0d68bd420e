// Package engine is the ledger platform: the environment that invokes
// ledger operations, supplies their store and balance oracle, and carries
// emitted transfers to completion.
//
// ARCHITECTURE:
//
// Single-Writer Request Loop:
// Transports call Submit, which queues the request. Run dequeues requests
// one at a time in FIFO order, so no two state changes overlap.
//
// Request Processing Flow:
// 1. Stamp the request with a seq from Clock and a request token
// 2. Begin a store transaction and write the invocation record
// 3. Run the ledger operation against the transaction
// 4. Apply emitted BankSend messages to bank balances
// 5. Write the completion record and commit
//
// Any failure rolls the transaction back; the invocation and an error
// completion are then written on their own so the audit log still shows
// the attempt.
//
// With the built-in bank as oracle, UpdateLimit's balance read happens in
// the same transaction as its write. An external oracle (Redis) is a
// snapshot read outside it.
//
// Seq is a logical clock. The audit log is ordered by seq, never by wall time.
package engine

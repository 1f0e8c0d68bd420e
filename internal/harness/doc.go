// Package harness runs ledger scenarios end to end.
//
// A scenario is a YAML file describing genesis balances, an instantiation,
// a sequence of execute, sudo and query steps with expectations, and the
// state the ledger must end in. Each scenario runs on a fresh in-memory
// engine with sequential request tokens, so the audit log it produces is
// reproducible and can be compared against a golden file.
//
// # Scenario Format
//
//	name: consume_limit
//	description: "Sudo consumption draws the limit down"
//	denom: token            # optional
//	prefix: cosmos          # optional
//	balances:
//	  owner: "120"
//	  contract: "50"
//	instantiate:
//	  sender: owner
//	  limit: "100"
//	steps:
//	  - sudo: {send_token_to_contract: {amount: "30"}}
//	    expect:
//	      attributes: {action: transfer, amount: "30"}
//	  - execute: {send_tokens: {recipient: "${bob}", amount: "5"}}
//	    sender: alice
//	    expect:
//	      error: INSUFFICIENT_FUNDS
//	  - query: {get_limit: {}}
//	    expect:
//	      data: {limit: "70"}
//	final:
//	  limit: "70"
//	  owner: owner
//	  balances: {contract: "50"}
//	assertions:
//	  - type: trace_count
//	    action: send_token_to_contract
//	    count: 1
//
// Account names stand for addresses derived from the name under the
// scenario's prefix; "contract" is the ledger's own account. Senders and
// balance keys are plain names. Inside messages and expectations a name is
// written as a placeholder, "${bob}".
//
// # Traces
//
// The trace is the audit log read back from the store: one invocation and
// one completion per state-changing request, with addresses written back
// as placeholders. Failed completions keep only their outcome code.
//
// # Assertion Types
//
//   - trace_contains: an invocation of action (with matching args and outcome) exists
//   - trace_order: the actions' first invocations appear in the given order
//   - trace_count: action was invoked exactly count times (optionally with outcome)
package harness

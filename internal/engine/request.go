package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/tokensender/internal/ir"
	"github.com/roach88/tokensender/internal/ledger"
)

// Request is one call into the ledger as it arrives from a transport.
type Request struct {
	// Kind selects the entry point.
	Kind ir.RequestKind

	// Sender is the caller identity. Required for instantiate and execute;
	// ignored for sudo and query.
	Sender string

	// Msg is the JSON message for the entry point.
	Msg json.RawMessage
}

// Result is the outcome of a processed request.
type Result struct {
	// InvocationID identifies the audit record. Empty for queries.
	InvocationID string `json:"invocation_id,omitempty"`

	// Seq is the invocation's logical time. Zero for queries.
	Seq int64 `json:"seq,omitempty"`

	// Response holds emitted messages and attributes of a state change.
	Response *ir.Response `json:"response,omitempty"`

	// Data is the JSON answer to a query.
	Data json.RawMessage `json:"data,omitempty"`
}

// runFunc executes a decoded state-changing message against a ledger.
type runFunc func(ctx context.Context, l *ledger.Ledger, caller ir.Addr) (ir.Response, error)

// decoded is a state-changing request after parsing.
type decoded struct {
	action string
	args   ir.IRObject
	run    runFunc
}

// decodeRequest parses req.Msg for its entry point. On failure the returned
// decoded still carries an action and args so the rejection can be audited.
func decodeRequest(req Request) (decoded, error) {
	d := decoded{action: "unknown", args: rawArgs(req.Msg)}

	var (
		msg any
		err error
	)
	switch req.Kind {
	case ir.KindInstantiate:
		var m ir.InstantiateMsg
		m, err = ir.ParseInstantiateMsg(req.Msg)
		d.action = "instantiate"
		d.run = func(ctx context.Context, l *ledger.Ledger, caller ir.Addr) (ir.Response, error) {
			return l.Instantiate(ctx, caller, m)
		}
		msg = m
	case ir.KindExecute:
		var m ir.ExecuteMsg
		m, err = ir.ParseExecuteMsg(req.Msg)
		d.action = m.Action()
		d.run = func(ctx context.Context, l *ledger.Ledger, caller ir.Addr) (ir.Response, error) {
			return l.Execute(ctx, caller, m)
		}
		msg = m
	case ir.KindSudo:
		var m ir.SudoMsg
		m, err = ir.ParseSudoMsg(req.Msg)
		d.action = m.Action()
		d.run = func(ctx context.Context, l *ledger.Ledger, _ ir.Addr) (ir.Response, error) {
			return l.Sudo(ctx, m)
		}
		msg = m
	default:
		return d, ledger.NewInvalidRequest(fmt.Errorf("unsupported request kind %q", req.Kind))
	}

	if err != nil {
		if d.action == "" {
			d.action = "unknown"
		}
		return d, ledger.NewInvalidRequest(err)
	}

	args, err := ir.MsgArgs(msg)
	if err != nil {
		return d, ledger.NewInvalidRequest(err)
	}
	d.args = args
	return d, nil
}

// rawArgs keeps an undecodable message in the audit record.
func rawArgs(msg json.RawMessage) ir.IRObject {
	if v, err := ir.UnmarshalIRValue(msg); err == nil {
		if obj, ok := v.(ir.IRObject); ok {
			return obj
		}
	}
	return ir.IRObject{"raw": ir.IRString(string(msg))}
}

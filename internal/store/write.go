package store

import (
	"context"
	"fmt"

	"github.com/roach88/tokensender/internal/ir"
)

// WriteInvocation inserts an invocation record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate IDs are silently ignored.
// Other constraint violations (e.g., NOT NULL) will still return errors.
//
// Args are stored as canonical JSON so the record hashes the same on read-back.
func (o ops) WriteInvocation(ctx context.Context, inv ir.Invocation) error {
	argsJSON, err := marshalObject(inv.Args)
	if err != nil {
		return fmt.Errorf("write invocation: marshal args: %w", err)
	}

	_, err = o.q.ExecContext(ctx, `
		INSERT INTO invocations
		(id, request_token, kind, action, sender, args, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		inv.ID,
		inv.RequestToken,
		string(inv.Kind),
		inv.Action,
		inv.Sender,
		argsJSON,
		inv.Seq,
	)
	if err != nil {
		return fmt.Errorf("write invocation: %w", err)
	}

	return nil
}

// WriteCompletion inserts a completion record.
// Each invocation has exactly one completion (UNIQUE invocation_id); a second
// write for the same invocation is silently ignored.
//
// The invocation referenced by InvocationID must exist (foreign key constraint).
func (o ops) WriteCompletion(ctx context.Context, comp ir.Completion) error {
	resultJSON, err := marshalObject(comp.Result)
	if err != nil {
		return fmt.Errorf("write completion: marshal result: %w", err)
	}

	_, err = o.q.ExecContext(ctx, `
		INSERT INTO completions
		(id, invocation_id, outcome, result, seq)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		comp.ID,
		comp.InvocationID,
		comp.Outcome,
		resultJSON,
		comp.Seq,
	)
	if err != nil {
		return fmt.Errorf("write completion: %w", err)
	}

	return nil
}

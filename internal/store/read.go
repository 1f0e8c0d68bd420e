package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tokensender/internal/ir"
)

// Entry pairs an invocation with its completion.
type Entry struct {
	Invocation ir.Invocation `json:"invocation"`
	Completion ir.Completion `json:"completion"`
}

// ReadInvocation retrieves a single invocation by ID.
// Returns an error wrapping ir.ErrRecordNotFound if it does not exist.
func (o ops) ReadInvocation(ctx context.Context, id string) (ir.Invocation, error) {
	row := o.q.QueryRowContext(ctx, `
		SELECT id, request_token, kind, action, sender, args, seq
		FROM invocations
		WHERE id = ?
	`, id)

	inv, err := scanInvocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Invocation{}, fmt.Errorf("invocation %s: %w", id, ir.ErrRecordNotFound)
	}
	return inv, err
}

// ReadCompletion retrieves the completion of an invocation.
// Returns an error wrapping ir.ErrRecordNotFound if it does not exist.
func (o ops) ReadCompletion(ctx context.Context, invocationID string) (ir.Completion, error) {
	row := o.q.QueryRowContext(ctx, `
		SELECT id, invocation_id, outcome, result, seq
		FROM completions
		WHERE invocation_id = ?
	`, invocationID)

	comp, err := scanCompletion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Completion{}, fmt.Errorf("completion of %s: %w", invocationID, ir.ErrRecordNotFound)
	}
	return comp, err
}

// ReadHistory returns the most recent limit entries in seq order, oldest
// first. A limit of zero or less returns the whole log.
//
// Returns an empty slice (not nil) if the log is empty.
func (o ops) ReadHistory(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := o.q.QueryContext(ctx, `
		SELECT * FROM (
			SELECT i.id AS inv_id, i.request_token, i.kind, i.action, i.sender, i.args,
			       i.seq AS inv_seq,
			       c.id AS comp_id, c.invocation_id, c.outcome, c.result, c.seq AS comp_seq
			FROM invocations i
			JOIN completions c ON c.invocation_id = i.id
			ORDER BY i.seq DESC, i.id COLLATE BINARY DESC
			LIMIT ?
		)
		ORDER BY inv_seq ASC, inv_id COLLATE BINARY ASC
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var (
			e                  Entry
			kind, args, result string
		)
		err := rows.Scan(
			&e.Invocation.ID, &e.Invocation.RequestToken, &kind, &e.Invocation.Action,
			&e.Invocation.Sender, &args, &e.Invocation.Seq,
			&e.Completion.ID, &e.Completion.InvocationID, &e.Completion.Outcome,
			&result, &e.Completion.Seq,
		)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Invocation.Kind = ir.RequestKind(kind)
		if e.Invocation.Args, err = unmarshalObject(args); err != nil {
			return nil, err
		}
		if e.Completion.Result, err = unmarshalObject(result); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	return entries, nil
}

func scanInvocation(row *sql.Row) (ir.Invocation, error) {
	var inv ir.Invocation
	var kind, args string

	err := row.Scan(&inv.ID, &inv.RequestToken, &kind, &inv.Action, &inv.Sender, &args, &inv.Seq)
	if err != nil {
		return ir.Invocation{}, err
	}

	inv.Kind = ir.RequestKind(kind)
	inv.Args, err = unmarshalObject(args)
	if err != nil {
		return ir.Invocation{}, err
	}
	return inv, nil
}

func scanCompletion(row *sql.Row) (ir.Completion, error) {
	var comp ir.Completion
	var result string

	err := row.Scan(&comp.ID, &comp.InvocationID, &comp.Outcome, &result, &comp.Seq)
	if err != nil {
		return ir.Completion{}, err
	}

	comp.Result, err = unmarshalObject(result)
	if err != nil {
		return ir.Completion{}, err
	}
	return comp, nil
}

// LastSeq returns the highest seq in the audit log, or 0 if it is empty.
// The engine resumes its clock from here after a restart.
func (o ops) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := o.q.QueryRowContext(ctx, `
		SELECT MAX(m) FROM (
			SELECT COALESCE(MAX(seq), 0) AS m FROM invocations
			UNION ALL
			SELECT COALESCE(MAX(seq), 0) AS m FROM completions
		)
	`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

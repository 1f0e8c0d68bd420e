package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/tokensender/internal/ir"
	"github.com/roach88/tokensender/internal/ledger"
	"github.com/roach88/tokensender/internal/oracle"
	"github.com/roach88/tokensender/internal/store"
)

// ErrStopped is returned by Submit once the engine has stopped.
var ErrStopped = errors.New("engine stopped")

// Observer receives one call per processed request. internal/metrics
// implements it.
type Observer interface {
	ObserveRequest(kind ir.RequestKind, action, outcome string, elapsed time.Duration)
}

// Engine is the ledger platform: it runs each request as one store
// transaction, applies emitted bank messages, and keeps the audit log.
//
// Thread-safety model:
//   - Submit(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//   - Process(): runs a request directly; callers that also use Run must
//     not call it concurrently
type Engine struct {
	store    *store.Store
	clock    *Clock
	tokens   TokenGenerator
	addrs    ledger.AddressValidator
	cfg      ledger.Config
	oracle   ledger.BalanceOracle // nil: built-in bank, read inside the request's tx
	observer Observer
	queue    *jobQueue
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithClock sets the logical clock. Use ResumeClock for an existing store.
func WithClock(c *Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithTokenGenerator sets the request token source.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(e *Engine) { e.tokens = g }
}

// WithOracle replaces the built-in bank as the balance oracle.
// External oracles are read outside the store transaction, so an update's
// balance check is a snapshot that can be stale by commit time.
func WithOracle(o ledger.BalanceOracle) Option {
	return func(e *Engine) { e.oracle = o }
}

// WithObserver registers a request observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// New creates an Engine over s.
func New(s *store.Store, addrs ledger.AddressValidator, cfg ledger.Config, opts ...Option) *Engine {
	if cfg.Denom == "" {
		cfg.Denom = ledger.DefaultDenom
	}

	e := &Engine{
		store:  s,
		clock:  NewClock(),
		tokens: UUIDv7Generator{},
		addrs:  addrs,
		cfg:    cfg,
		queue:  newJobQueue(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Config returns the ledger configuration the engine runs with.
func (e *Engine) Config() ledger.Config {
	return e.cfg
}

// Submit queues req for the Run loop and waits for its result.
// Thread-safe: may be called from any goroutine.
//
// If ctx ends first Submit returns ctx.Err(), but a request already queued
// still runs.
func (e *Engine) Submit(ctx context.Context, req Request) (Result, error) {
	j := job{req: req, reply: make(chan reply, 1)}
	if !e.queue.Enqueue(j) {
		return Result{}, ErrStopped
	}

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-j.reply:
		return r.result, r.err
	}
}

// Run starts the single-writer request loop.
// Blocks until ctx is cancelled or Stop() is called.
//
// Must be called from exactly ONE goroutine. Request failures are returned
// to their submitters; the loop itself keeps going.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("engine starting")

	for {
		if j, ok := e.queue.TryDequeue(); ok {
			res, err := e.Process(ctx, j.req)
			j.reply <- reply{result: res, err: err}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled")
			e.drain()
			return ctx.Err()

		case <-e.queue.Wait():
			// The signal channel closes with the queue.
			if e.queue.Closed() {
				slog.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop gracefully shuts down the engine. Queued requests that have not
// started fail with ErrStopped.
func (e *Engine) Stop() {
	e.drain()
}

func (e *Engine) drain() {
	for _, j := range e.queue.Close() {
		j.reply <- reply{err: ErrStopped}
	}
}

// Process runs one request to completion.
//
// State-changing requests run in a single store transaction: the
// invocation record, the ledger operation, the bank transfers it emits and
// the completion record commit together or not at all. A failed request
// is then audited in a separate transaction with its error code as the
// outcome. Queries run in a read transaction and are not audited.
func (e *Engine) Process(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	var (
		res    Result
		action string
		err    error
	)
	if req.Kind == ir.KindQuery {
		res, action, err = e.query(ctx, req)
	} else {
		res, action, err = e.execute(ctx, req)
	}

	outcome := ir.OutcomeSuccess
	if err != nil {
		outcome = outcomeOf(err)
	}
	if e.observer != nil {
		e.observer.ObserveRequest(req.Kind, action, outcome, time.Since(start))
	}
	return res, err
}

func (e *Engine) execute(ctx context.Context, req Request) (Result, string, error) {
	d, err := decodeRequest(req)

	var caller ir.Addr
	sender := ""
	if req.Kind != ir.KindSudo {
		sender = req.Sender
		if err == nil {
			caller, err = e.addrs.Validate(req.Sender)
			if err != nil {
				err = ledger.NewInvalidAddress("sender", req.Sender, err)
			}
		}
	}

	inv := ir.Invocation{
		RequestToken: e.tokens.Generate(),
		Kind:         req.Kind,
		Action:       d.action,
		Sender:       sender,
		Args:         d.args,
		Seq:          e.clock.Next(),
	}
	id, idErr := ir.InvocationID(inv.RequestToken, inv.Kind, inv.Action, inv.Sender, inv.Args, inv.Seq)
	if idErr != nil {
		return Result{}, d.action, ledger.NewStoreError("invocation id", idErr)
	}
	inv.ID = id

	slog.Debug("processing request",
		"id", inv.ID,
		"kind", inv.Kind,
		"action", inv.Action,
		"sender", inv.Sender,
		"seq", inv.Seq,
	)

	res := Result{InvocationID: inv.ID, Seq: inv.Seq}

	if err == nil {
		var resp ir.Response
		err = e.store.Update(ctx, func(tx *store.Tx) error {
			if err := tx.WriteInvocation(ctx, inv); err != nil {
				return ledger.NewStoreError("write invocation", err)
			}

			l := ledger.New(tx, e.oracleFor(tx), e.addrs, e.cfg)
			r, err := d.run(ctx, l, caller)
			if err != nil {
				return err
			}

			if err := applyMessages(ctx, tx, r.Messages); err != nil {
				return err
			}

			result, err := ir.MsgArgs(r)
			if err != nil {
				return ledger.NewStoreError("encode response", err)
			}
			comp, err := e.completion(inv.ID, ir.OutcomeSuccess, result)
			if err != nil {
				return err
			}
			if err := tx.WriteCompletion(ctx, comp); err != nil {
				return ledger.NewStoreError("write completion", err)
			}

			resp = r
			return nil
		})
		if err == nil {
			slog.Info("request committed",
				"id", inv.ID,
				"action", inv.Action,
				"messages", len(resp.Messages),
			)
			res.Response = &resp
			return res, d.action, nil
		}
		if ledger.CodeOf(err) == "" {
			err = ledger.NewStoreError("transaction", err)
		}
	}

	e.audit(ctx, inv, err)
	return res, d.action, err
}

// audit records a failed request. Audit failures are logged, never returned:
// the caller sees the request's own error.
func (e *Engine) audit(ctx context.Context, inv ir.Invocation, cause error) {
	slog.Warn("request failed",
		"id", inv.ID,
		"action", inv.Action,
		"code", outcomeOf(cause),
		"error", cause,
	)

	// Record the failure even if the caller has gone away.
	ctx = context.WithoutCancel(ctx)

	err := e.store.Update(ctx, func(tx *store.Tx) error {
		if err := tx.WriteInvocation(ctx, inv); err != nil {
			return err
		}
		comp, err := e.completion(inv.ID, outcomeOf(cause), ir.IRObject{"error": ir.IRString(cause.Error())})
		if err != nil {
			return err
		}
		return tx.WriteCompletion(ctx, comp)
	})
	if err != nil {
		slog.Error("audit write failed", "id", inv.ID, "error", err)
	}
}

func (e *Engine) completion(invocationID, outcome string, result ir.IRObject) (ir.Completion, error) {
	seq := e.clock.Next()
	id, err := ir.CompletionID(invocationID, outcome, result, seq)
	if err != nil {
		return ir.Completion{}, ledger.NewStoreError("completion id", err)
	}
	return ir.Completion{
		ID:           id,
		InvocationID: invocationID,
		Outcome:      outcome,
		Result:       result,
		Seq:          seq,
	}, nil
}

func (e *Engine) query(ctx context.Context, req Request) (Result, string, error) {
	msg, err := ir.ParseQueryMsg(req.Msg)
	if err != nil {
		return Result{}, "unknown", ledger.NewInvalidRequest(err)
	}

	var data []byte
	err = e.store.View(ctx, func(tx *store.Tx) error {
		l := ledger.New(tx, e.oracleFor(tx), e.addrs, e.cfg)
		var err error
		data, err = l.Query(ctx, msg)
		return err
	})
	if err != nil {
		if ledger.CodeOf(err) == "" {
			err = ledger.NewStoreError("read transaction", err)
		}
		return Result{}, msg.Action(), err
	}
	return Result{Data: data}, msg.Action(), nil
}

func (e *Engine) oracleFor(tx *store.Tx) ledger.BalanceOracle {
	if e.oracle != nil {
		return e.oracle
	}
	return oracle.NewBankOracle(tx)
}

// applyMessages carries out emitted transfers against the bank.
func applyMessages(ctx context.Context, tx *store.Tx, msgs []ir.BankSend) error {
	for _, m := range msgs {
		err := tx.Send(ctx, m.From, m.ToAddress, m.Amount)
		switch {
		case err == nil:
			continue
		case errors.Is(err, store.ErrInsufficientBalance):
			return &ledger.Error{
				Code:    ledger.ErrCodeInsufficientFunds,
				Message: fmt.Sprintf("bank send from %s", m.From),
				Details: map[string]string{"from": m.From.String(), "to": m.ToAddress.String()},
				Err:     err,
			}
		case errors.Is(err, ir.ErrOverflow):
			return ledger.NewOverflow(fmt.Sprintf("bank send to %s", m.ToAddress), err)
		default:
			return ledger.NewStoreError("bank send", err)
		}
	}
	return nil
}

func outcomeOf(err error) string {
	if code := ledger.CodeOf(err); code != "" {
		return string(code)
	}
	return "INTERNAL"
}

package engine

import (
	"context"
	"errors"

	"github.com/roach88/tokensender/internal/ir"
	"github.com/roach88/tokensender/internal/ledger"
	"github.com/roach88/tokensender/internal/store"
)

// Fund credits amount of the ledger denomination to addr and returns the
// new balance. It is the operator's mint: genesis balances and top-ups.
func (e *Engine) Fund(ctx context.Context, addr string, amount ir.Uint128) (ir.Uint128, error) {
	a, err := e.addrs.Validate(addr)
	if err != nil {
		return ir.Uint128{}, ledger.NewInvalidAddress("account", addr, err)
	}

	var balance ir.Uint128
	err = e.store.Update(ctx, func(tx *store.Tx) error {
		var err error
		balance, err = tx.Fund(ctx, a, e.cfg.Denom, amount)
		return err
	})
	if errors.Is(err, ir.ErrOverflow) {
		return ir.Uint128{}, ledger.NewOverflow("fund "+addr, err)
	}
	if err != nil {
		return ir.Uint128{}, ledger.NewStoreError("fund", err)
	}
	return balance, nil
}

// Balance returns the bank balance of addr in the ledger denomination.
func (e *Engine) Balance(ctx context.Context, addr string) (ir.Uint128, error) {
	a, err := e.addrs.Validate(addr)
	if err != nil {
		return ir.Uint128{}, ledger.NewInvalidAddress("account", addr, err)
	}

	bal, err := e.store.Balance(ctx, a, e.cfg.Denom)
	if err != nil {
		return ir.Uint128{}, ledger.NewStoreError("balance", err)
	}
	return bal, nil
}

// Holdings lists every account holding the ledger denomination.
func (e *Engine) Holdings(ctx context.Context) ([]store.Holding, error) {
	h, err := e.store.Holdings(ctx, e.cfg.Denom)
	if err != nil {
		return nil, ledger.NewStoreError("holdings", err)
	}
	return h, nil
}

// History returns the most recent limit audit entries, oldest first.
// A limit of zero returns the whole log.
func (e *Engine) History(ctx context.Context, limit int) ([]store.Entry, error) {
	entries, err := e.store.ReadHistory(ctx, limit)
	if err != nil {
		return nil, ledger.NewStoreError("history", err)
	}
	return entries, nil
}

// ContractInfo returns the name and version recorded at instantiation.
func (e *Engine) ContractInfo(ctx context.Context) (ir.ContractInfo, error) {
	info, err := e.store.ContractInfo(ctx)
	if errors.Is(err, ir.ErrRecordNotFound) {
		return ir.ContractInfo{}, ledger.NewNotInstantiated()
	}
	if err != nil {
		return ir.ContractInfo{}, ledger.NewStoreError("contract info", err)
	}
	return info, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tokensender/internal/ir"
)

// ErrInsufficientBalance is returned when a send debits more than the
// sender holds.
var ErrInsufficientBalance = errors.New("insufficient balance")

// Balance returns the amount of denom held by addr. Unknown accounts hold zero.
func (o ops) Balance(ctx context.Context, addr ir.Addr, denom string) (ir.Uint128, error) {
	var amount string
	err := o.q.QueryRowContext(ctx, `
		SELECT amount FROM balances WHERE address = ? AND denom = ?
	`, string(addr), denom).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ZeroUint128, nil
	}
	if err != nil {
		return ir.Uint128{}, fmt.Errorf("balance of %s: %w", addr, err)
	}
	return parseAmount("balances.amount", amount)
}

// SetBalance overwrites the amount of denom held by addr.
func (o ops) SetBalance(ctx context.Context, addr ir.Addr, denom string, amount ir.Uint128) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO balances (address, denom, amount)
		VALUES (?, ?, ?)
		ON CONFLICT(address, denom) DO UPDATE SET amount = excluded.amount
	`, string(addr), denom, amount.String())
	if err != nil {
		return fmt.Errorf("set balance of %s: %w", addr, err)
	}
	return nil
}

// Fund credits amount of denom to addr and returns the new balance.
func (o ops) Fund(ctx context.Context, addr ir.Addr, denom string, amount ir.Uint128) (ir.Uint128, error) {
	current, err := o.Balance(ctx, addr, denom)
	if err != nil {
		return ir.Uint128{}, err
	}
	next, err := current.CheckedAdd(amount)
	if err != nil {
		return ir.Uint128{}, fmt.Errorf("fund %s: %w", addr, err)
	}
	if err := o.SetBalance(ctx, addr, denom, next); err != nil {
		return ir.Uint128{}, err
	}
	return next, nil
}

// Send moves coins from one account to another. Coins are applied in order;
// the caller's transaction rolls back partial sends on error.
// A debit larger than the balance returns ErrInsufficientBalance.
func (o ops) Send(ctx context.Context, from, to ir.Addr, coins []ir.Coin) error {
	for _, coin := range coins {
		have, err := o.Balance(ctx, from, coin.Denom)
		if err != nil {
			return err
		}
		left, err := have.CheckedSub(coin.Amount)
		if err != nil {
			return fmt.Errorf("send %s%s from %s (balance %s): %w",
				coin.Amount, coin.Denom, from, have, ErrInsufficientBalance)
		}
		if err := o.SetBalance(ctx, from, coin.Denom, left); err != nil {
			return err
		}
		if _, err := o.Fund(ctx, to, coin.Denom, coin.Amount); err != nil {
			return fmt.Errorf("send to %s: %w", to, err)
		}
	}
	return nil
}

// Holding is one account's balance in a denomination.
type Holding struct {
	Address ir.Addr    `json:"address"`
	Amount  ir.Uint128 `json:"amount"`
}

// Holdings lists every account holding denom, ordered by address.
func (o ops) Holdings(ctx context.Context, denom string) ([]Holding, error) {
	rows, err := o.q.QueryContext(ctx, `
		SELECT address, amount FROM balances
		WHERE denom = ?
		ORDER BY address COLLATE BINARY ASC
	`, denom)
	if err != nil {
		return nil, fmt.Errorf("query balances: %w", err)
	}
	defer rows.Close()

	holdings := []Holding{}
	for rows.Next() {
		var addr, amount string
		if err := rows.Scan(&addr, &amount); err != nil {
			return nil, fmt.Errorf("scan balance: %w", err)
		}
		a, err := parseAmount("balances.amount", amount)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, Holding{Address: ir.Addr(addr), Amount: a})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balances: %w", err)
	}
	return holdings, nil
}

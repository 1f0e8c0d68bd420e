package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/tokensender/internal/ir"
)

// LoadState reads the singleton limit record.
// Returns an error wrapping ir.ErrRecordNotFound before instantiation.
func (o ops) LoadState(ctx context.Context) (ir.LimitRecord, error) {
	var count, owner string
	err := o.q.QueryRowContext(ctx, `
		SELECT count, owner FROM contract_state WHERE key = 'state'
	`).Scan(&count, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.LimitRecord{}, fmt.Errorf("load state: %w", ir.ErrRecordNotFound)
	}
	if err != nil {
		return ir.LimitRecord{}, fmt.Errorf("load state: %w", err)
	}

	c, err := parseAmount("count", count)
	if err != nil {
		return ir.LimitRecord{}, fmt.Errorf("load state: %w", err)
	}
	return ir.LimitRecord{Count: c, Owner: ir.Addr(owner)}, nil
}

// SaveState writes the singleton limit record, replacing any previous value.
func (o ops) SaveState(ctx context.Context, rec ir.LimitRecord) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO contract_state (key, count, owner)
		VALUES ('state', ?, ?)
		ON CONFLICT(key) DO UPDATE SET count = excluded.count, owner = excluded.owner
	`, rec.Count.String(), string(rec.Owner))
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// SaveContractInfo records the contract name and version.
func (o ops) SaveContractInfo(ctx context.Context, info ir.ContractInfo) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO contract_info (key, contract, version)
		VALUES ('contract_info', ?, ?)
		ON CONFLICT(key) DO UPDATE SET contract = excluded.contract, version = excluded.version
	`, info.Contract, info.Version)
	if err != nil {
		return fmt.Errorf("save contract info: %w", err)
	}
	return nil
}

// ContractInfo reads the contract name and version.
// Returns an error wrapping ir.ErrRecordNotFound before instantiation.
func (o ops) ContractInfo(ctx context.Context) (ir.ContractInfo, error) {
	var info ir.ContractInfo
	err := o.q.QueryRowContext(ctx, `
		SELECT contract, version FROM contract_info WHERE key = 'contract_info'
	`).Scan(&info.Contract, &info.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.ContractInfo{}, fmt.Errorf("contract info: %w", ir.ErrRecordNotFound)
	}
	if err != nil {
		return ir.ContractInfo{}, fmt.Errorf("contract info: %w", err)
	}
	return info, nil
}

// Package ledger implements the limit ledger: a single owner-bound counter
// that can be raised, set against the owner's balance, and consumed by
// transfers, plus the two transfer-emitting operations.
//
// The ledger never moves funds itself. Operations return an ir.Response
// whose BankSend messages the engine applies inside the same transaction
// that persisted the new state.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/roach88/tokensender/internal/ir"
)

// DefaultDenom is the denomination used when none is configured.
const DefaultDenom = "token"

// Store loads and saves the singleton limit record.
// *store.Store and *store.Tx implement it.
type Store interface {
	LoadState(ctx context.Context) (ir.LimitRecord, error)
	SaveState(ctx context.Context, rec ir.LimitRecord) error
	SaveContractInfo(ctx context.Context, info ir.ContractInfo) error
}

// BalanceOracle answers balance queries.
type BalanceOracle interface {
	Balance(ctx context.Context, addr ir.Addr, denom string) (ir.Uint128, error)
}

// AddressValidator turns user-supplied strings into validated addresses.
type AddressValidator interface {
	Validate(s string) (ir.Addr, error)
}

// Config holds the fixed parameters of a ledger.
type Config struct {
	// ContractAddress is the ledger's own account.
	ContractAddress ir.Addr

	// Denom is the only denomination the ledger deals in.
	Denom string
}

// Ledger executes limit operations against one store and one oracle.
// A Ledger is cheap; the engine builds one per request, bound to that
// request's transaction.
type Ledger struct {
	store  Store
	oracle BalanceOracle
	addrs  AddressValidator
	cfg    Config
}

// New creates a Ledger.
func New(store Store, oracle BalanceOracle, addrs AddressValidator, cfg Config) *Ledger {
	if cfg.Denom == "" {
		cfg.Denom = DefaultDenom
	}
	return &Ledger{store: store, oracle: oracle, addrs: addrs, cfg: cfg}
}

// Denom returns the ledger's denomination.
func (l *Ledger) Denom() string {
	return l.cfg.Denom
}

// Instantiate creates the limit record with count = msg.Limit and
// owner = caller, and records the contract version.
func (l *Ledger) Instantiate(ctx context.Context, caller ir.Addr, msg ir.InstantiateMsg) (ir.Response, error) {
	slog.Debug("instantiate", "owner", caller, "limit", msg.Limit)

	existing, err := l.store.LoadState(ctx)
	switch {
	case err == nil:
		return ir.Response{}, NewAlreadyInstantiated(existing.Owner.String())
	case !errors.Is(err, ir.ErrRecordNotFound):
		return ir.Response{}, NewStoreError("load state", err)
	}

	info := ir.ContractInfo{Contract: ir.ContractName, Version: ir.ContractVersion}
	if err := l.store.SaveContractInfo(ctx, info); err != nil {
		return ir.Response{}, NewStoreError("save contract info", err)
	}
	if err := l.store.SaveState(ctx, ir.LimitRecord{Count: msg.Limit, Owner: caller}); err != nil {
		return ir.Response{}, NewStoreError("save state", err)
	}

	return ir.NewResponse().
		AddAttribute("method", "instantiate").
		AddAttribute("owner", caller.String()).
		AddAttribute("count", msg.Limit.String()), nil
}

// Execute dispatches a user-facing request. caller is the validated
// identity of whoever sent it.
func (l *Ledger) Execute(ctx context.Context, caller ir.Addr, msg ir.ExecuteMsg) (ir.Response, error) {
	switch {
	case msg.IncrementLimit != nil:
		return l.IncrementLimit(ctx)
	case msg.UpdateLimit != nil:
		return l.UpdateLimit(ctx, msg.UpdateLimit.Limit)
	case msg.UpdateLimitWithoutCheck != nil:
		return l.UpdateLimitWithoutCheck(ctx, msg.UpdateLimitWithoutCheck.Limit)
	case msg.SendTokens != nil:
		return l.SendTokens(ctx, msg.SendTokens.Recipient, msg.SendTokens.Amount)
	case msg.TransferTokens != nil:
		m := msg.TransferTokens
		return l.TransferTokens(ctx, caller, m.Sender, m.Recipient, m.Amount)
	}
	return ir.Response{}, NewInvalidRequest(errors.New("execute message has no variant"))
}

// Sudo dispatches a privileged request. There is no caller identity: the
// platform only routes trusted callers here.
func (l *Ledger) Sudo(ctx context.Context, msg ir.SudoMsg) (ir.Response, error) {
	if msg.SendTokenToContract != nil {
		return l.SendTokenToContract(ctx, msg.SendTokenToContract.Amount)
	}
	return ir.Response{}, NewInvalidRequest(errors.New("sudo message has no variant"))
}

// Query answers a read-only request with its JSON response body.
func (l *Ledger) Query(ctx context.Context, msg ir.QueryMsg) ([]byte, error) {
	var (
		resp any
		err  error
	)
	switch {
	case msg.GetLimit != nil:
		resp, err = l.GetLimit(ctx)
	case msg.GetValidator != nil:
		resp, err = l.GetValidator(ctx)
	default:
		return nil, NewInvalidRequest(errors.New("query message has no variant"))
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(resp)
}

// IncrementLimit raises the count by exactly one. Anyone may call it.
func (l *Ledger) IncrementLimit(ctx context.Context) (ir.Response, error) {
	rec, err := l.load(ctx)
	if err != nil {
		return ir.Response{}, err
	}

	next, err := rec.Count.CheckedAdd(ir.NewUint128(1))
	if err != nil {
		return ir.Response{}, NewOverflow("increment limit", err)
	}
	rec.Count = next

	if err := l.save(ctx, rec); err != nil {
		return ir.Response{}, err
	}
	return ir.NewResponse(), nil
}

// UpdateLimit sets the count to limit if the owner's balance covers it.
// The balance is read once; see the engine for when that read and the
// write share a transaction.
func (l *Ledger) UpdateLimit(ctx context.Context, limit ir.Uint128) (ir.Response, error) {
	slog.Debug("update_limit", "limit", limit)

	rec, err := l.load(ctx)
	if err != nil {
		return ir.Response{}, err
	}

	balance, err := l.oracle.Balance(ctx, rec.Owner, l.cfg.Denom)
	if err != nil {
		return ir.Response{}, NewOracleError(rec.Owner.String(), err)
	}
	slog.Debug("update_limit: current balance", "owner", rec.Owner, "balance", balance, "denom", l.cfg.Denom)

	if limit.GT(balance) {
		return ir.Response{}, NewInsufficientFunds("owner balance", limit, balance)
	}

	rec.Count = limit
	if err := l.save(ctx, rec); err != nil {
		return ir.Response{}, err
	}
	return ir.NewResponse().AddAttribute("action", "update_limit"), nil
}

// UpdateLimitWithoutCheck sets the count to limit unconditionally.
// It checks neither balance nor caller.
func (l *Ledger) UpdateLimitWithoutCheck(ctx context.Context, limit ir.Uint128) (ir.Response, error) {
	rec, err := l.load(ctx)
	if err != nil {
		return ir.Response{}, err
	}

	rec.Count = limit
	if err := l.save(ctx, rec); err != nil {
		return ir.Response{}, err
	}
	return ir.NewResponse().AddAttribute("action", "update_limit_without_check"), nil
}

// SendTokenToContract consumes amount from the count and emits a transfer
// of amount from the contract to itself.
func (l *Ledger) SendTokenToContract(ctx context.Context, amount ir.Uint128) (ir.Response, error) {
	slog.Debug("send_token_to_contract", "amount", amount)

	rec, err := l.load(ctx)
	if err != nil {
		return ir.Response{}, err
	}

	left, err := rec.Count.CheckedSub(amount)
	if err != nil {
		return ir.Response{}, NewInsufficientFunds("limit", amount, rec.Count)
	}

	contract := l.cfg.ContractAddress
	send := ir.BankSend{
		From:      contract,
		ToAddress: contract,
		Amount:    []ir.Coin{{Denom: l.cfg.Denom, Amount: amount}},
	}

	rec.Count = left
	if err := l.save(ctx, rec); err != nil {
		return ir.Response{}, err
	}

	return ir.NewResponse().
		AddMessage(send).
		AddAttribute("action", "transfer").
		AddAttribute("from", rec.Owner.String()).
		AddAttribute("to", contract.String()).
		AddAttribute("amount", amount.String()), nil
}

// SendTokens emits a transfer of amount from the contract's holdings to
// recipient. Anyone may call it and the count is not touched.
func (l *Ledger) SendTokens(ctx context.Context, recipient string, amount ir.Uint128) (ir.Response, error) {
	slog.Debug("send_tokens", "recipient", recipient, "amount", amount)

	to, err := l.addrs.Validate(recipient)
	if err != nil {
		return ir.Response{}, NewInvalidAddress("recipient", recipient, err)
	}

	send := ir.BankSend{
		From:      l.cfg.ContractAddress,
		ToAddress: to,
		Amount:    []ir.Coin{{Denom: l.cfg.Denom, Amount: amount}},
	}
	return ir.NewResponse().
		AddMessage(send).
		AddAttribute("action", "send_tokens"), nil
}

// TransferTokens emits a transfer of amount from sender to recipient.
// The caller must be sender.
func (l *Ledger) TransferTokens(ctx context.Context, caller ir.Addr, sender, recipient string, amount ir.Uint128) (ir.Response, error) {
	from, err := l.addrs.Validate(sender)
	if err != nil {
		return ir.Response{}, NewInvalidAddress("sender", sender, err)
	}
	to, err := l.addrs.Validate(recipient)
	if err != nil {
		return ir.Response{}, NewInvalidAddress("recipient", recipient, err)
	}

	if caller != from {
		return ir.Response{}, NewUnauthorized(caller.String(), from.String())
	}

	send := ir.BankSend{
		From:      from,
		ToAddress: to,
		Amount:    []ir.Coin{{Denom: l.cfg.Denom, Amount: amount}},
	}
	return ir.NewResponse().
		AddMessage(send).
		AddAttribute("action", "transfer_tokens").
		AddAttribute("sender", sender).
		AddAttribute("recipient", recipient).
		AddAttribute("amount", amount.String()), nil
}

// GetLimit returns the current count.
func (l *Ledger) GetLimit(ctx context.Context) (ir.GetLimitResponse, error) {
	slog.Debug("get_limit")

	rec, err := l.load(ctx)
	if err != nil {
		return ir.GetLimitResponse{}, err
	}
	return ir.GetLimitResponse{Limit: rec.Count}, nil
}

// GetValidator returns the owner.
func (l *Ledger) GetValidator(ctx context.Context) (ir.GetValidatorResponse, error) {
	slog.Debug("get_validator")

	rec, err := l.load(ctx)
	if err != nil {
		return ir.GetValidatorResponse{}, err
	}
	return ir.GetValidatorResponse{Validator: rec.Owner.String()}, nil
}

func (l *Ledger) load(ctx context.Context) (ir.LimitRecord, error) {
	rec, err := l.store.LoadState(ctx)
	if errors.Is(err, ir.ErrRecordNotFound) {
		return ir.LimitRecord{}, NewNotInstantiated()
	}
	if err != nil {
		return ir.LimitRecord{}, NewStoreError("load state", err)
	}
	return rec, nil
}

func (l *Ledger) save(ctx context.Context, rec ir.LimitRecord) error {
	if err := l.store.SaveState(ctx, rec); err != nil {
		return NewStoreError("save state", err)
	}
	return nil
}

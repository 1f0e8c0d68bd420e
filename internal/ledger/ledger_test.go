package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tokensender/internal/address"
	"github.com/roach88/tokensender/internal/ir"
)

var (
	owner    = address.Derive("cosmos", "owner")
	alice    = address.Derive("cosmos", "alice")
	bob      = address.Derive("cosmos", "bob")
	contract = address.DeriveContract("cosmos", "tokensender")
)

// memStore is an in-memory Store with injectable failures.
type memStore struct {
	rec     *ir.LimitRecord
	info    *ir.ContractInfo
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) LoadState(ctx context.Context) (ir.LimitRecord, error) {
	if m.loadErr != nil {
		return ir.LimitRecord{}, m.loadErr
	}
	if m.rec == nil {
		return ir.LimitRecord{}, ir.ErrRecordNotFound
	}
	return *m.rec, nil
}

func (m *memStore) SaveState(ctx context.Context, rec ir.LimitRecord) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.rec = &rec
	return nil
}

func (m *memStore) SaveContractInfo(ctx context.Context, info ir.ContractInfo) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.info = &info
	return nil
}

// fakeOracle returns fixed balances.
type fakeOracle struct {
	balances map[ir.Addr]ir.Uint128
	err      error
	calls    int
}

func (f *fakeOracle) Balance(ctx context.Context, addr ir.Addr, denom string) (ir.Uint128, error) {
	f.calls++
	if f.err != nil {
		return ir.Uint128{}, f.err
	}
	return f.balances[addr], nil
}

func newTestLedger(t *testing.T, limit uint64, ownerBalance uint64) (*Ledger, *memStore, *fakeOracle) {
	t.Helper()
	st := &memStore{}
	or := &fakeOracle{balances: map[ir.Addr]ir.Uint128{owner: ir.NewUint128(ownerBalance)}}
	l := New(st, or, address.NewValidator("cosmos"), Config{ContractAddress: contract})

	_, err := l.Instantiate(context.Background(), owner, ir.InstantiateMsg{Limit: ir.NewUint128(limit)})
	require.NoError(t, err)
	return l, st, or
}

func limitOf(t *testing.T, l *Ledger) string {
	t.Helper()
	resp, err := l.GetLimit(context.Background())
	require.NoError(t, err)
	return resp.Limit.String()
}

func TestInstantiate(t *testing.T) {
	st := &memStore{}
	l := New(st, &fakeOracle{}, address.NewValidator("cosmos"), Config{ContractAddress: contract})
	ctx := context.Background()

	resp, err := l.Instantiate(ctx, owner, ir.InstantiateMsg{Limit: ir.NewUint128(100)})
	require.NoError(t, err)

	assert.Empty(t, resp.Messages)
	assert.Equal(t, []ir.Attribute{
		{Key: "method", Value: "instantiate"},
		{Key: "owner", Value: owner.String()},
		{Key: "count", Value: "100"},
	}, resp.Attributes)

	assert.Equal(t, "100", limitOf(t, l))
	v, err := l.GetValidator(ctx)
	require.NoError(t, err)
	assert.Equal(t, owner.String(), v.Validator)

	require.NotNil(t, st.info)
	assert.Equal(t, ir.ContractName, st.info.Contract)
	assert.Equal(t, DefaultDenom, l.Denom())
}

func TestInstantiate_Twice(t *testing.T) {
	l, _, _ := newTestLedger(t, 100, 0)

	_, err := l.Instantiate(context.Background(), alice, ir.InstantiateMsg{Limit: ir.NewUint128(5)})
	require.Error(t, err)
	assert.True(t, IsAlreadyInstantiated(err))

	v, err := l.GetValidator(context.Background())
	require.NoError(t, err)
	assert.Equal(t, owner.String(), v.Validator, "owner is immutable")
	assert.Equal(t, "100", limitOf(t, l))
}

func TestOperations_BeforeInstantiate(t *testing.T) {
	l := New(&memStore{}, &fakeOracle{}, address.NewValidator("cosmos"), Config{ContractAddress: contract})
	ctx := context.Background()

	_, err := l.IncrementLimit(ctx)
	assert.True(t, IsNotInstantiated(err))
	_, err = l.GetLimit(ctx)
	assert.True(t, IsNotInstantiated(err))
	_, err = l.SendTokenToContract(ctx, ir.NewUint128(1))
	assert.True(t, IsNotInstantiated(err))
}

func TestIncrementLimit_NTimes(t *testing.T) {
	l, _, _ := newTestLedger(t, 7, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		resp, err := l.IncrementLimit(ctx)
		require.NoError(t, err)
		assert.Empty(t, resp.Attributes)
		assert.Empty(t, resp.Messages)

		// Interleaved reads change nothing.
		_, err = l.GetValidator(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, "12", limitOf(t, l))
}

func TestIncrementLimit_Overflow(t *testing.T) {
	l, st, _ := newTestLedger(t, 0, 0)
	ctx := context.Background()

	_, err := l.UpdateLimitWithoutCheck(ctx, ir.MaxUint128())
	require.NoError(t, err)
	saves := st.saves

	_, err = l.IncrementLimit(ctx)
	require.Error(t, err)
	assert.True(t, IsOverflow(err))
	assert.Equal(t, saves, st.saves, "nothing saved on overflow")
	assert.Equal(t, ir.MaxUint128().String(), limitOf(t, l))
}

func TestUpdateLimit(t *testing.T) {
	tests := []struct {
		name    string
		limit   uint64
		balance uint64
		wantErr bool
		want    string
	}{
		{name: "below balance", limit: 80, balance: 120, want: "80"},
		{name: "equal to balance", limit: 120, balance: 120, want: "120"},
		{name: "above balance", limit: 150, balance: 120, wantErr: true, want: "100"},
		{name: "zero balance", limit: 1, balance: 0, wantErr: true, want: "100"},
		{name: "zero limit", limit: 0, balance: 0, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _, or := newTestLedger(t, 100, tt.balance)

			resp, err := l.UpdateLimit(context.Background(), ir.NewUint128(tt.limit))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsInsufficientFunds(err), "got %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, []ir.Attribute{{Key: "action", Value: "update_limit"}}, resp.Attributes)
			}
			assert.Equal(t, 1, or.calls)
			assert.Equal(t, tt.want, limitOf(t, l))
		})
	}
}

func TestUpdateLimit_OracleFailure(t *testing.T) {
	l, _, or := newTestLedger(t, 100, 0)
	down := errors.New("oracle down")
	or.err = down

	_, err := l.UpdateLimit(context.Background(), ir.NewUint128(1))
	require.Error(t, err)
	assert.True(t, IsOracleError(err))
	assert.True(t, errors.Is(err, down))
	assert.Equal(t, "100", limitOf(t, l))
}

func TestUpdateLimitWithoutCheck(t *testing.T) {
	for _, v := range []string{"0", "3", "1000000", "340282366920938463463374607431768211455"} {
		l, _, or := newTestLedger(t, 100, 0)

		resp, err := l.UpdateLimitWithoutCheck(context.Background(), ir.MustParseUint128(v))
		require.NoError(t, err)
		assert.Equal(t, []ir.Attribute{{Key: "action", Value: "update_limit_without_check"}}, resp.Attributes)
		assert.Equal(t, v, limitOf(t, l))
		assert.Zero(t, or.calls, "no balance check")
	}
}

func TestSendTokenToContract(t *testing.T) {
	l, _, _ := newTestLedger(t, 50, 0)

	resp, err := l.SendTokenToContract(context.Background(), ir.NewUint128(30))
	require.NoError(t, err)

	assert.Equal(t, "20", limitOf(t, l))
	require.Len(t, resp.Messages, 1)
	msg := resp.Messages[0]
	assert.Equal(t, contract, msg.From)
	assert.Equal(t, contract, msg.ToAddress)
	assert.Equal(t, []ir.Coin{{Denom: "token", Amount: ir.NewUint128(30)}}, msg.Amount)
	assert.Equal(t, []ir.Attribute{
		{Key: "action", Value: "transfer"},
		{Key: "from", Value: owner.String()},
		{Key: "to", Value: contract.String()},
		{Key: "amount", Value: "30"},
	}, resp.Attributes)
}

func TestSendTokenToContract_ExceedsLimit(t *testing.T) {
	l, st, _ := newTestLedger(t, 50, 0)
	saves := st.saves

	resp, err := l.SendTokenToContract(context.Background(), ir.NewUint128(51))
	require.Error(t, err)
	assert.True(t, IsInsufficientFunds(err))
	assert.Empty(t, resp.Messages)
	assert.Equal(t, saves, st.saves)
	assert.Equal(t, "50", limitOf(t, l))
}

func TestSendTokenToContract_WholeLimit(t *testing.T) {
	l, _, _ := newTestLedger(t, 50, 0)

	_, err := l.SendTokenToContract(context.Background(), ir.NewUint128(50))
	require.NoError(t, err)
	assert.Equal(t, "0", limitOf(t, l))
}

func TestSendTokens(t *testing.T) {
	l, _, _ := newTestLedger(t, 50, 0)

	resp, err := l.SendTokens(context.Background(), bob.String(), ir.NewUint128(9))
	require.NoError(t, err)

	require.Len(t, resp.Messages, 1)
	assert.Equal(t, contract, resp.Messages[0].From)
	assert.Equal(t, bob, resp.Messages[0].ToAddress)
	assert.Equal(t, []ir.Attribute{{Key: "action", Value: "send_tokens"}}, resp.Attributes)
	assert.Equal(t, "50", limitOf(t, l), "count untouched")
}

func TestSendTokens_InvalidRecipient(t *testing.T) {
	l, _, _ := newTestLedger(t, 50, 0)

	resp, err := l.SendTokens(context.Background(), "not-an-address", ir.NewUint128(9))
	require.Error(t, err)
	assert.True(t, IsInvalidAddress(err))
	assert.True(t, errors.Is(err, address.ErrInvalidAddress))
	assert.Empty(t, resp.Messages)
}

func TestTransferTokens(t *testing.T) {
	l, _, _ := newTestLedger(t, 50, 0)

	resp, err := l.TransferTokens(context.Background(), alice, alice.String(), bob.String(), ir.NewUint128(5))
	require.NoError(t, err)

	require.Len(t, resp.Messages, 1)
	assert.Equal(t, alice, resp.Messages[0].From)
	assert.Equal(t, bob, resp.Messages[0].ToAddress)
	assert.Equal(t, []ir.Attribute{
		{Key: "action", Value: "transfer_tokens"},
		{Key: "sender", Value: alice.String()},
		{Key: "recipient", Value: bob.String()},
		{Key: "amount", Value: "5"},
	}, resp.Attributes)
	assert.Equal(t, "50", limitOf(t, l))
}

func TestTransferTokens_Errors(t *testing.T) {
	l, _, _ := newTestLedger(t, 50, 0)
	ctx := context.Background()

	resp, err := l.TransferTokens(ctx, bob, alice.String(), bob.String(), ir.NewUint128(5))
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Empty(t, resp.Messages)

	_, err = l.TransferTokens(ctx, owner, owner.String(), bob.String(), ir.NewUint128(5))
	require.NoError(t, err, "owner has no special standing but may move its own funds")

	_, err = l.TransferTokens(ctx, alice, "bad", bob.String(), ir.NewUint128(5))
	assert.True(t, IsInvalidAddress(err))

	_, err = l.TransferTokens(ctx, alice, alice.String(), "bad", ir.NewUint128(5))
	assert.True(t, IsInvalidAddress(err))
}

func TestStoreFailures(t *testing.T) {
	l, st, _ := newTestLedger(t, 50, 100)
	ctx := context.Background()
	st.saveErr = errors.New("disk full")

	_, err := l.IncrementLimit(ctx)
	assert.True(t, IsStoreError(err))
	_, err = l.UpdateLimit(ctx, ir.NewUint128(10))
	assert.True(t, IsStoreError(err))

	resp, err := l.SendTokenToContract(ctx, ir.NewUint128(10))
	assert.True(t, IsStoreError(err))
	assert.Empty(t, resp.Messages, "no message escapes a failed save")

	st.saveErr = nil
	st.loadErr = errors.New("io error")
	_, err = l.GetLimit(ctx)
	assert.True(t, IsStoreError(err))
}

func TestDispatch(t *testing.T) {
	l, _, _ := newTestLedger(t, 10, 100)
	ctx := context.Background()

	exec := func(raw string) (ir.Response, error) {
		msg, err := ir.ParseExecuteMsg([]byte(raw))
		require.NoError(t, err)
		return l.Execute(ctx, alice, msg)
	}

	_, err := exec(`{"increment_limit":{}}`)
	require.NoError(t, err)
	_, err = exec(`{"update_limit":{"limit":"60"}}`)
	require.NoError(t, err)
	_, err = exec(`{"update_limit_without_check":{"limit":"70"}}`)
	require.NoError(t, err)
	resp, err := exec(`{"transfer_tokens":{"sender":"` + alice.String() + `","recipient":"` + bob.String() + `","amount":"3"}}`)
	require.NoError(t, err)
	assert.Len(t, resp.Messages, 1)

	_, err = l.Execute(ctx, alice, ir.ExecuteMsg{})
	assert.True(t, IsInvalidRequest(err))

	sudo, err := ir.ParseSudoMsg([]byte(`{"send_token_to_contract":{"amount":"20"}}`))
	require.NoError(t, err)
	_, err = l.Sudo(ctx, sudo)
	require.NoError(t, err)

	q, err := ir.ParseQueryMsg([]byte(`{"get_limit":{}}`))
	require.NoError(t, err)
	data, err := l.Query(ctx, q)
	require.NoError(t, err)
	assert.JSONEq(t, `{"limit":"50"}`, string(data))

	q, err = ir.ParseQueryMsg([]byte(`{"get_validator":{}}`))
	require.NoError(t, err)
	data, err = l.Query(ctx, q)
	require.NoError(t, err)
	var v ir.GetValidatorResponse
	require.NoError(t, json.Unmarshal(data, &v))
	assert.Equal(t, owner.String(), v.Validator)
}

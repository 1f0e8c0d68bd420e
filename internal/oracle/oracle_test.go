package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tokensender/internal/ir"
	"github.com/roach88/tokensender/internal/store"
)

func TestBankOracle_ReadsStore(t *testing.T) {
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	ctx := context.Background()
	_, err = s.Fund(ctx, "cosmos1owner", "token", ir.NewUint128(120))
	require.NoError(t, err)

	o := NewBankOracle(s)

	bal, err := o.Balance(ctx, "cosmos1owner", "token")
	require.NoError(t, err)
	assert.Equal(t, "120", bal.String())

	bal, err = o.Balance(ctx, "cosmos1other", "token")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

type fakeHash struct {
	values  map[string]map[string]string
	err     error
	pingErr error
	keys    []string
}

func (f *fakeHash) HGet(ctx context.Context, key, field string) *redis.StringCmd {
	f.keys = append(f.keys, key)
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	v, ok := f.values[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeHash) Ping(ctx context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", f.pingErr)
}

func TestRedisOracle_Balance(t *testing.T) {
	fake := &fakeHash{values: map[string]map[string]string{
		"tokensender:balances:token": {"cosmos1owner": "120"},
	}}
	o := newRedisOracle(fake)

	bal, err := o.Balance(context.Background(), "cosmos1owner", "token")
	require.NoError(t, err)
	assert.Equal(t, "120", bal.String())
	assert.Equal(t, []string{"tokensender:balances:token"}, fake.keys)
}

func TestRedisOracle_MissingFieldIsZero(t *testing.T) {
	o := newRedisOracle(&fakeHash{values: map[string]map[string]string{}})

	bal, err := o.Balance(context.Background(), "cosmos1nobody", "token")
	require.NoError(t, err)
	assert.True(t, bal.IsZero())
}

func TestRedisOracle_Prefix(t *testing.T) {
	fake := &fakeHash{values: map[string]map[string]string{
		"chain:bank:token": {"cosmos1owner": "5"},
	}}
	o := newRedisOracle(fake, WithPrefix(":chain:bank:"))

	assert.Equal(t, "chain:bank:token", o.Key("token"))
	bal, err := o.Balance(context.Background(), "cosmos1owner", "token")
	require.NoError(t, err)
	assert.Equal(t, "5", bal.String())
}

func TestRedisOracle_Errors(t *testing.T) {
	down := errors.New("connection refused")

	_, err := newRedisOracle(&fakeHash{err: down}).Balance(context.Background(), "cosmos1owner", "token")
	require.Error(t, err)
	assert.True(t, errors.Is(err, down))

	corrupt := &fakeHash{values: map[string]map[string]string{
		"tokensender:balances:token": {"cosmos1owner": "-3"},
	}}
	_, err = newRedisOracle(corrupt).Balance(context.Background(), "cosmos1owner", "token")
	require.Error(t, err)
}

func TestRedisOracle_Ping(t *testing.T) {
	require.NoError(t, newRedisOracle(&fakeHash{}).Ping(context.Background()))

	err := newRedisOracle(&fakeHash{pingErr: errors.New("timeout")}).Ping(context.Background())
	require.Error(t, err)
}

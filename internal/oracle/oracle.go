// Package oracle answers balance queries for the ledger.
//
// Two sources exist: BankOracle reads the built-in bank inside the request's
// store transaction, and RedisOracle reads balances published to Redis by an
// external system.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/roach88/tokensender/internal/ir"
)

// BalanceReader reads bank balances. *store.Store and *store.Tx implement it.
type BalanceReader interface {
	Balance(ctx context.Context, addr ir.Addr, denom string) (ir.Uint128, error)
}

// BankOracle answers balance queries from the built-in bank.
// Bound to a store transaction, the balance read and the limit write share
// one SQLite write lock.
type BankOracle struct {
	bank BalanceReader
}

// NewBankOracle creates an oracle over bank.
func NewBankOracle(bank BalanceReader) *BankOracle {
	return &BankOracle{bank: bank}
}

// Balance returns the balance of addr in denom.
func (o *BankOracle) Balance(ctx context.Context, addr ir.Addr, denom string) (ir.Uint128, error) {
	bal, err := o.bank.Balance(ctx, addr, denom)
	if err != nil {
		return ir.Uint128{}, fmt.Errorf("bank oracle: %w", err)
	}
	return bal, nil
}

// hashClient is the subset of *redis.Client the oracle uses.
type hashClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisOracle reads balances from Redis hashes: one hash per denomination
// under "<prefix>:<denom>", with the address as field and a decimal amount
// as value. A missing field is a zero balance.
//
// Reads are snapshots: a balance can change between the read and the
// ledger's commit.
type RedisOracle struct {
	rdb    hashClient
	prefix string
}

// RedisOption configures a RedisOracle.
type RedisOption func(*RedisOracle)

// WithPrefix sets the key prefix. Surrounding colons are trimmed.
func WithPrefix(prefix string) RedisOption {
	return func(o *RedisOracle) {
		o.prefix = strings.Trim(prefix, ":")
	}
}

// NewRedisOracle creates an oracle reading through rdb.
// The default key prefix is "tokensender:balances".
func NewRedisOracle(rdb *redis.Client, opts ...RedisOption) *RedisOracle {
	return newRedisOracle(rdb, opts...)
}

func newRedisOracle(rdb hashClient, opts ...RedisOption) *RedisOracle {
	o := &RedisOracle{
		rdb:    rdb,
		prefix: "tokensender:balances",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Key returns the hash key holding balances of denom.
func (o *RedisOracle) Key(denom string) string {
	return o.prefix + ":" + denom
}

// Ping checks that Redis is reachable.
func (o *RedisOracle) Ping(ctx context.Context) error {
	if err := o.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis oracle: ping: %w", err)
	}
	return nil
}

// Balance returns the balance of addr in denom.
func (o *RedisOracle) Balance(ctx context.Context, addr ir.Addr, denom string) (ir.Uint128, error) {
	val, err := o.rdb.HGet(ctx, o.Key(denom), string(addr)).Result()
	if errors.Is(err, redis.Nil) {
		return ir.ZeroUint128, nil
	}
	if err != nil {
		return ir.Uint128{}, fmt.Errorf("redis oracle: balance of %s: %w", addr, err)
	}

	bal, err := ir.ParseUint128(strings.TrimSpace(val))
	if err != nil {
		return ir.Uint128{}, fmt.Errorf("redis oracle: balance of %s: %w", addr, err)
	}
	return bal, nil
}

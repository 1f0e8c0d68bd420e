package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/tokensender/internal/ir"
)

func TestError_Message(t *testing.T) {
	err := NewInsufficientFunds("owner balance", ir.NewUint128(150), ir.NewUint128(120))
	assert.Equal(t, "INSUFFICIENT_FUNDS: owner balance: requested 150 exceeds available 120", err.Error())
	assert.Equal(t, "150", err.Details["requested"])

	cause := errors.New("disk I/O error")
	se := NewStoreError("save state", cause)
	assert.Equal(t, "STORE_ERROR: save state: disk I/O error", se.Error())
	assert.True(t, errors.Is(se, cause))
}

func TestPredicates_Wrapped(t *testing.T) {
	err := fmt.Errorf("request 7: %w", NewUnauthorized("cosmos1a", "cosmos1b"))

	assert.True(t, IsUnauthorized(err))
	assert.False(t, IsInsufficientFunds(err))
	assert.Equal(t, ErrCodeUnauthorized, CodeOf(err))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
	assert.False(t, IsStoreError(nil))
}

package ir

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"lukechampine.com/uint128"
)

var (
	// ErrOverflow is returned when an addition exceeds 2^128-1.
	ErrOverflow = errors.New("uint128 overflow")

	// ErrUnderflow is returned when a subtraction would go below zero.
	ErrUnderflow = errors.New("uint128 underflow")
)

// Uint128 is an unsigned 128-bit token amount.
//
// Arithmetic is checked: CheckedAdd and CheckedSub return errors instead of
// wrapping. The JSON form is a quoted decimal string ("1000") in both
// directions; bare JSON numbers are rejected. Leading zeros parse ("007" is 7).
type Uint128 struct {
	v uint128.Uint128
}

// ZeroUint128 is the zero amount.
var ZeroUint128 = Uint128{}

// NewUint128 creates a Uint128 from a uint64.
func NewUint128(n uint64) Uint128 {
	return Uint128{v: uint128.From64(n)}
}

// MaxUint128 returns 2^128-1.
func MaxUint128() Uint128 {
	return Uint128{v: uint128.Max}
}

// ParseUint128 parses a base-10 string of ASCII digits.
// Signs, whitespace, and empty strings are rejected.
func ParseUint128(s string) (Uint128, error) {
	if s == "" {
		return Uint128{}, fmt.Errorf("parse uint128: empty string")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return Uint128{}, fmt.Errorf("parse uint128 %q: invalid digit", s)
		}
	}
	// Base 10 explicitly: fmt-style scanning would read "010" as octal.
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Uint128{}, fmt.Errorf("parse uint128 %q: invalid number", s)
	}
	if n.BitLen() > 128 {
		return Uint128{}, fmt.Errorf("parse uint128 %q: %w", s, ErrOverflow)
	}
	return Uint128{v: uint128.FromBig(n)}, nil
}

// MustParseUint128 is like ParseUint128 but panics on error.
// Use only in tests or for constants.
func MustParseUint128(s string) Uint128 {
	u, err := ParseUint128(s)
	if err != nil {
		panic(err)
	}
	return u
}

// String returns the base-10 representation.
func (u Uint128) String() string {
	return u.v.String()
}

// Cmp returns -1, 0, or +1 depending on whether u is less than, equal to,
// or greater than other.
func (u Uint128) Cmp(other Uint128) int {
	return u.v.Cmp(other.v)
}

// GT reports whether u > other.
func (u Uint128) GT(other Uint128) bool {
	return u.Cmp(other) > 0
}

// Equal reports whether u == other.
func (u Uint128) Equal(other Uint128) bool {
	return u.v.Equals(other.v)
}

// IsZero reports whether u == 0.
func (u Uint128) IsZero() bool {
	return u.v.IsZero()
}

// CheckedAdd returns u + other, or ErrOverflow.
func (u Uint128) CheckedAdd(other Uint128) (Uint128, error) {
	// headroom = Max - u; overflow iff other > headroom
	headroom := uint128.Max.Sub(u.v)
	if other.v.Cmp(headroom) > 0 {
		return Uint128{}, fmt.Errorf("%s + %s: %w", u, other, ErrOverflow)
	}
	return Uint128{v: u.v.Add(other.v)}, nil
}

// CheckedSub returns u - other, or ErrUnderflow.
func (u Uint128) CheckedSub(other Uint128) (Uint128, error) {
	if other.v.Cmp(u.v) > 0 {
		return Uint128{}, fmt.Errorf("%s - %s: %w", u, other, ErrUnderflow)
	}
	return Uint128{v: u.v.Sub(other.v)}, nil
}

// MarshalJSON encodes the amount as a quoted decimal string.
func (u Uint128) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

// UnmarshalJSON accepts a quoted decimal string only.
func (u *Uint128) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || data[0] != '"' {
		return fmt.Errorf("uint128: expected a decimal string, got %s", data)
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("uint128: %w", err)
	}
	parsed, err := ParseUint128(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

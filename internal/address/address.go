// Package address validates and derives bech32 account addresses.
package address

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/roach88/tokensender/internal/ir"
)

// DefaultPrefix is the human-readable part used when none is configured.
const DefaultPrefix = "cosmos"

// ErrInvalidAddress is wrapped by every validation failure.
var ErrInvalidAddress = errors.New("invalid address")

// Validator checks that strings are lowercase bech32 addresses with the
// configured human-readable prefix and a 20 or 32 byte payload.
type Validator struct {
	prefix string
}

// NewValidator returns a Validator for the given prefix.
func NewValidator(prefix string) *Validator {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Validator{prefix: prefix}
}

// Prefix returns the human-readable part this validator accepts.
func (v *Validator) Prefix() string {
	return v.prefix
}

// Validate returns the address as an ir.Addr, or an error wrapping
// ErrInvalidAddress.
func (v *Validator) Validate(s string) (ir.Addr, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	// Only the normalized form is accepted so that equality on ir.Addr is
	// equality of accounts.
	if strings.ToLower(s) != s {
		return "", fmt.Errorf("%w: %q is not normalized", ErrInvalidAddress, s)
	}

	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if hrp != v.prefix {
		return "", fmt.Errorf("%w: %q has prefix %q, want %q", ErrInvalidAddress, s, hrp, v.prefix)
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if len(raw) != 20 && len(raw) != 32 {
		return "", fmt.Errorf("%w: %q has %d byte payload", ErrInvalidAddress, s, len(raw))
	}

	return ir.Addr(s), nil
}

// FromBytes encodes a raw account payload as a bech32 address.
func FromBytes(prefix string, raw []byte) (ir.Addr, error) {
	data, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert bits: %w", err)
	}
	s, err := bech32.Encode(prefix, data)
	if err != nil {
		return "", fmt.Errorf("encode bech32: %w", err)
	}
	return ir.Addr(s), nil
}

// Derive returns a deterministic 20-byte address for a name.
// Used for the default contract address and for named test accounts.
func Derive(prefix, name string) ir.Addr {
	sum := sha256.Sum256([]byte(name))
	addr, err := FromBytes(prefix, sum[:20])
	if err != nil {
		// ConvertBits and Encode only fail on malformed input; a 20-byte
		// payload and a caller-chosen prefix are always encodable.
		panic(fmt.Sprintf("derive address %q: %v", name, err))
	}
	return addr
}

// DeriveContract returns the 32-byte contract address for a label.
func DeriveContract(prefix, label string) ir.Addr {
	sum := sha256.Sum256([]byte("contract/" + label))
	addr, err := FromBytes(prefix, sum[:])
	if err != nil {
		panic(fmt.Sprintf("derive contract address %q: %v", label, err))
	}
	return addr
}

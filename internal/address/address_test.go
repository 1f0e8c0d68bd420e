package address

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_DerivedAddresses(t *testing.T) {
	v := NewValidator("cosmos")

	for _, name := range []string{"owner", "alice", "bob"} {
		addr := Derive("cosmos", name)
		assert.True(t, strings.HasPrefix(string(addr), "cosmos1"))

		got, err := v.Validate(string(addr))
		require.NoError(t, err, name)
		assert.Equal(t, addr, got)
	}

	contract := DeriveContract("cosmos", "tokensender")
	_, err := v.Validate(string(contract))
	require.NoError(t, err)
}

func TestValidate_Deterministic(t *testing.T) {
	assert.Equal(t, Derive("cosmos", "alice"), Derive("cosmos", "alice"))
	assert.NotEqual(t, Derive("cosmos", "alice"), Derive("cosmos", "bob"))
	assert.NotEqual(t, Derive("cosmos", "alice"), Derive("osmo", "alice"))
}

func TestValidate_Rejects(t *testing.T) {
	v := NewValidator("cosmos")
	good := string(Derive("cosmos", "alice"))

	short, err := FromBytes("cosmos", []byte("short"))
	require.NoError(t, err)

	// Flip the final checksum character.
	last := good[len(good)-1]
	flipped := byte('q')
	if last == 'q' {
		flipped = 'p'
	}
	badChecksum := good[:len(good)-1] + string(flipped)

	tests := map[string]string{
		"empty":          "",
		"uppercase":      strings.ToUpper(good),
		"wrong prefix":   string(Derive("osmo", "alice")),
		"bad checksum":   badChecksum,
		"short payload":  string(short),
		"not bech32":     "alice",
		"trailing space": good + " ",
	}

	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := v.Validate(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidAddress), "error should wrap ErrInvalidAddress: %v", err)
		})
	}
}

func TestNewValidator_DefaultPrefix(t *testing.T) {
	assert.Equal(t, DefaultPrefix, NewValidator("").Prefix())
	assert.Equal(t, "osmo", NewValidator("osmo").Prefix())
}

package ir

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const maxUint128 = "340282366920938463463374607431768211455"

func TestParseUint128(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"0", "0", false},
		{"100", "100", false},
		{"007", "7", false},
		{"010", "10", false},
		{maxUint128, maxUint128, false},
		{"340282366920938463463374607431768211456", "", true},
		{"", "", true},
		{"-1", "", true},
		{"+1", "", true},
		{"1.5", "", true},
		{" 1", "", true},
		{"12abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseUint128(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestUint128CheckedArithmetic(t *testing.T) {
	sum, err := NewUint128(100).CheckedAdd(NewUint128(1))
	require.NoError(t, err)
	assert.Equal(t, "101", sum.String())

	diff, err := NewUint128(50).CheckedSub(NewUint128(30))
	require.NoError(t, err)
	assert.Equal(t, "20", diff.String())

	zero, err := NewUint128(30).CheckedSub(NewUint128(30))
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = NewUint128(30).CheckedSub(NewUint128(31))
	assert.True(t, errors.Is(err, ErrUnderflow))

	_, err = MaxUint128().CheckedAdd(NewUint128(1))
	assert.True(t, errors.Is(err, ErrOverflow))

	top, err := MustParseUint128("340282366920938463463374607431768211454").CheckedAdd(NewUint128(1))
	require.NoError(t, err)
	assert.Equal(t, maxUint128, top.String())
}

func TestUint128Compare(t *testing.T) {
	small, big := NewUint128(120), NewUint128(150)

	assert.True(t, big.GT(small))
	assert.False(t, small.GT(big))
	assert.False(t, small.GT(NewUint128(120)))
	assert.True(t, small.Equal(NewUint128(120)))
	assert.Equal(t, -1, small.Cmp(big))
	assert.True(t, ZeroUint128.IsZero())
}

func TestUint128JSON(t *testing.T) {
	data, err := json.Marshal(NewUint128(150))
	require.NoError(t, err)
	assert.Equal(t, `"150"`, string(data))

	var fromString Uint128
	require.NoError(t, json.Unmarshal([]byte(`"`+maxUint128+`"`), &fromString))
	assert.Equal(t, maxUint128, fromString.String())

	var padded Uint128
	require.NoError(t, json.Unmarshal([]byte(`"007"`), &padded))
	assert.Equal(t, "7", padded.String())

	var bad Uint128
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad), "bare numbers are not amounts")
	assert.Error(t, json.Unmarshal([]byte(`null`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`""`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`"-5"`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`4.2`), &bad))
	assert.Error(t, json.Unmarshal([]byte(`true`), &bad))
}

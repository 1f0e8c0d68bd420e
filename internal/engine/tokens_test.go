package engine

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_ValidFormat(t *testing.T) {
	token := UUIDv7Generator{}.Generate()

	assert.Len(t, token, 36)
	parsed, err := uuid.Parse(token)
	require.NoError(t, err, "token should be valid UUID")
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestUUIDv7Generator_Uniqueness(t *testing.T) {
	gen := UUIDv7Generator{}
	const iterations = 1000

	tokens := make(map[string]bool, iterations)
	for i := 0; i < iterations; i++ {
		token := gen.Generate()
		require.False(t, tokens[token], "token %s generated twice", token)
		tokens[token] = true
	}
}

func TestFixedGenerator_InOrder(t *testing.T) {
	gen := NewFixedGenerator("req-1", "req-2")

	assert.Equal(t, "req-1", gen.Generate())
	assert.Equal(t, "req-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

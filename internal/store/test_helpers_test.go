package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/tokensender/internal/ir"
)

// createTestStore opens a fresh file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestInvocation creates a test invocation with minimal required fields.
func createTestInvocation(id, action string, seq int64) ir.Invocation {
	return ir.Invocation{
		ID:           id,
		RequestToken: "token-" + id,
		Kind:         ir.KindExecute,
		Action:       action,
		Sender:       "cosmos1sender",
		Args:         ir.IRObject{},
		Seq:          seq,
	}
}

// createTestCompletion creates a test completion with minimal required fields.
func createTestCompletion(id, invocationID, outcome string, seq int64) ir.Completion {
	return ir.Completion{
		ID:           id,
		InvocationID: invocationID,
		Outcome:      outcome,
		Result:       ir.IRObject{},
		Seq:          seq,
	}
}

package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/tokensender/internal/ir"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	tables := []string{"contract_state", "contract_info", "balances", "invocations", "completions"}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.SaveState(ctx, ir.LimitRecord{Count: ir.NewUint128(7), Owner: "cosmos1owner"}); err != nil {
		t.Fatalf("SaveState() failed: %v", err)
	}
	rec, err := s.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState() failed: %v", err)
	}
	if rec.Count.String() != "7" {
		t.Errorf("count = %s, want 7", rec.Count)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	if err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	pragmas := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1",
		"busy_timeout": "5000",
		"foreign_keys": "1",
	}
	for name, want := range pragmas {
		if err := s.verifyPragma(name, want); err != nil {
			t.Error(err)
		}
	}
}

func TestUpdate_CommitsOnSuccess(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, func(tx *Tx) error {
		return tx.SaveState(ctx, ir.LimitRecord{Count: ir.NewUint128(100), Owner: "cosmos1owner"})
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	rec, err := s.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState() failed: %v", err)
	}
	if rec.Count.String() != "100" || rec.Owner != "cosmos1owner" {
		t.Errorf("state = %+v, want count 100 owner cosmos1owner", rec)
	}
}

func TestUpdate_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.SaveState(ctx, ir.LimitRecord{Count: ir.NewUint128(100), Owner: "cosmos1owner"}); err != nil {
		t.Fatalf("SaveState() failed: %v", err)
	}

	boom := errors.New("boom")
	err := s.Update(ctx, func(tx *Tx) error {
		if err := tx.SaveState(ctx, ir.LimitRecord{Count: ir.NewUint128(1), Owner: "cosmos1owner"}); err != nil {
			return err
		}
		if _, err := tx.Fund(ctx, "cosmos1owner", "token", ir.NewUint128(5)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Update() error = %v, want boom", err)
	}

	rec, err := s.LoadState(ctx)
	if err != nil {
		t.Fatalf("LoadState() failed: %v", err)
	}
	if rec.Count.String() != "100" {
		t.Errorf("count = %s after rollback, want 100", rec.Count)
	}

	bal, err := s.Balance(ctx, "cosmos1owner", "token")
	if err != nil {
		t.Fatalf("Balance() failed: %v", err)
	}
	if !bal.IsZero() {
		t.Errorf("balance = %s after rollback, want 0", bal)
	}
}

func TestView_SeesCommittedState(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, err := s.Fund(ctx, "cosmos1alice", "token", ir.NewUint128(42)); err != nil {
		t.Fatalf("Fund() failed: %v", err)
	}

	var got ir.Uint128
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		got, err = tx.Balance(ctx, "cosmos1alice", "token")
		return err
	})
	if err != nil {
		t.Fatalf("View() failed: %v", err)
	}
	if got.String() != "42" {
		t.Errorf("balance = %s, want 42", got)
	}
}

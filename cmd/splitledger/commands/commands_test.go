package commands

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mmynk/splitledger/internal/service"
)

// run executes the command tree against dbPath and returns its output.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--db", dbPath, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	out, err := run(t, dbPath, args...)
	if err != nil {
		t.Fatalf("splitledger %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestLedgerCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")

	if out := mustRun(t, db, "users", "add", "Alice"); !strings.Contains(out, "Created user 1: Alice") {
		t.Errorf("users add output = %q", out)
	}
	mustRun(t, db, "users", "add", "Bob", "--email", "bob@example.com")

	out := mustRun(t, db, "users", "list")
	if !strings.Contains(out, "Alice") || !strings.Contains(out, "bob@example.com") {
		t.Errorf("users list output = %q", out)
	}

	if out := mustRun(t, db, "items", "add", "Groceries", "12.50", "--paid-by", "1", "--receipt", "R-1"); !strings.Contains(out, "Created line item 1: Groceries 12.50") {
		t.Errorf("items add output = %q", out)
	}
	mustRun(t, db, "assign", "1", "1", "2")

	out = mustRun(t, db, "balances")
	if !strings.Contains(out, "Bob") || !strings.Contains(out, "$6.25") {
		t.Errorf("balances output = %q, want Bob owing $6.25", out)
	}

	out = mustRun(t, db, "settle", "6.25", "--from", "2", "--to", "1", "--note", "cash")
	if !strings.Contains(out, "1 assignments marked paid") {
		t.Errorf("settle output = %q", out)
	}

	if out := mustRun(t, db, "balances"); !strings.Contains(out, "All settled up.") {
		t.Errorf("balances after settle = %q", out)
	}

	if out := mustRun(t, db, "items", "list", "--receipt", "R-1"); !strings.Contains(out, "Groceries") {
		t.Errorf("items list output = %q", out)
	}
	mustRun(t, db, "items", "delete", "1")
	if out := mustRun(t, db, "items", "list"); strings.Contains(out, "Groceries") {
		t.Errorf("items list after delete = %q", out)
	}
}

func TestCommandErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "ledger.db")
	mustRun(t, db, "users", "add", "Alice")

	if _, err := run(t, db, "assign", "one", "1"); !errors.Is(err, service.ErrInvalidArgument) {
		t.Errorf("assign with bad id error = %v, want ErrInvalidArgument", err)
	}
	if _, err := run(t, db, "settle", "5", "--from", "1", "--to", "1"); !errors.Is(err, service.ErrSelfSettlement) {
		t.Errorf("self settle error = %v, want ErrSelfSettlement", err)
	}
	if _, err := run(t, db, "items", "add", "Milk", "2.00"); err == nil {
		t.Error("items add without --paid-by succeeded")
	}
}

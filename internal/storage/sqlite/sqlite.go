// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/splitledger/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// dateLayout is how purchase and settlement dates are stored.
const dateLayout = "2006-01-02"

// sequenceSources maps each sequence to the table and column holding its ids.
var sequenceSources = map[storage.Sequence]struct{ table, column string }{
	storage.SeqUsers:       {"users", "user_id"},
	storage.SeqLineItems:   {"line_items", "line_id"},
	storage.SeqAssignments: {"assignments", "mapping_id"},
	storage.SeqSettlements: {"settlements", "settlement_id"},
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; serialise through a single connection.
	db.SetMaxOpenConns(1)

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// NextID allocates the next id of a sequence.
func (s *SQLiteStore) NextID(ctx context.Context, seq storage.Sequence) (int64, error) {
	return nextID(ctx, s.db, seq)
}

// nextID bumps the sequence in a single upsert. The new value is never
// below the highest id already stored in the backing table, so rows
// inserted with explicit ids are never handed out again.
func nextID(ctx context.Context, q querier, seq storage.Sequence) (int64, error) {
	src, ok := sequenceSources[seq]
	if !ok {
		return 0, fmt.Errorf("unknown sequence: %s", seq)
	}

	query := fmt.Sprintf(`
		INSERT INTO sequences (name, last_id)
		VALUES (?, (SELECT COALESCE(MAX(%[2]s), 0) FROM %[1]s) + 1)
		ON CONFLICT(name) DO UPDATE SET last_id = MAX(last_id + 1, excluded.last_id)
		RETURNING last_id`, src.table, src.column)

	var id int64
	if err := q.QueryRowContext(ctx, query, string(seq)).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", seq, err)
	}
	return id, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored date %q: %w", s, err)
	}
	return t, nil
}

// nullID maps the zero id to NULL.
func nullID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

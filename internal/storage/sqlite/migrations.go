package sqlite

import "database/sql"

// schema sets up the ledger tables. It runs on startup to ensure tables exist.
// Users must be created before the tables referencing them.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    user_id INTEGER PRIMARY KEY,
    full_name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS line_items (
    line_id INTEGER PRIMARY KEY,
    receipt_id TEXT NOT NULL DEFAULT '',
    store_name TEXT NOT NULL DEFAULT '',
    purchase_date TEXT NOT NULL DEFAULT '',
    item_name TEXT NOT NULL,
    price TEXT NOT NULL,
    paid_by INTEGER,
    FOREIGN KEY (paid_by) REFERENCES users(user_id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS assignments (
    mapping_id INTEGER PRIMARY KEY,
    line_id INTEGER,
    user_id INTEGER,
    status TEXT NOT NULL DEFAULT 'unpaid',
    FOREIGN KEY (line_id) REFERENCES line_items(line_id) ON DELETE CASCADE,
    FOREIGN KEY (user_id) REFERENCES users(user_id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS settlements (
    settlement_id INTEGER PRIMARY KEY,
    from_user_id INTEGER NOT NULL,
    to_user_id INTEGER NOT NULL,
    amount_cents INTEGER NOT NULL CHECK (amount_cents >= 0),
    created_at TEXT NOT NULL,
    note TEXT,
    FOREIGN KEY (from_user_id) REFERENCES users(user_id),
    FOREIGN KEY (to_user_id) REFERENCES users(user_id)
);

CREATE TABLE IF NOT EXISTS sequences (
    name TEXT PRIMARY KEY,
    last_id INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_line_items_receipt_id ON line_items(receipt_id);
CREATE INDEX IF NOT EXISTS idx_assignments_line_id ON assignments(line_id);
CREATE INDEX IF NOT EXISTS idx_assignments_user_id ON assignments(user_id);
CREATE INDEX IF NOT EXISTS idx_settlements_pair ON settlements(from_user_id, to_user_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// SQLite driver
	_ "modernc.org/sqlite"

	"github.com/sambeau/jsxl/pkg/jsxl/driver"
)

// schema defines the manifest tables.
const schema = `
CREATE TABLE IF NOT EXISTS units (
	unit TEXT PRIMARY KEY,
	compiled_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS manifests (
	unit TEXT NOT NULL REFERENCES units(unit) ON DELETE CASCADE,
	name TEXT NOT NULL,
	position INTEGER NOT NULL,
	formula TEXT NOT NULL,
	compiled_at TIMESTAMP NOT NULL,
	PRIMARY KEY (unit, name)
);

CREATE INDEX IF NOT EXISTS idx_manifests_unit_position ON manifests(unit, position);
`

// timeLayout is fixed width so compiled_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps manifests in a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// OpenSQLite opens (creating if necessary) the manifest database at path.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening manifest database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating manifest schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path, now: time.Now}, nil
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Save replaces every row for unit in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, unit string, m driver.Formulas) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning manifest transaction: %w", err)
	}
	defer tx.Rollback()

	compiledAt := s.now().UTC().Format(timeLayout)

	if _, err := tx.ExecContext(ctx, `DELETE FROM manifests WHERE unit = ?`, unit); err != nil {
		return fmt.Errorf("clearing manifest for %s: %w", unit, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO units (unit, compiled_at) VALUES (?, ?)
		ON CONFLICT(unit) DO UPDATE SET compiled_at = excluded.compiled_at
	`, unit, compiledAt); err != nil {
		return fmt.Errorf("recording unit %s: %w", unit, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO manifests (unit, name, position, formula, compiled_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing manifest insert: %w", err)
	}
	defer stmt.Close()

	for i, f := range m {
		if _, err := stmt.ExecContext(ctx, unit, f.Name, i, f.Text, compiledAt); err != nil {
			return fmt.Errorf("saving %s in %s: %w", f.Name, unit, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing manifest for %s: %w", unit, err)
	}
	return nil
}

// Load returns unit's manifest in saved order.
func (s *SQLiteStore) Load(ctx context.Context, unit string) (driver.Formulas, error) {
	var seen int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM units WHERE unit = ?`, unit).Scan(&seen)
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", unit, err)
	}
	if seen == 0 {
		return nil, fmt.Errorf("%s: %w", unit, ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name, formula FROM manifests WHERE unit = ? ORDER BY position
	`, unit)
	if err != nil {
		return nil, fmt.Errorf("loading manifest for %s: %w", unit, err)
	}
	defer rows.Close()

	m := driver.Formulas{}
	for rows.Next() {
		var f driver.Formula
		if err := rows.Scan(&f.Name, &f.Text); err != nil {
			return nil, fmt.Errorf("scanning manifest row: %w", err)
		}
		m = append(m, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading manifest for %s: %w", unit, err)
	}
	return m, nil
}

// Units lists every unit with a saved manifest, most recently compiled first.
func (s *SQLiteStore) Units(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT unit FROM units ORDER BY compiled_at DESC, unit`)
	if err != nil {
		return nil, fmt.Errorf("listing units: %w", err)
	}
	defer rows.Close()

	var units []string
	for rows.Next() {
		var unit string
		if err := rows.Scan(&unit); err != nil {
			return nil, fmt.Errorf("scanning unit: %w", err)
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

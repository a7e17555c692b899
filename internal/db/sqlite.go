package db

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// Database is a SQLite backed KV. Write transactions take the database
// lock up front (BEGIN IMMEDIATE) so concurrent read-modify-write cycles
// serialise instead of failing on upgrade.
type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{db: db}, nil
}

func (db *Database) View(fn func(Tx) error) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin read: %w", err)
	}
	defer tx.Rollback()

	return fn(&sqliteTx{tx: tx})
}

func (db *Database) Update(fn func(Tx) error) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin update: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (db *Database) Close() error {
	return db.db.Close()
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Get(key string) (string, bool, error) {
	var value string
	err := t.tx.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (t *sqliteTx) Put(key, value string) error {
	query := `
        INSERT INTO kv (key, value, updated_at)
        VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

	_, err := t.tx.Exec(query, key, value)
	return err
}

func (t *sqliteTx) Delete(key string) error {
	_, err := t.tx.Exec("DELETE FROM kv WHERE key = ?", key)
	return err
}

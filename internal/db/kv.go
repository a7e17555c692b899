// Package db holds the flat key-value backends the conversation store is
// persisted in.
package db

import (
	"fmt"
	"os"
	"path/filepath"
)

// Tx is a view of the key-value space inside one transaction.
type Tx interface {
	Get(key string) (value string, ok bool, err error)
	Put(key, value string) error
	Delete(key string) error
}

// KV is a transactional string key-value store.
type KV interface {
	View(fn func(Tx) error) error
	Update(fn func(Tx) error) error
	Close() error
}

const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Open creates the parent directory of path and opens the backend named by driver.
func Open(driver, path string) (KV, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	switch driver {
	case DriverSQLite, "":
		return New(path)
	case DriverBolt:
		return NewBolt(path)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s (supported: sqlite, bolt)", driver)
	}
}

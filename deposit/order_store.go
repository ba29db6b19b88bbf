package deposit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// OrderStore persists per-user durable keys, most importantly the pending
// widget order id, which has to survive the full-page redirect round trip to
// the widget provider's domain and back.
type OrderStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// ErrKeyNotFound is returned when no value is stored under a key
var ErrKeyNotFound = sql.ErrNoRows

// NewOrderStore opens (and if needed creates) a durable key store at dbPath
func NewOrderStore(dbPath string) (*OrderStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_timeout=20000", dbPath)
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	store := &OrderStore{db: db, path: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *OrderStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS durable_keys (
		user_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(user_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_durable_keys_user ON durable_keys(user_id, key);`

	_, err := s.db.Exec(query)
	return err
}

// retryOperation executes a database operation with retry logic for
// SQLITE_BUSY errors.
func (s *OrderStore) retryOperation(operation func() error, maxRetries int) error {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		if strings.Contains(err.Error(), "SQLITE_BUSY") || strings.Contains(err.Error(), "database is locked") {
			lastErr = err
			if attempt < maxRetries {
				backoff := time.Duration(10*(1<<attempt)) * time.Millisecond
				time.Sleep(backoff)
				continue
			}
		} else {
			return err
		}
	}

	return fmt.Errorf("operation failed after %d retries, last error: %w", maxRetries+1, lastErr)
}

// Put stores a value under (user, key), replacing any previous value
func (s *OrderStore) Put(userID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retryOperation(func() error {
		_, err := s.db.Exec(`
			INSERT INTO durable_keys (user_id, key, value) VALUES (?, ?, ?)
			ON CONFLICT(user_id, key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			userID, key, value)
		return err
	}, 3)
}

// Get returns the value stored under (user, key)
func (s *OrderStore) Get(userID, key string) (string, error) {
	var value string
	err := s.retryOperation(func() error {
		return s.db.QueryRow(
			`SELECT value FROM durable_keys WHERE user_id = ? AND key = ?`,
			userID, key).Scan(&value)
	}, 3)
	if err != nil {
		return "", err
	}
	return value, nil
}

// Delete removes the value stored under (user, key)
func (s *OrderStore) Delete(userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retryOperation(func() error {
		_, err := s.db.Exec(`DELETE FROM durable_keys WHERE user_id = ? AND key = ?`, userID, key)
		return err
	}, 3)
}

// Close closes the underlying database
func (s *OrderStore) Close() error {
	return s.db.Close()
}

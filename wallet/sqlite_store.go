package wallet

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a Store backed by a local SQLite database. It mirrors the
// document layout of the production store: one row per user with one column
// per asset field.
type SQLiteStore struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLiteStore opens (and if needed creates) a wallet store at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
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

	store := &SQLiteStore{db: db, path: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS user_wallets (
		user_id TEXT PRIMARY KEY,
		usdt_tron TEXT,
		usdc_polygon TEXT,
		pol_polygon TEXT,
		trx_tron TEXT,
		ltc_ltc TEXT,
		eth_eth TEXT,
		btc_btc TEXT,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`

	_, err := s.db.Exec(query)
	return err
}

// retryOperation executes a database operation with retry logic for
// SQLITE_BUSY errors.
func (s *SQLiteStore) retryOperation(operation func() error, maxRetries int) error {
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

// GetDocument returns the wallet document for a user
func (s *SQLiteStore) GetDocument(ctx context.Context, userID string) (*Document, error) {
	var doc *Document
	err := s.retryOperation(func() error {
		row := s.db.QueryRowContext(ctx, `
			SELECT usdt_tron, usdc_polygon, pol_polygon, trx_tron, ltc_ltc, eth_eth, btc_btc
			FROM user_wallets WHERE user_id = ?`, userID)

		fields := make([]sql.NullString, 7)
		ptrs := make([]any, 7)
		for i := range fields {
			ptrs[i] = &fields[i]
		}
		if err := row.Scan(ptrs...); err != nil {
			return err
		}

		names := []string{"usdt_tron", "usdc_polygon", "pol_polygon", "trx_tron", "ltc_ltc", "eth_eth", "btc_btc"}
		addresses := make(map[string]string, len(names))
		for i, name := range names {
			if fields[i].Valid && fields[i].String != "" {
				addresses[name] = fields[i].String
			}
		}

		doc = &Document{UserID: userID, Addresses: addresses}
		return nil
	}, 3)

	if err == sql.ErrNoRows {
		return nil, ErrUserRecordMissing
	}
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to read document: %w", err)
	}
	return doc, nil
}

// UpsertAddress writes an address field for a user. The engine never calls
// this; it exists for the generation endpoint's out-of-band writes when the
// store is co-hosted, and for tests.
func (s *SQLiteStore) UpsertAddress(ctx context.Context, userID, field, address string) error {
	if !validField(field) {
		return fmt.Errorf("wallet: unknown address field %q", field)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retryOperation(func() error {
		query := fmt.Sprintf(`
			INSERT INTO user_wallets (user_id, %s) VALUES (?, ?)
			ON CONFLICT(user_id) DO UPDATE SET %s = excluded.%s, updated_at = CURRENT_TIMESTAMP`,
			field, field, field)
		_, err := s.db.ExecContext(ctx, query, userID, address)
		return err
	}, 3)
}

// SeedUser creates an empty wallet document for a user if none exists
func (s *SQLiteStore) SeedUser(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.retryOperation(func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO user_wallets (user_id) VALUES (?) ON CONFLICT(user_id) DO NOTHING`, userID)
		return err
	}, 3)
}

// Close closes the underlying database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func validField(field string) bool {
	for i := range Assets {
		if Assets[i].Field == field {
			return true
		}
	}
	return false
}

package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is a Store backed by PostgreSQL via pgx, for deployments
// where the wallet documents live in the shared platform database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and ensures the schema exists
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("wallet: failed to connect to postgres: %w", err)
	}

	store := &PostgresStore{pool: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("wallet: failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
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
		updated_at TIMESTAMPTZ DEFAULT NOW()
	)`

	_, err := s.pool.Exec(ctx, query)
	return err
}

// GetDocument returns the wallet document for a user
func (s *PostgresStore) GetDocument(ctx context.Context, userID string) (*Document, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT usdt_tron, usdc_polygon, pol_polygon, trx_tron, ltc_ltc, eth_eth, btc_btc
		FROM user_wallets WHERE user_id = $1`, userID)

	fields := make([]*string, 7)
	ptrs := make([]any, 7)
	for i := range fields {
		ptrs[i] = &fields[i]
	}
	if err := row.Scan(ptrs...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserRecordMissing
		}
		return nil, fmt.Errorf("wallet: failed to read document: %w", err)
	}

	names := []string{"usdt_tron", "usdc_polygon", "pol_polygon", "trx_tron", "ltc_ltc", "eth_eth", "btc_btc"}
	addresses := make(map[string]string, len(names))
	for i, name := range names {
		if fields[i] != nil && *fields[i] != "" {
			addresses[name] = *fields[i]
		}
	}

	return &Document{UserID: userID, Addresses: addresses}, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}

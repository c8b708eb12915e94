package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"routeScope/internal/model"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pools (
		seq BIGSERIAL,
		exchange TEXT NOT NULL,
		address_key TEXT NOT NULL,
		address TEXT NOT NULL,
		pair TEXT NOT NULL,
		liquidity DOUBLE PRECISION NOT NULL,
		volume_24h DOUBLE PRECISION NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		fee DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (exchange, address_key)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pools_seq ON pools (seq)`,
}

const upsertPool = `
	INSERT INTO pools (
		exchange, address_key, address, pair, liquidity, volume_24h, price, fee, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	ON CONFLICT (exchange, address_key)
	DO UPDATE SET
		address = EXCLUDED.address,
		pair = EXCLUDED.pair,
		liquidity = EXCLUDED.liquidity,
		volume_24h = EXCLUDED.volume_24h,
		price = EXCLUDED.price,
		fee = EXCLUDED.fee,
		updated_at = now()
`

const selectPools = `
	SELECT exchange, address, pair, liquidity, volume_24h, price, fee
	FROM pools
	ORDER BY seq
`

// Store keeps the pool inventory in Postgres. Rows are keyed like the router
// keys pools, so upserts replace a pool and keep its original position.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open pg pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Name() string {
	return "postgres"
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// InitSchema creates the pools table when missing.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// PutPoolBatch upserts pools in one batch round trip.
func (s *Store) PutPoolBatch(ctx context.Context, pools []model.Pool) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, pool := range pools {
		batch.Queue(upsertPool, upsertArgs(pool)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, pool := range pools {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert pool %s: %w", pool.Key(), err)
		}
	}
	return nil
}

// FetchPools loads every stored pool in insertion order.
func (s *Store) FetchPools(ctx context.Context) ([]model.Pool, error) {
	rows, err := s.pool.Query(ctx, selectPools)
	if err != nil {
		return nil, fmt.Errorf("query pools: %w", err)
	}
	defer rows.Close()

	var pools []model.Pool
	for rows.Next() {
		var p model.Pool
		if err := rows.Scan(&p.Exchange, &p.Address, &p.Pair, &p.Liquidity, &p.Volume24h, &p.Price, &p.Fee); err != nil {
			return nil, fmt.Errorf("scan pool: %w", err)
		}
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pools: %w", err)
	}
	return pools, nil
}

func upsertArgs(pool model.Pool) []any {
	return []any{
		pool.Exchange,
		strings.ToLower(strings.TrimSpace(pool.Address)),
		pool.Address,
		pool.Pair,
		pool.Liquidity,
		pool.Volume24h,
		pool.Price,
		pool.Fee,
	}
}

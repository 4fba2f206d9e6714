package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"balancerScope/internal/model"
)

// Schema creates the quote journal table.
const Schema = `
CREATE TABLE IF NOT EXISTS quotes (
	chain_id      BIGINT      NOT NULL DEFAULT 0,
	pool_address  TEXT        NOT NULL,
	pool_kind     TEXT        NOT NULL,
	block_number  BIGINT      NOT NULL DEFAULT 0,
	operation     TEXT        NOT NULL,
	token_in      TEXT        NOT NULL DEFAULT '',
	token_out     TEXT        NOT NULL DEFAULT '',
	amount        TEXT        NOT NULL,
	result        TEXT        NOT NULL DEFAULT '',
	amounts       TEXT[],
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (pool_address, operation, token_in, token_out, amount, created_at)
)`

const upsertQuote = `
	INSERT INTO quotes (
		chain_id, pool_address, pool_kind, block_number, operation,
		token_in, token_out, amount, result, amounts, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
	ON CONFLICT (pool_address, operation, token_in, token_out, amount, created_at)
	DO UPDATE SET
		chain_id = EXCLUDED.chain_id,
		pool_kind = EXCLUDED.pool_kind,
		block_number = EXCLUDED.block_number,
		result = EXCLUDED.result,
		amounts = EXCLUDED.amounts,
		updated_at = now()
`

// Store provides Postgres persistence for quotes.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the quotes table if it is missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create quotes table: %w", err)
	}
	return nil
}

// PutQuotes inserts or updates quote records in one batch.
func (s *Store) PutQuotes(ctx context.Context, quotes []model.QuoteRecord) error {
	if len(quotes) == 0 {
		return nil
	}
	batch, err := quoteBatch(quotes)
	if err != nil {
		return err
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range quotes {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert quote: %w", err)
		}
	}
	return nil
}

func quoteBatch(quotes []model.QuoteRecord) (*pgx.Batch, error) {
	batch := &pgx.Batch{}
	for _, q := range quotes {
		createdAt, err := time.Parse(time.RFC3339Nano, q.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("quote created_at %q: %w", q.CreatedAt, err)
		}
		batch.Queue(upsertQuote,
			int64(q.ChainID),
			q.PoolAddress,
			string(q.PoolKind),
			int64(q.BlockNumber),
			q.Operation,
			q.TokenIn,
			q.TokenOut,
			q.Amount,
			q.Result,
			q.Amounts,
			createdAt,
		)
	}
	return batch, nil
}

package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/vaibhavmahiwal/medverify/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements ResultStore using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS claim_results (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	recorded_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	original_input    TEXT NOT NULL,
	credibility_score INTEGER NOT NULL,
	judgment          TEXT NOT NULL,
	trusted_reference TEXT NOT NULL DEFAULT '',
	reasoning         TEXT NOT NULL DEFAULT '',
	extracted_terms   JSONB NOT NULL DEFAULT '[]',
	debug_message     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_claim_results_recorded_at ON claim_results(recorded_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, rec model.ClaimRecord) error {
	id := uuid.New().String()
	recordedAt := rec.Timestamp
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	termsJSON, err := json.Marshal(rec.ExtractedTerms)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal terms")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO claim_results
		 (id, recorded_at, original_input, credibility_score, judgment, trusted_reference, reasoning, extracted_terms, debug_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id, recordedAt, rec.SourceOrigin, rec.Score, string(rec.Label),
		rec.CitedSource, rec.Rationale, string(termsJSON), rec.DiagnosticNote,
	)
	return eris.Wrap(err, "postgres: insert claim result")
}

func (s *PostgresStore) ListAll(ctx context.Context, limit int) ([]model.ClaimRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.pool.Query(ctx,
		`SELECT recorded_at, original_input, credibility_score, judgment, trusted_reference, reasoning, extracted_terms, debug_message
		 FROM claim_results ORDER BY recorded_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list claim results")
	}
	defer rows.Close()

	var records []model.ClaimRecord
	for rows.Next() {
		var rec model.ClaimRecord
		var label string
		var termsJSON []byte
		if err := rows.Scan(&rec.Timestamp, &rec.SourceOrigin, &rec.Score, &label,
			&rec.CitedSource, &rec.Rationale, &termsJSON, &rec.DiagnosticNote); err != nil {
			return nil, eris.Wrap(err, "postgres: scan claim result")
		}
		rec.Label = model.VerdictLabel(label)
		if err := json.Unmarshal(termsJSON, &rec.ExtractedTerms); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal terms")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list claim results iterate")
}

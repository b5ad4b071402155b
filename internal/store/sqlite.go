package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/vaibhavmahiwal/medverify/internal/model"
)

// SQLiteStore implements ResultStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS claim_results (
	id                TEXT PRIMARY KEY,
	recorded_at       DATETIME NOT NULL,
	original_input    TEXT NOT NULL,
	credibility_score INTEGER NOT NULL,
	judgment          TEXT NOT NULL,
	trusted_reference TEXT NOT NULL DEFAULT '',
	reasoning         TEXT NOT NULL DEFAULT '',
	extracted_terms   TEXT NOT NULL DEFAULT '[]',
	debug_message     TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_claim_results_recorded_at ON claim_results(recorded_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, rec model.ClaimRecord) error {
	id := uuid.New().String()
	recordedAt := rec.Timestamp
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	termsJSON, err := json.Marshal(rec.ExtractedTerms)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal terms")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO claim_results
		 (id, recorded_at, original_input, credibility_score, judgment, trusted_reference, reasoning, extracted_terms, debug_message)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, recordedAt, rec.SourceOrigin, rec.Score, string(rec.Label),
		rec.CitedSource, rec.Rationale, string(termsJSON), rec.DiagnosticNote,
	)
	return eris.Wrap(err, "sqlite: insert claim result")
}

func (s *SQLiteStore) ListAll(ctx context.Context, limit int) ([]model.ClaimRecord, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT recorded_at, original_input, credibility_score, judgment, trusted_reference, reasoning, extracted_terms, debug_message
		 FROM claim_results ORDER BY recorded_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list claim results")
	}
	defer rows.Close()

	var records []model.ClaimRecord
	for rows.Next() {
		var rec model.ClaimRecord
		var label, termsJSON string
		if err := rows.Scan(&rec.Timestamp, &rec.SourceOrigin, &rec.Score, &label,
			&rec.CitedSource, &rec.Rationale, &termsJSON, &rec.DiagnosticNote); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan claim result")
		}
		rec.Label = model.VerdictLabel(label)
		if err := json.Unmarshal([]byte(termsJSON), &rec.ExtractedTerms); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal terms")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list claim results iterate")
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaibhavmahiwal/medverify/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_Save(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO claim_results`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "https://example.org/article",
			72, "Supported", "who.int", "Matches current WHO guidance.",
			`["vitamin d","immune function"]`, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rec := sampleRecord("https://example.org/article", time.Now().UTC())
	require.NoError(t, s.Save(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Save_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO claim_results`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(assert.AnError)

	err := s.Save(context.Background(), sampleRecord("claim", time.Now().UTC()))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert claim result")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAll(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"recorded_at", "original_input", "credibility_score", "judgment",
		"trusted_reference", "reasoning", "extracted_terms", "debug_message",
	}).
		AddRow(now, "newest", 80, "Supported", "cdc.gov", "ok", []byte(`["flu"]`), "").
		AddRow(now.Add(-time.Minute), "older", 20, "Contradicted", "nih.gov", "no", []byte(`[]`), "")

	mock.ExpectQuery(`SELECT .+ FROM claim_results ORDER BY recorded_at DESC LIMIT \$1`).
		WithArgs(10).
		WillReturnRows(rows)

	got, err := s.ListAll(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newest", got[0].SourceOrigin)
	assert.Equal(t, model.VerdictSupported, got[0].Label)
	assert.Equal(t, []string{"flu"}, got[0].ExtractedTerms)
	assert.Equal(t, "older", got[1].SourceOrigin)
	assert.Empty(t, got[1].ExtractedTerms)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAll_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"recorded_at", "original_input", "credibility_score", "judgment",
		"trusted_reference", "reasoning", "extracted_terms", "debug_message",
	})

	mock.ExpectQuery(`SELECT .+ FROM claim_results ORDER BY recorded_at DESC LIMIT \$1`).
		WithArgs(DefaultHistoryLimit).
		WillReturnRows(rows)

	got, err := s.ListAll(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS claim_results`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Package store persists finished verification results and serves the
// history view. SQLite and Postgres backends implement the same interface.
package store

import (
	"context"

	"github.com/vaibhavmahiwal/medverify/internal/model"
)

// DefaultHistoryLimit caps history queries when the caller passes no limit.
const DefaultHistoryLimit = 100

// ResultStore persists finished verification results.
type ResultStore interface {
	// Save records a completed result. Callers treat failures as
	// non-fatal; the verdict has already been computed.
	Save(ctx context.Context, rec model.ClaimRecord) error

	// ListAll returns saved results newest first, capped at limit
	// (DefaultHistoryLimit when limit <= 0).
	ListAll(ctx context.Context, limit int) ([]model.ClaimRecord, error)

	Migrate(ctx context.Context) error
	Close() error
}

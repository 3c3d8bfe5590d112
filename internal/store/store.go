// Package store defines the financial record store consumed by the tool
// registry. Implementations provide filtered reads, bulk deletes, a
// period-keyed upsert for recurring snapshots, and a nearest-neighbor
// query over stored embeddings.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// ErrNotFound is returned when a lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// Filter narrows a read to one user's records. Zero values mean
// "unfiltered" for that dimension.
type Filter struct {
	UserID   string
	Kind     domain.RecordKind
	Category string
	Period   string

	// Start and End bound the record date, inclusive.
	Start time.Time
	End   time.Time

	// MinAmount and MaxAmount bound the record's native amount.
	MinAmount *float64
	MaxAmount *float64

	// Limit caps the result count; 0 means no cap.
	Limit int
}

// ScoredRecord pairs a record with its similarity to a query embedding.
type ScoredRecord struct {
	Record     *domain.FinancialRecord
	Similarity float64
}

// Store is the persistence contract. Each individual call is atomic from
// the caller's point of view; multi-call flows (preview then confirmed
// delete) are not transactionally isolated and must re-derive their
// target sets.
type Store interface {
	// InsertRecord writes one record. The ID must already be set.
	InsertRecord(ctx context.Context, rec *domain.FinancialRecord) error

	// ListRecords returns records matching the filter, newest date first.
	ListRecords(ctx context.Context, f Filter) ([]*domain.FinancialRecord, error)

	// DeleteRecords removes the identified records owned by userID and
	// reports how many were deleted.
	DeleteRecords(ctx context.Context, userID string, ids []string) (int, error)

	// UpsertPeriodRecord inserts or replaces a record keyed by
	// (user, kind, period, category), used for budgets and recurring snapshots.
	UpsertPeriodRecord(ctx context.Context, rec *domain.FinancialRecord) error

	// NearestRecords returns the k records closest to the query embedding,
	// most similar first, restricted by the filter. Threshold filtering is
	// the caller's responsibility.
	NearestRecords(ctx context.Context, embedding []float32, k int, f Filter) ([]ScoredRecord, error)

	// Close releases any underlying clients.
	Close() error
}

// Matches reports whether a record passes the filter. Shared by the
// in-memory implementation and by confirm-phase re-derivation checks.
func (f Filter) Matches(rec *domain.FinancialRecord) bool {
	if f.UserID != "" && rec.UserID != f.UserID {
		return false
	}
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	if f.Category != "" && rec.Category != f.Category {
		return false
	}
	if f.Period != "" && rec.Period != f.Period {
		return false
	}
	if !f.Start.IsZero() && rec.Date.Before(f.Start) {
		return false
	}
	if !f.End.IsZero() && rec.Date.After(f.End) {
		return false
	}
	amount, _ := rec.Amount.Float64()
	if f.MinAmount != nil && amount < *f.MinAmount {
		return false
	}
	if f.MaxAmount != nil && amount > *f.MaxAmount {
		return false
	}
	return true
}

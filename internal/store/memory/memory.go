// Package memory is an in-memory Store implementation used by tests and
// local development. Data is lost on restart - for persistence, use the
// BigQuery-backed store.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// Store keeps records in memory and is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	records map[string]*domain.FinancialRecord
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records: make(map[string]*domain.FinancialRecord),
	}
}

// InsertRecord implements the Store interface.
func (s *Store) InsertRecord(ctx context.Context, rec *domain.FinancialRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("InsertRecord: record ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Store a copy to avoid external modifications.
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

// ListRecords implements the Store interface.
func (s *Store) ListRecords(ctx context.Context, f store.Filter) ([]*domain.FinancialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.FinancialRecord
	for _, rec := range s.records {
		if !f.Matches(rec) {
			continue
		}
		cp := *rec
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.After(result[j].Date)
		}
		return result[i].ID < result[j].ID
	})

	if f.Limit > 0 && f.Limit < len(result) {
		result = result[:f.Limit]
	}
	return result, nil
}

// DeleteRecords implements the Store interface.
func (s *Store) DeleteRecords(ctx context.Context, userID string, ids []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for _, id := range ids {
		rec, ok := s.records[id]
		if !ok || rec.UserID != userID {
			continue
		}
		delete(s.records, id)
		deleted++
	}
	return deleted, nil
}

// UpsertPeriodRecord implements the Store interface. The key is
// (user, kind, period, category).
func (s *Store) UpsertPeriodRecord(ctx context.Context, rec *domain.FinancialRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("UpsertPeriodRecord: record ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.records {
		if existing.UserID == rec.UserID &&
			existing.Kind == rec.Kind &&
			existing.Period == rec.Period &&
			existing.Category == rec.Category {
			delete(s.records, id)
		}
	}

	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

// NearestRecords implements the Store interface with a local cosine
// similarity scan.
func (s *Store) NearestRecords(ctx context.Context, embedding []float32, k int, f store.Filter) ([]store.ScoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []store.ScoredRecord
	for _, rec := range s.records {
		if !f.Matches(rec) || len(rec.Embedding) == 0 {
			continue
		}
		cp := *rec
		scored = append(scored, store.ScoredRecord{
			Record:     &cp,
			Similarity: cosineSimilarity(embedding, rec.Embedding),
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if k > 0 && k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// Close implements the Store interface.
func (s *Store) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Ensure Store implements the interface.
var _ store.Store = (*Store)(nil)

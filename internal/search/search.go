// Package search finds stored records by meaning rather than exact text.
// Queries are embedded and matched against stored record embeddings; when
// the embedding service is down the adapter degrades to keyword matching
// so search never hard-fails on a remote outage.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// MinSimilarity is the hard floor below which candidates are excluded
// entirely rather than returned with a low relevance.
const MinSimilarity = 0.65

// Relevance band boundaries over cosine similarity.
const (
	highRelevanceFloor   = 0.85
	mediumRelevanceFloor = 0.75
)

// Embedder converts text into a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Match is one search hit with its similarity score and the coarse
// relevance band derived from it.
type Match struct {
	Record     *domain.FinancialRecord
	Similarity float64
	Relevance  domain.Confidence
}

// Adapter runs semantic queries against the record store.
type Adapter struct {
	embedder Embedder
	store    store.Store
	log      zerolog.Logger
}

// New creates a search adapter over the given embedder and store.
func New(embedder Embedder, st store.Store, log zerolog.Logger) *Adapter {
	return &Adapter{embedder: embedder, store: st, log: log}
}

// Search returns up to k records semantically matching the query, most
// similar first. Candidates below MinSimilarity are dropped. If the
// embedding call fails for any reason other than cancellation, the
// adapter falls back to keyword matching over descriptions; those results
// carry zero similarity and low relevance.
func (a *Adapter) Search(ctx context.Context, query string, k int, f store.Filter) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("Search: empty query: %w", domain.ErrValidation)
	}
	if k <= 0 {
		k = 10
	}

	embedding, err := a.embedder.Embed(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("Search: %v: %w", err, domain.ErrCancelled)
		}
		a.log.Warn().Err(err).Msg("Search: embedding failed, using keyword fallback")
		return a.keywordSearch(ctx, query, k, f)
	}

	scored, err := a.store.NearestRecords(ctx, embedding, k, f)
	if err != nil {
		return nil, fmt.Errorf("Search: nearest records: %w", err)
	}

	matches := make([]Match, 0, len(scored))
	for _, s := range scored {
		if s.Similarity < MinSimilarity {
			continue
		}
		matches = append(matches, Match{
			Record:     s.Record,
			Similarity: s.Similarity,
			Relevance:  relevanceBand(s.Similarity),
		})
	}
	return matches, nil
}

// keywordSearch is the degraded path: case-insensitive substring matching
// over descriptions and categories.
func (a *Adapter) keywordSearch(ctx context.Context, query string, k int, f store.Filter) ([]Match, error) {
	records, err := a.store.ListRecords(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("keywordSearch: list records: %w", err)
	}

	terms := strings.Fields(strings.ToLower(query))
	var matches []Match
	for _, rec := range records {
		haystack := strings.ToLower(rec.Description + " " + rec.Category)
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				matches = append(matches, Match{
					Record:    rec,
					Relevance: domain.ConfidenceLow,
				})
				break
			}
		}
		if len(matches) >= k {
			break
		}
	}
	return matches, nil
}

func relevanceBand(similarity float64) domain.Confidence {
	switch {
	case similarity >= highRelevanceFloor:
		return domain.ConfidenceHigh
	case similarity >= mediumRelevanceFloor:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}

package receipts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/extract"
	"github.com/dvloznov/finance-assistant/internal/jobs"
	"github.com/dvloznov/finance-assistant/internal/search"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// Extractor turns a receipt image into candidate expense items.
type Extractor interface {
	ExtractReceipt(ctx context.Context, image []byte, mimeType string, defaultCurrency domain.CurrencyCode) ([]domain.ExtractionResult, error)
}

// Scanner is the job handler behind asynchronous receipt scans. It
// fetches the stored image, runs extraction, and writes one expense
// record per item found.
type Scanner struct {
	objects   ObjectStore
	extractor Extractor
	records   store.Store
	embedder  search.Embedder
	log       zerolog.Logger
}

// NewScanner creates a scanner. The embedder may be nil; records are
// then written without embeddings.
func NewScanner(objects ObjectStore, extractor Extractor, records store.Store, embedder search.Embedder, log zerolog.Logger) *Scanner {
	return &Scanner{
		objects:   objects,
		extractor: extractor,
		records:   records,
		embedder:  embedder,
		log:       log,
	}
}

// Handle processes one scan job. On success the job's RecordIDs hold the
// created expenses; a returned error lets the queue retry.
func (s *Scanner) Handle(ctx context.Context, job *jobs.ScanReceiptJob) error {
	image, err := s.objects.Fetch(ctx, job.GCSURI)
	if err != nil {
		return fmt.Errorf("Handle: fetch receipt image: %w", err)
	}

	currency, ok := domain.ParseCurrency(job.Currency)
	if !ok {
		currency = domain.USD
	}

	items, err := s.extractor.ExtractReceipt(ctx, image, job.MIMEType, currency)
	if err != nil {
		return fmt.Errorf("Handle: extract receipt: %w", err)
	}
	if len(items) == 0 {
		return fmt.Errorf("Handle: no items found on receipt: %w", domain.ErrMalformedOutput)
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		rec := itemToRecord(job.UserID, item, currency, today)

		if s.embedder != nil {
			if embedding, err := s.embedder.Embed(ctx, rec.Description); err != nil {
				s.log.Warn().Err(err).Msg("Handle: embedding failed, storing record without one")
			} else {
				rec.Embedding = embedding
			}
		}

		if err := s.records.InsertRecord(ctx, rec); err != nil {
			return fmt.Errorf("Handle: insert record: %w", err)
		}
		ids = append(ids, rec.ID)
	}

	job.RecordIDs = ids
	s.log.Info().Str("job_id", job.JobID).Int("items", len(ids)).Msg("Handle: receipt scan completed")
	return nil
}

func itemToRecord(userID string, item domain.ExtractionResult, defaultCurrency domain.CurrencyCode, fallbackDate time.Time) *domain.FinancialRecord {
	amount := decimal.Zero
	currency := defaultCurrency
	if item.Amount != nil {
		amount = item.Amount.Value
		currency = item.Amount.Currency
	}

	date := fallbackDate
	if item.Date != nil {
		date = *item.Date
	}

	category := item.Category
	if category == "" {
		category = extract.DefaultCategory
	}

	return &domain.FinancialRecord{
		ID:          uuid.New().String(),
		UserID:      userID,
		Kind:        domain.KindExpense,
		Description: item.CleanedDescription,
		Amount:      amount,
		Currency:    currency,
		Category:    category,
		Date:        date,
		CreatedAt:   time.Now().UTC(),
	}
}

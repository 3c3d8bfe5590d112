package receipts

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/jobs"
	"github.com/dvloznov/finance-assistant/internal/store"
	"github.com/dvloznov/finance-assistant/internal/store/memory"
)

type stubExtractor struct {
	items []domain.ExtractionResult
	err   error
}

func (s *stubExtractor) ExtractReceipt(ctx context.Context, image []byte, mimeType string, cur domain.CurrencyCode) ([]domain.ExtractionResult, error) {
	return s.items, s.err
}

func amount(v float64, cur domain.CurrencyCode) *domain.MonetaryAmount {
	m := domain.NewMonetaryAmount(v, cur)
	return &m
}

func TestScanner_CreatesOneRecordPerItem(t *testing.T) {
	objects := NewMemoryStore()
	uri, err := objects.Save(context.Background(), "u1", "image/jpeg", []byte{0x1, 0x2})
	require.NoError(t, err)

	records := memory.New()
	scanner := NewScanner(objects, &stubExtractor{items: []domain.ExtractionResult{
		{CleanedDescription: "Flat White", Amount: amount(5.5, domain.SGD), Category: "Food & Dining"},
		{CleanedDescription: "Croissant", Amount: amount(3.8, domain.SGD), Category: "Food & Dining"},
	}}, records, nil, zerolog.Nop())

	job := &jobs.ScanReceiptJob{JobID: "j1", UserID: "u1", GCSURI: uri, MIMEType: "image/jpeg", Currency: "SGD"}
	require.NoError(t, scanner.Handle(context.Background(), job))
	assert.Len(t, job.RecordIDs, 2)

	stored, err := records.ListRecords(context.Background(), store.Filter{UserID: "u1", Kind: domain.KindExpense})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, rec := range stored {
		assert.Equal(t, domain.SGD, rec.Currency)
		assert.False(t, rec.Date.IsZero(), "items without a date get the scan day")
	}
}

func TestScanner_ExtractionFailureIsRetryable(t *testing.T) {
	objects := NewMemoryStore()
	uri, err := objects.Save(context.Background(), "u1", "image/jpeg", []byte{0x1})
	require.NoError(t, err)

	scanner := NewScanner(objects, &stubExtractor{err: fmt.Errorf("model unavailable: %w", domain.ErrRemoteService)},
		memory.New(), nil, zerolog.Nop())

	job := &jobs.ScanReceiptJob{JobID: "j1", UserID: "u1", GCSURI: uri, MIMEType: "image/jpeg", Currency: "USD"}
	err = scanner.Handle(context.Background(), job)
	require.Error(t, err)
	assert.Empty(t, job.RecordIDs)
}

func TestScanner_MissingImageFails(t *testing.T) {
	scanner := NewScanner(NewMemoryStore(), &stubExtractor{}, memory.New(), nil, zerolog.Nop())
	job := &jobs.ScanReceiptJob{JobID: "j1", UserID: "u1", GCSURI: "mem://receipts/u1/missing", MIMEType: "image/jpeg"}
	require.Error(t, scanner.Handle(context.Background(), job))
}

// Package extract implements the local, deterministic extraction engine.
// It parses amount, currency, date and category out of free text with no
// network calls, and is the fallback for every delegate capability.
package extract

import (
	"strings"
	"time"

	"github.com/dvloznov/finance-assistant/internal/domain"
)

// Engine extracts structured transaction fields from free text.
type Engine struct {
	// now supplies the reference time for relative date phrases.
	// Overridable in tests.
	now func() time.Time
}

// NewEngine creates an extraction engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// Extract deterministically produces an ExtractionResult for one free-text
// item. A bare "$" resolves to defaultCurrency, not a fixed code. Fields
// that cannot be extracted stay nil/empty; extraction never fails.
func (e *Engine) Extract(text string, defaultCurrency domain.CurrencyCode) domain.ExtractionResult {
	// Date phrases are located first and blanked out so their digits
	// ("2 days ago", "12/5") never win the bare-number amount pattern.
	date, dateSpan := extractDate(text, e.today())

	amountText := text
	if dateSpan != "" {
		amountText = strings.Replace(text, dateSpan, " ", 1)
	}
	amount, amountSpan := extractAmount(amountText, defaultCurrency)

	category := inferCategory(text)

	cleaned := cleanDescription(text, amountSpan, dateSpan)

	confidence := domain.ConfidenceLow
	method := domain.MethodDefault
	if amount != nil {
		method = domain.MethodKeyword
		if amount.explicitCurrency {
			confidence = domain.ConfidenceHigh
		} else {
			confidence = domain.ConfidenceMedium
		}
	}

	result := domain.ExtractionResult{
		Category:           category,
		CleanedDescription: cleaned,
		Confidence:         confidence,
		Method:             method,
	}
	if amount != nil {
		m := amount.monetary
		result.Amount = &m
	}
	if date != nil {
		result.Date = date
	}
	return result
}

// ExtractMultiple is the local fallback for multi-item parsing: the whole
// input is treated as a single item. Items without an extracted date get
// fallbackDate.
func (e *Engine) ExtractMultiple(text string, defaultCurrency domain.CurrencyCode, fallbackDate time.Time) []domain.ExtractionResult {
	r := e.Extract(text, defaultCurrency)
	if r.Date == nil {
		d := fallbackDate
		r.Date = &d
	}
	return []domain.ExtractionResult{r}
}

// today returns the reference date truncated to midnight.
func (e *Engine) today() time.Time {
	t := e.now()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

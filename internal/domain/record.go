package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordKind distinguishes the financial record types the store holds.
type RecordKind string

const (
	KindExpense      RecordKind = "expense"
	KindIncome       RecordKind = "income"
	KindBudget       RecordKind = "budget"
	KindHolding      RecordKind = "holding"
	KindGoal         RecordKind = "goal"
	KindSubscription RecordKind = "subscription"
)

// FinancialRecord is a single row of a user's financial data. History is
// immutable except for explicit update/delete operations routed through the
// tool registry.
type FinancialRecord struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Kind        RecordKind      `json:"kind"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    CurrencyCode    `json:"currency"`
	Category    string          `json:"category"`
	Date        time.Time       `json:"date"`

	// Period is set for period-scoped kinds (budgets, recurring snapshots),
	// formatted as "2006-01".
	Period string `json:"period,omitempty"`

	// Embedding is the stored semantic vector for the description, used by
	// nearest-neighbor search. Empty when the record was written without one.
	Embedding []float32 `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Monetary returns the record's amount tagged with its own currency.
func (r *FinancialRecord) Monetary() MonetaryAmount {
	return MonetaryAmount{Value: r.Amount, Currency: r.Currency}
}

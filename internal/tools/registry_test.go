package tools

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/store"
	"github.com/dvloznov/finance-assistant/internal/store/memory"
)

func newTestRegistry(t *testing.T) (*Registry, *memory.Store) {
	t.Helper()
	st := memory.New()
	return New(st, nil, nil, zerolog.Nop()), st
}

func seedExpense(t *testing.T, st store.Store, id, desc, category string, amount float64, cur domain.CurrencyCode, date time.Time) {
	t.Helper()
	err := st.InsertRecord(context.Background(), &domain.FinancialRecord{
		ID:          id,
		UserID:      "u1",
		Kind:        domain.KindExpense,
		Description: desc,
		Amount:      decimal.NewFromFloat(amount),
		Currency:    cur,
		Category:    category,
		Date:        date,
	})
	require.NoError(t, err)
}

func execute(r *Registry, name string, args map[string]any) domain.ToolResult {
	return r.Execute(context.Background(), "u1", domain.USD, domain.ToolCall{
		Name:              name,
		Args:              args,
		ContinuationToken: "tok-1",
	})
}

func TestExecute_UnknownToolReportsInResult(t *testing.T) {
	r, _ := newTestRegistry(t)
	res := execute(r, "launch_rocket", nil)

	assert.NotEmpty(t, res.Err)
	assert.Nil(t, res.Payload)
	assert.Equal(t, "tok-1", res.ContinuationToken)
}

func TestQueryExpenses_ConvertsIntoOneCurrency(t *testing.T) {
	r, st := newTestRegistry(t)
	day := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	seedExpense(t, st, "a", "coffee", "Food & Dining", 10, domain.USD, day)
	seedExpense(t, st, "b", "lunch", "Food & Dining", 9.2, domain.EUR, day)

	res := execute(r, "query_expenses", map[string]any{"category": "Food & Dining"})
	require.Empty(t, res.Err)
	require.Equal(t, domain.USD, res.Currency)

	// 9.2 EUR at 0.92 EUR/USD is exactly 10 USD, so the total is 20.
	assert.Equal(t, 2, res.Payload["count"])
	assert.InDelta(t, 20.0, res.Payload["total"].(float64), 0.001)

	records := res.Payload["records"].([]map[string]any)
	require.Len(t, records, 2)
	for _, rec := range records {
		assert.InDelta(t, 10.0, rec["amount_converted"].(float64), 0.001)
	}
}

func TestQueryExpenses_ExplicitCurrencyOverridesDefault(t *testing.T) {
	r, st := newTestRegistry(t)
	seedExpense(t, st, "a", "coffee", "Food & Dining", 10, domain.USD,
		time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC))

	res := execute(r, "query_expenses", map[string]any{"currency": "EUR"})
	require.Empty(t, res.Err)
	assert.Equal(t, domain.EUR, res.Currency)
	assert.InDelta(t, 9.2, res.Payload["total"].(float64), 0.001)
}

func TestQueryExpenses_InvalidCategoryIsValidationError(t *testing.T) {
	r, _ := newTestRegistry(t)
	res := execute(r, "query_expenses", map[string]any{"category": "Yachts"})
	assert.NotEmpty(t, res.Err)
	assert.Nil(t, res.Payload)
}

func TestAddExpense_InfersCategoryAndStores(t *testing.T) {
	r, st := newTestRegistry(t)
	res := execute(r, "add_expense", map[string]any{
		"description": "grab ride to office",
		"amount":      12.5,
		"date":        "2025-06-11",
	})
	require.Empty(t, res.Err)
	assert.Equal(t, true, res.Payload["created"])

	records, err := st.ListRecords(context.Background(), store.Filter{UserID: "u1", Kind: domain.KindExpense})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Transport", records[0].Category)
	assert.Equal(t, domain.USD, records[0].Currency)
}

func TestAddExpense_RejectsNonPositiveAmount(t *testing.T) {
	r, _ := newTestRegistry(t)
	res := execute(r, "add_expense", map[string]any{"description": "refund", "amount": -3.0})
	assert.NotEmpty(t, res.Err)
}

func TestDeleteExpenses_PreviewDoesNotMutate(t *testing.T) {
	r, st := newTestRegistry(t)
	day := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	seedExpense(t, st, "a", "coffee", "Food & Dining", 5, domain.USD, day)
	seedExpense(t, st, "b", "taxi", "Transport", 15, domain.USD, day)

	res := execute(r, "delete_expenses", map[string]any{"category": "Food & Dining"})
	require.Empty(t, res.Err)
	assert.Equal(t, "preview", res.Payload["phase"])
	assert.Equal(t, 1, res.Payload["count"])

	records, err := st.ListRecords(context.Background(), store.Filter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, records, 2, "preview must not delete anything")
}

func TestDeleteExpenses_ConfirmRederivesMatchSet(t *testing.T) {
	r, st := newTestRegistry(t)
	day := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	seedExpense(t, st, "a", "coffee", "Food & Dining", 5, domain.USD, day)

	preview := execute(r, "delete_expenses", map[string]any{"category": "Food & Dining"})
	require.Equal(t, 1, preview.Payload["count"])

	// A record added between preview and confirm is caught by the
	// re-derived criteria, not missed from a stale snapshot.
	seedExpense(t, st, "b", "late snack", "Food & Dining", 8, domain.USD, day)

	res := execute(r, "delete_expenses", map[string]any{"category": "Food & Dining", "confirm": true})
	require.Empty(t, res.Err)
	assert.Equal(t, "deleted", res.Payload["phase"])
	assert.Equal(t, 2, res.Payload["deleted"])

	records, err := st.ListRecords(context.Background(), store.Filter{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteExpenses_RefusesUnscopedDelete(t *testing.T) {
	r, st := newTestRegistry(t)
	seedExpense(t, st, "a", "coffee", "Food & Dining", 5, domain.USD,
		time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC))

	res := execute(r, "delete_expenses", map[string]any{"confirm": true})
	assert.NotEmpty(t, res.Err)

	records, err := st.ListRecords(context.Background(), store.Filter{UserID: "u1"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestBudgetStatus_RequiresExplicitPeriod(t *testing.T) {
	r, _ := newTestRegistry(t)
	res := execute(r, "budget_status", map[string]any{})
	assert.NotEmpty(t, res.Err)
}

func TestBudgetStatus_ComparesSpendAgainstLimits(t *testing.T) {
	r, st := newTestRegistry(t)
	require.NoError(t, st.InsertRecord(context.Background(), &domain.FinancialRecord{
		ID:       "budget-1",
		UserID:   "u1",
		Kind:     domain.KindBudget,
		Amount:   decimal.NewFromInt(100),
		Currency: domain.USD,
		Category: "Food & Dining",
		Date:     time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		Period:   "2025-06",
	}))
	seedExpense(t, st, "a", "groceries run", "Food & Dining", 110.4, domain.EUR,
		time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC))

	res := execute(r, "budget_status", map[string]any{"period": "2025-06"})
	require.Empty(t, res.Err)

	budgets := res.Payload["budgets"].([]map[string]any)
	require.Len(t, budgets, 1)
	// 110.4 EUR at 0.92 EUR/USD is 120 USD against a 100 USD limit.
	assert.InDelta(t, 120.0, budgets[0]["spent"].(float64), 0.001)
	assert.Equal(t, true, budgets[0]["exceeded"])
}

func TestGenerateChart_GroupsByCategory(t *testing.T) {
	r, st := newTestRegistry(t)
	day := time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC)
	seedExpense(t, st, "a", "coffee", "Food & Dining", 5, domain.USD, day)
	seedExpense(t, st, "b", "lunch", "Food & Dining", 15, domain.USD, day)
	seedExpense(t, st, "c", "taxi", "Transport", 30, domain.USD, day)

	res := execute(r, "generate_chart", map[string]any{"chart_type": "pie", "group_by": "category"})
	require.Empty(t, res.Err)

	chart, ok := res.Payload[ChartPayloadKey].(domain.ChartPayload)
	require.True(t, ok, "payload must carry the structured chart")
	assert.Equal(t, domain.ChartPie, chart.Type)
	require.Len(t, chart.Data, 2)
	assert.Equal(t, "Transport", chart.Data[0].Label, "categories sort by descending total")
	assert.InDelta(t, 30.0, chart.Data[0].Value, 0.001)
	assert.InDelta(t, 20.0, chart.Data[1].Value, 0.001)
}

func TestListSubscriptions_MonthlyTotal(t *testing.T) {
	r, st := newTestRegistry(t)
	require.NoError(t, st.InsertRecord(context.Background(), &domain.FinancialRecord{
		ID:          "sub-1",
		UserID:      "u1",
		Kind:        domain.KindSubscription,
		Description: "Music streaming",
		Amount:      decimal.NewFromFloat(9.99),
		Currency:    domain.USD,
		Date:        time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	}))

	res := execute(r, "list_subscriptions", nil)
	require.Empty(t, res.Err)
	assert.Equal(t, 1, res.Payload["count"])
	assert.InDelta(t, 9.99, res.Payload["monthly_total"].(float64), 0.001)
}

package tools

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-assistant/internal/currency"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// filterParams is the schema fragment for the shared narrowing arguments.
func filterParams() map[string]*genai.Schema {
	return map[string]*genai.Schema{
		"category":   {Type: genai.TypeString, Description: "Exact category name to filter by."},
		"period":     {Type: genai.TypeString, Description: "Month to filter by, formatted YYYY-MM."},
		"start_date": {Type: genai.TypeString, Description: "Earliest record date, formatted YYYY-MM-DD."},
		"end_date":   {Type: genai.TypeString, Description: "Latest record date, formatted YYYY-MM-DD."},
		"min_amount": {Type: genai.TypeNumber, Description: "Minimum native amount, inclusive."},
		"max_amount": {Type: genai.TypeNumber, Description: "Maximum native amount, inclusive."},
		"limit":      {Type: genai.TypeNumber, Description: "Maximum number of records to return."},
		"currency":   currencyParam(),
	}
}

// recordPayload serializes one record for a tool response, keeping the
// native figure alongside its conversion into the target currency.
func recordPayload(rec *domain.FinancialRecord, target domain.CurrencyCode) map[string]any {
	native, _ := rec.Amount.Float64()
	converted, _ := currency.Convert(rec.Amount, rec.Currency, target).Float64()
	p := map[string]any{
		"id":               rec.ID,
		"description":      rec.Description,
		"amount":           native,
		"currency":         string(rec.Currency),
		"amount_converted": converted,
		"category":         rec.Category,
		"date":             rec.Date.Format("2006-01-02"),
	}
	if rec.Period != "" {
		p["period"] = rec.Period
	}
	return p
}

// sumConverted totals a record set in the target currency.
func sumConverted(records []*domain.FinancialRecord, target domain.CurrencyCode) float64 {
	total := decimal.Zero
	for _, rec := range records {
		total = total.Add(currency.Convert(rec.Amount, rec.Currency, target))
	}
	f, _ := total.Float64()
	return f
}

func queryExpensesTool(r *Registry) *Tool {
	return &Tool{
		Declaration: &genai.FunctionDeclaration{
			Name:        "query_expenses",
			Description: "List the user's expenses, optionally narrowed by category, month, date range, or amount range. Amounts are reported both natively and converted into one currency.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: filterParams(),
			},
		},
		Handler: func(ctx context.Context, req Request) (map[string]any, error) {
			return r.queryRecords(ctx, req, domain.KindExpense)
		},
	}
}

func queryIncomeTool(r *Registry) *Tool {
	return &Tool{
		Declaration: &genai.FunctionDeclaration{
			Name:        "query_income",
			Description: "List the user's income records, optionally narrowed by source category, month, date range, or amount range.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: filterParams(),
			},
		},
		Handler: func(ctx context.Context, req Request) (map[string]any, error) {
			return r.queryRecords(ctx, req, domain.KindIncome)
		},
	}
}

func (r *Registry) queryRecords(ctx context.Context, req Request, kind domain.RecordKind) (map[string]any, error) {
	args := req.Args
	// Income sources are not expense categories; pull the raw value out
	// before the filter validates against the expense set.
	var incomeSource string
	if kind == domain.KindIncome {
		if raw, ok := optionalString(args, "category"); ok {
			incomeSource = raw
			args = cloneWithout(args, "category")
		}
	}

	f, err := recordFilter(req.UserID, kind, args)
	if err != nil {
		return nil, err
	}
	if incomeSource != "" {
		f.Category = incomeSource
	}

	records, err := r.store.ListRecords(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("queryRecords: %w", err)
	}

	items := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		items = append(items, recordPayload(rec, req.Currency))
	}
	return map[string]any{
		"count":    len(records),
		"total":    sumConverted(records, req.Currency),
		"currency": string(req.Currency),
		"records":  items,
	}, nil
}

func listSubscriptionsTool(r *Registry) *Tool {
	return &Tool{
		Declaration: &genai.FunctionDeclaration{
			Name:        "list_subscriptions",
			Description: "List the user's recurring subscriptions with their combined monthly cost.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"currency": currencyParam(),
				},
			},
		},
		Handler: func(ctx context.Context, req Request) (map[string]any, error) {
			records, err := r.store.ListRecords(ctx, store.Filter{UserID: req.UserID, Kind: domain.KindSubscription})
			if err != nil {
				return nil, fmt.Errorf("listSubscriptions: %w", err)
			}

			items := make([]map[string]any, 0, len(records))
			for _, rec := range records {
				items = append(items, recordPayload(rec, req.Currency))
			}
			return map[string]any{
				"count":         len(records),
				"monthly_total": sumConverted(records, req.Currency),
				"currency":      string(req.Currency),
				"subscriptions": items,
			}, nil
		},
	}
}

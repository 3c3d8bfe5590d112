package tools

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/dvloznov/finance-assistant/internal/currency"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/store"
)

func searchExpensesTool(r *Registry) *Tool {
	return &Tool{
		Declaration: &genai.FunctionDeclaration{
			Name:        "search_expenses",
			Description: "Find expenses by meaning rather than exact words, e.g. 'that thing I bought at the airport'. Returns matches ranked by relevance.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"query":    {Type: genai.TypeString, Description: "What to search for, in natural language."},
					"limit":    {Type: genai.TypeNumber, Description: "Maximum number of matches to return."},
					"currency": currencyParam(),
				},
				Required: []string{"query"},
			},
		},
		Handler: r.searchExpenses,
	}
}

func (r *Registry) searchExpenses(ctx context.Context, req Request) (map[string]any, error) {
	if r.searcher == nil {
		return nil, fmt.Errorf("searchExpenses: semantic search is not configured: %w", domain.ErrToolExecution)
	}
	query, err := requireString(req.Args, "query")
	if err != nil {
		return nil, err
	}
	limit := 10
	if v, ok, err := optionalNumber(req.Args, "limit"); err != nil {
		return nil, err
	} else if ok && v >= 1 {
		limit = int(v)
	}

	matches, err := r.searcher.Search(ctx, query, limit, store.Filter{
		UserID: req.UserID,
		Kind:   domain.KindExpense,
	})
	if err != nil {
		return nil, fmt.Errorf("searchExpenses: %w", err)
	}

	items := make([]map[string]any, 0, len(matches))
	for _, m := range matches {
		native, _ := m.Record.Amount.Float64()
		converted, _ := currency.Convert(m.Record.Amount, m.Record.Currency, req.Currency).Float64()
		items = append(items, map[string]any{
			"id":               m.Record.ID,
			"description":      m.Record.Description,
			"amount":           native,
			"currency":         string(m.Record.Currency),
			"amount_converted": converted,
			"category":         m.Record.Category,
			"date":             m.Record.Date.Format("2006-01-02"),
			"similarity":       m.Similarity,
			"relevance":        string(m.Relevance),
		})
	}
	return map[string]any{
		"count":    len(items),
		"currency": string(req.Currency),
		"matches":  items,
	}, nil
}

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

func budgetStatusTool(r *Registry) *Tool {
	return &Tool{
		Declaration: &genai.FunctionDeclaration{
			Name:        "budget_status",
			Description: "Report spending against each budget for one month. The month must be given explicitly; never assume the current month without asking the user.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"period":   {Type: genai.TypeString, Description: "Month to report on, formatted YYYY-MM."},
					"currency": currencyParam(),
				},
				Required: []string{"period"},
			},
		},
		Handler: r.budgetStatus,
	}
}

// budgetStatus compares each budget against the month's spend in that
// budget's category. Everything is converted into the target currency
// before limits and spend are compared.
func (r *Registry) budgetStatus(ctx context.Context, req Request) (map[string]any, error) {
	raw, err := requireString(req.Args, "period")
	if err != nil {
		return nil, err
	}
	period, err := parsePeriod(raw)
	if err != nil {
		return nil, err
	}

	budgets, err := r.store.ListRecords(ctx, store.Filter{
		UserID: req.UserID,
		Kind:   domain.KindBudget,
		Period: period,
	})
	if err != nil {
		return nil, fmt.Errorf("budgetStatus: list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return map[string]any{
			"period":   period,
			"currency": string(req.Currency),
			"budgets":  []map[string]any{},
			"message":  fmt.Sprintf("no budgets set for %s", period),
		}, nil
	}

	expenses, err := r.store.ListRecords(ctx, store.Filter{
		UserID: req.UserID,
		Kind:   domain.KindExpense,
		Start:  monthStart(period),
		End:    monthEnd(period),
	})
	if err != nil {
		return nil, fmt.Errorf("budgetStatus: list expenses: %w", err)
	}

	spentByCategory := make(map[string]decimal.Decimal)
	for _, rec := range expenses {
		converted := currency.Convert(rec.Amount, rec.Currency, req.Currency)
		spentByCategory[rec.Category] = spentByCategory[rec.Category].Add(converted)
	}

	statuses := make([]map[string]any, 0, len(budgets))
	for _, b := range budgets {
		limit := currency.Convert(b.Amount, b.Currency, req.Currency)
		spent := spentByCategory[b.Category]
		remaining := limit.Sub(spent)

		limitF, _ := limit.Float64()
		spentF, _ := spent.Float64()
		remainingF, _ := remaining.Float64()
		statuses = append(statuses, map[string]any{
			"category":  b.Category,
			"limit":     limitF,
			"spent":     spentF,
			"remaining": remainingF,
			"exceeded":  spent.GreaterThan(limit),
		})
	}
	return map[string]any{
		"period":   period,
		"currency": string(req.Currency),
		"budgets":  statuses,
	}, nil
}

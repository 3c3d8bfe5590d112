package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-assistant/internal/currency"
	"github.com/dvloznov/finance-assistant/internal/domain"
)

// ChartPayloadKey is where generate_chart places its structured chart in
// the tool result payload. The orchestrator lifts it out as a side effect
// for the rendering layer.
const ChartPayloadKey = "chart"

func generateChartTool(r *Registry) *Tool {
	params := filterParams()
	params["chart_type"] = &genai.Schema{
		Type:        genai.TypeString,
		Description: "Chart shape to draw.",
		Enum:        []string{string(domain.ChartBar), string(domain.ChartLine), string(domain.ChartPie)},
	}
	params["group_by"] = &genai.Schema{
		Type:        genai.TypeString,
		Description: "Aggregation axis: by category or by month.",
		Enum:        []string{"category", "month"},
	}
	params["title"] = &genai.Schema{
		Type:        genai.TypeString,
		Description: "Chart title shown to the user.",
	}
	return &Tool{
		Declaration: &genai.FunctionDeclaration{
			Name:        "generate_chart",
			Description: "Build a chart of the user's expenses grouped by category or by month. The chart is rendered by the client; this returns its data.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: params,
				Required:   []string{"chart_type", "group_by"},
			},
		},
		Handler: r.generateChart,
	}
}

func (r *Registry) generateChart(ctx context.Context, req Request) (map[string]any, error) {
	rawType, err := requireString(req.Args, "chart_type")
	if err != nil {
		return nil, err
	}
	chartType := domain.ChartType(rawType)
	switch chartType {
	case domain.ChartBar, domain.ChartLine, domain.ChartPie:
	default:
		return nil, fmt.Errorf("unknown chart type %q: %w", rawType, domain.ErrValidation)
	}

	groupBy, err := requireString(req.Args, "group_by")
	if err != nil {
		return nil, err
	}
	if groupBy != "category" && groupBy != "month" {
		return nil, fmt.Errorf("group_by must be category or month: %w", domain.ErrValidation)
	}

	f, err := recordFilter(req.UserID, domain.KindExpense, req.Args)
	if err != nil {
		return nil, err
	}
	records, err := r.store.ListRecords(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("generateChart: %w", err)
	}

	totals := make(map[string]decimal.Decimal)
	for _, rec := range records {
		key := rec.Category
		if groupBy == "month" {
			key = rec.Date.Format("2006-01")
		}
		totals[key] = totals[key].Add(currency.Convert(rec.Amount, rec.Currency, req.Currency))
	}

	labels := make([]string, 0, len(totals))
	for label := range totals {
		labels = append(labels, label)
	}
	// Months sort chronologically; categories by descending total.
	if groupBy == "month" {
		sort.Strings(labels)
	} else {
		sort.Slice(labels, func(i, j int) bool {
			return totals[labels[i]].GreaterThan(totals[labels[j]])
		})
	}

	data := make([]domain.ChartPoint, 0, len(labels))
	for _, label := range labels {
		v, _ := totals[label].Float64()
		data = append(data, domain.ChartPoint{Label: label, Value: v})
	}

	title, _ := optionalString(req.Args, "title")
	if title == "" {
		title = defaultChartTitle(groupBy)
	}

	chart := domain.ChartPayload{
		Type:     chartType,
		Title:    title,
		Currency: req.Currency,
		Series:   []string{"Expenses"},
		Data:     data,
	}
	return map[string]any{
		ChartPayloadKey: chart,
		"points":        len(data),
		"currency":      string(req.Currency),
	}, nil
}

func defaultChartTitle(groupBy string) string {
	if groupBy == "month" {
		return "Expenses by Month"
	}
	return "Expenses by Category"
}

func monthStart(period string) time.Time {
	t, _ := time.Parse("2006-01", period)
	return t
}

func monthEnd(period string) time.Time {
	return monthStart(period).AddDate(0, 1, 0).Add(-24 * time.Hour)
}

package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/extract"
)

// previewSampleSize caps how many matched records a delete preview lists.
const previewSampleSize = 5

func addExpenseTool(r *Registry) *Tool {
	return &Tool{
		Declaration: &genai.FunctionDeclaration{
			Name:        "add_expense",
			Description: "Record a new expense for the user.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"description": {Type: genai.TypeString, Description: "Short description of the expense."},
					"amount":      {Type: genai.TypeNumber, Description: "Positive amount in the expense's own currency."},
					"currency":    currencyParam(),
					"category":    {Type: genai.TypeString, Description: "Category name. Defaults to keyword inference from the description."},
					"date":        {Type: genai.TypeString, Description: "Expense date, formatted YYYY-MM-DD. Defaults to today."},
				},
				Required: []string{"description", "amount"},
			},
		},
		Handler: r.addExpense,
	}
}

func (r *Registry) addExpense(ctx context.Context, req Request) (map[string]any, error) {
	desc, err := requireString(req.Args, "description")
	if err != nil {
		return nil, err
	}
	amount, err := requireNumber(req.Args, "amount")
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", domain.ErrValidation)
	}

	category := extract.DefaultCategory
	if raw, ok := optionalString(req.Args, "category"); ok {
		name, valid := extract.ValidCategory(raw)
		if !valid {
			return nil, fmt.Errorf("unknown category %q: %w", raw, domain.ErrValidation)
		}
		category = name
	} else if inferred := r.engine.Extract(desc, req.Currency).Category; inferred != "" {
		category = inferred
	}

	date := time.Now().UTC().Truncate(24 * time.Hour)
	if raw, ok := optionalString(req.Args, "date"); ok {
		d, err := parseDate(raw)
		if err != nil {
			return nil, err
		}
		date = d
	}

	rec := &domain.FinancialRecord{
		ID:          uuid.New().String(),
		UserID:      req.UserID,
		Kind:        domain.KindExpense,
		Description: desc,
		Amount:      decimal.NewFromFloat(amount),
		Currency:    req.Currency,
		Category:    category,
		Date:        date,
		CreatedAt:   time.Now().UTC(),
	}

	// Embedding failures only degrade later semantic search; the record
	// itself still lands.
	if r.embedder != nil {
		if embedding, err := r.embedder.Embed(ctx, desc); err != nil {
			r.log.Warn().Err(err).Msg("addExpense: embedding failed, storing record without one")
		} else {
			rec.Embedding = embedding
		}
	}

	if err := r.store.InsertRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("addExpense: %v: %w", err, domain.ErrToolExecution)
	}
	return map[string]any{
		"created": true,
		"record":  recordPayload(rec, req.Currency),
	}, nil
}

func deleteExpensesTool(r *Registry) *Tool {
	params := filterParams()
	params["confirm"] = &genai.Schema{
		Type:        genai.TypeBoolean,
		Description: "False (or absent) previews the matching records without deleting. True performs the deletion. Always preview first and show the user what will be deleted.",
	}
	return &Tool{
		Declaration: &genai.FunctionDeclaration{
			Name:        "delete_expenses",
			Description: "Delete the user's expenses matching the given criteria. Runs in two phases: a preview phase that reports what would be deleted, and a confirmed phase that deletes.",
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: params,
			},
		},
		Handler: r.deleteExpenses,
	}
}

// deleteExpenses is the destructive path. The confirm phase re-derives
// the match set from the criteria rather than trusting ids from the
// preview, so records added or removed between the two phases are
// handled by the criteria, not a stale snapshot.
func (r *Registry) deleteExpenses(ctx context.Context, req Request) (map[string]any, error) {
	f, err := recordFilter(req.UserID, domain.KindExpense, req.Args)
	if err != nil {
		return nil, err
	}
	if f.Category == "" && f.Period == "" && f.Start.IsZero() && f.End.IsZero() &&
		f.MinAmount == nil && f.MaxAmount == nil {
		return nil, fmt.Errorf("refusing to delete without at least one narrowing criterion: %w", domain.ErrValidation)
	}
	confirm, err := optionalBool(req.Args, "confirm")
	if err != nil {
		return nil, err
	}

	matches, err := r.store.ListRecords(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("deleteExpenses: %w", err)
	}

	if !confirm {
		sample := make([]map[string]any, 0, previewSampleSize)
		for i, rec := range matches {
			if i >= previewSampleSize {
				break
			}
			sample = append(sample, recordPayload(rec, req.Currency))
		}
		return map[string]any{
			"phase":    "preview",
			"count":    len(matches),
			"total":    sumConverted(matches, req.Currency),
			"currency": string(req.Currency),
			"sample":   sample,
		}, nil
	}

	ids := make([]string, 0, len(matches))
	for _, rec := range matches {
		ids = append(ids, rec.ID)
	}
	deleted, err := r.store.DeleteRecords(ctx, req.UserID, ids)
	if err != nil {
		return nil, fmt.Errorf("deleteExpenses: %v: %w", err, domain.ErrToolExecution)
	}
	r.log.Info().Int("deleted", deleted).Str("user_id", req.UserID).Msg("deleteExpenses: confirmed deletion")
	return map[string]any{
		"phase":   "deleted",
		"deleted": deleted,
	}, nil
}

package delegate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/extract"
)

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  genai.RoleModel,
				Parts: []*genai.Part{{Text: text}},
			},
		}},
	}
}

func stubClient(t *testing.T, generate func(ctx context.Context, contents []*genai.Content, cc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)) *Client {
	t.Helper()
	return NewForTesting(extract.NewEngine(), zerolog.Nop(), generate, nil)
}

func TestCategorize_UsesDelegateOutput(t *testing.T) {
	c := stubClient(t, func(ctx context.Context, contents []*genai.Content, cc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return textResponse(`[{"description":"Flat White","amount":5.5,"currency":"SGD","date":"2025-06-10","category":"Food & Dining"}]`), nil
	})

	r, err := c.Categorize(context.Background(), "coffee this morning", domain.USD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Method != domain.MethodDelegate {
		t.Errorf("method = %s, want delegate", r.Method)
	}
	if r.Amount == nil || r.Amount.Currency != domain.SGD {
		t.Errorf("amount = %+v, want 5.5 SGD", r.Amount)
	}
	if r.Category != "Food & Dining" {
		t.Errorf("category = %q", r.Category)
	}
	if r.Confidence != domain.ConfidenceHigh {
		t.Errorf("confidence = %s, want high", r.Confidence)
	}
}

func TestCategorize_InvalidCategoryCoercedLow(t *testing.T) {
	c := stubClient(t, func(ctx context.Context, contents []*genai.Content, cc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return textResponse(`[{"description":"Weird","amount":9,"currency":"USD","category":"Yacht Maintenance"}]`), nil
	})

	r, err := c.Categorize(context.Background(), "weird thing 9", domain.USD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Category != extract.DefaultCategory {
		t.Errorf("category = %q, want coerced default %q", r.Category, extract.DefaultCategory)
	}
	if r.Confidence != domain.ConfidenceLow {
		t.Errorf("confidence = %s, want low after coercion", r.Confidence)
	}
}

func TestCategorize_FallsBackToLocalEngine(t *testing.T) {
	c := stubClient(t, func(ctx context.Context, contents []*genai.Content, cc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return nil, fmt.Errorf("connection refused")
	})

	r, err := c.Categorize(context.Background(), "Lunch RM30", domain.SGD)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Method != domain.MethodKeyword {
		t.Errorf("method = %s, want keyword (local fallback)", r.Method)
	}
	if r.Amount == nil || r.Amount.Currency != domain.MYR {
		t.Errorf("amount = %+v, want 30 MYR from local extraction", r.Amount)
	}
}

func TestParseItems_FallbackIsSingleItem(t *testing.T) {
	c := stubClient(t, func(ctx context.Context, contents []*genai.Content, cc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return textResponse(""), nil
	})
	fallbackDate := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	items, err := c.ParseItems(context.Background(), "coffee 5 and lunch 12", domain.USD, fallbackDate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1 (whole input as one item)", len(items))
	}
	if items[0].Date == nil || !items[0].Date.Equal(fallbackDate) {
		t.Errorf("date = %v, want fallback date", items[0].Date)
	}
}

func TestCategorize_CancellationIsNotAFallback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := stubClient(t, func(ctx context.Context, contents []*genai.Content, cc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		cancel()
		return nil, ctx.Err()
	})

	_, err := c.Categorize(ctx, "coffee 5", domain.USD)
	if !errors.Is(err, domain.ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
}

func TestClassifyIncomeSource_CoercesUnknown(t *testing.T) {
	c := stubClient(t, func(ctx context.Context, contents []*genai.Content, cc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return textResponse("Pirate Treasure"), nil
	})

	source, conf, err := c.ClassifyIncomeSource(context.Background(), "found treasure")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source != extract.DefaultIncomeSource {
		t.Errorf("source = %q, want default", source)
	}
	if conf != domain.ConfidenceLow {
		t.Errorf("confidence = %s, want low", conf)
	}
}

func TestExtractReceipt_RemoteFailureSurfaces(t *testing.T) {
	c := stubClient(t, func(ctx context.Context, contents []*genai.Content, cc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return nil, fmt.Errorf("503")
	})

	_, err := c.ExtractReceipt(context.Background(), []byte{0x1}, "image/jpeg", domain.USD)
	if !errors.Is(err, domain.ErrRemoteService) {
		t.Fatalf("err = %v, want ErrRemoteService (no local fallback for images)", err)
	}
}

func TestConverse_MapsToolCallsAndSentinel(t *testing.T) {
	c := stubClient(t, func(ctx context.Context, contents []*genai.Content, cc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: &genai.Content{
					Role: genai.RoleModel,
					Parts: []*genai.Part{
						{FunctionCall: &genai.FunctionCall{ID: "call-1", Name: "query_expenses", Args: map[string]any{"category": "Groceries"}}},
						{FunctionCall: &genai.FunctionCall{Name: "budget_status", Args: map[string]any{"period": "2025-06"}}},
					},
				},
			}},
		}, nil
	})

	history := []domain.ConversationTurn{{Role: domain.RoleUser, Content: "how are my groceries doing"}}
	_, calls, err := c.Converse(context.Background(), "system", history, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(calls))
	}
	if calls[0].ContinuationToken != "call-1" {
		t.Errorf("token = %q, want call-1", calls[0].ContinuationToken)
	}
	if calls[1].ContinuationToken != domain.NoContinuationToken {
		t.Errorf("token = %q, want sentinel for absent ID", calls[1].ContinuationToken)
	}
}

package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/store/memory"
	"github.com/dvloznov/finance-assistant/internal/tools"
)

// scriptedDelegate replays a fixed sequence of responses, one per call.
type scriptedDelegate struct {
	steps []func(history []domain.ConversationTurn) (string, []domain.ToolCall, error)
	calls int
}

func (s *scriptedDelegate) Converse(ctx context.Context, system string, history []domain.ConversationTurn, _ []*genai.Tool) (string, []domain.ToolCall, error) {
	if s.calls >= len(s.steps) {
		return "", nil, errors.New("scripted delegate exhausted")
	}
	step := s.steps[s.calls]
	s.calls++
	return step(history)
}

func textStep(text string) func([]domain.ConversationTurn) (string, []domain.ToolCall, error) {
	return func([]domain.ConversationTurn) (string, []domain.ToolCall, error) {
		return text, nil, nil
	}
}

func callsStep(calls ...domain.ToolCall) func([]domain.ConversationTurn) (string, []domain.ToolCall, error) {
	return func([]domain.ConversationTurn) (string, []domain.ToolCall, error) {
		return "", calls, nil
	}
}

func newOrchestrator(t *testing.T, d Delegate) (*Orchestrator, *memory.Store) {
	t.Helper()
	st := memory.New()
	reg := tools.New(st, nil, nil, zerolog.Nop())
	return New(d, reg, zerolog.Nop()), st
}

func seed(t *testing.T, st *memory.Store, id, desc, category string, amount float64) {
	t.Helper()
	require.NoError(t, st.InsertRecord(context.Background(), &domain.FinancialRecord{
		ID:          id,
		UserID:      "u1",
		Kind:        domain.KindExpense,
		Description: desc,
		Amount:      decimal.NewFromFloat(amount),
		Currency:    domain.USD,
		Category:    category,
		Date:        time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC),
	}))
}

func TestConverse_PlainTextAnswer(t *testing.T) {
	o, _ := newOrchestrator(t, &scriptedDelegate{steps: []func([]domain.ConversationTurn) (string, []domain.ToolCall, error){
		textStep("Hello! How can I help with your finances?"),
	}})

	res, err := o.Converse(context.Background(), "u1", domain.USD, "hi", nil, "2025-06")
	require.NoError(t, err)
	assert.Equal(t, "Hello! How can I help with your finances?", res.Text)

	require.Len(t, res.History, 2)
	assert.Equal(t, domain.RoleUser, res.History[0].Role)
	assert.Equal(t, domain.RoleAssistant, res.History[1].Role)
}

func TestConverse_ParallelCallsCorrelatedByToken(t *testing.T) {
	d := &scriptedDelegate{steps: []func([]domain.ConversationTurn) (string, []domain.ToolCall, error){
		callsStep(
			domain.ToolCall{Name: "query_expenses", Args: map[string]any{"category": "Food & Dining"}, ContinuationToken: "tok-a"},
			domain.ToolCall{Name: "query_expenses", Args: map[string]any{"category": "Transport"}, ContinuationToken: "tok-b"},
			domain.ToolCall{Name: "list_subscriptions", Args: nil, ContinuationToken: "tok-c"},
		),
		textStep("You spent 5 on food and 15 on transport."),
	}}
	o, st := newOrchestrator(t, d)
	seed(t, st, "a", "coffee", "Food & Dining", 5)
	seed(t, st, "b", "taxi", "Transport", 15)

	res, err := o.Converse(context.Background(), "u1", domain.USD, "break down my spending", nil, "2025-06")
	require.NoError(t, err)
	assert.Equal(t, "You spent 5 on food and 15 on transport.", res.Text)

	// user, assistant(tool calls), tool(results), assistant(text)
	require.Len(t, res.History, 4)
	toolTurn := res.History[2]
	require.Equal(t, domain.RoleTool, toolTurn.Role)
	require.Len(t, toolTurn.ToolResults, 3)

	// Results come back in call order with each request's token echoed.
	assert.Equal(t, "tok-a", toolTurn.ToolResults[0].ContinuationToken)
	assert.Equal(t, "tok-b", toolTurn.ToolResults[1].ContinuationToken)
	assert.Equal(t, "tok-c", toolTurn.ToolResults[2].ContinuationToken)
	for _, r := range toolTurn.ToolResults {
		assert.Empty(t, r.Err)
	}
}

func TestConverse_PartialFailureDegradesGracefully(t *testing.T) {
	d := &scriptedDelegate{steps: []func([]domain.ConversationTurn) (string, []domain.ToolCall, error){
		callsStep(
			domain.ToolCall{Name: "query_expenses", Args: nil, ContinuationToken: "tok-a"},
			domain.ToolCall{Name: "no_such_tool", Args: nil, ContinuationToken: "tok-b"},
		),
		textStep("Here is what I could find."),
	}}
	o, _ := newOrchestrator(t, d)

	res, err := o.Converse(context.Background(), "u1", domain.USD, "stats please", nil, "")
	require.NoError(t, err, "one failed call must not abort the turn")

	toolTurn := res.History[2]
	require.Len(t, toolTurn.ToolResults, 2)
	assert.Empty(t, toolTurn.ToolResults[0].Err)
	assert.NotEmpty(t, toolTurn.ToolResults[1].Err, "failure travels inside its own result")
}

func TestConverse_AllCallsFailingAbortsTurn(t *testing.T) {
	d := &scriptedDelegate{steps: []func([]domain.ConversationTurn) (string, []domain.ToolCall, error){
		callsStep(
			domain.ToolCall{Name: "no_such_tool", Args: nil, ContinuationToken: "tok-a"},
			domain.ToolCall{Name: "also_missing", Args: nil, ContinuationToken: "tok-b"},
		),
	}}
	o, _ := newOrchestrator(t, d)

	res, err := o.Converse(context.Background(), "u1", domain.USD, "do things", nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrToolExecution))
	// The log still records what happened before the abort.
	assert.Len(t, res.History, 3)
}

func TestConverse_ChartSurfacesAsSideEffect(t *testing.T) {
	d := &scriptedDelegate{steps: []func([]domain.ConversationTurn) (string, []domain.ToolCall, error){
		callsStep(domain.ToolCall{
			Name:              "generate_chart",
			Args:              map[string]any{"chart_type": "pie", "group_by": "category"},
			ContinuationToken: "tok-a",
		}),
		textStep("Here is your spending chart."),
	}}
	o, st := newOrchestrator(t, d)
	seed(t, st, "a", "coffee", "Food & Dining", 5)

	res, err := o.Converse(context.Background(), "u1", domain.USD, "chart my spending", nil, "")
	require.NoError(t, err)
	require.Len(t, res.Charts, 1)
	assert.Equal(t, domain.ChartPie, res.Charts[0].Type)
	assert.Equal(t, domain.USD, res.Charts[0].Currency)
}

func TestConverse_RoundLimitForcesTextAnswer(t *testing.T) {
	// Every tool round requests another call; after the cap the delegate
	// is asked once more without tools and must answer in text.
	steps := make([]func([]domain.ConversationTurn) (string, []domain.ToolCall, error), 0, 5)
	for i := 0; i < 4; i++ {
		steps = append(steps, callsStep(domain.ToolCall{Name: "query_expenses", Args: nil, ContinuationToken: "tok"}))
	}
	steps = append(steps, textStep("Final summary."))

	o, _ := newOrchestrator(t, &scriptedDelegate{steps: steps})
	res, err := o.Converse(context.Background(), "u1", domain.USD, "loop forever", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "Final summary.", res.Text)
}

func TestConverse_DelegateFailurePreservesHistory(t *testing.T) {
	o, _ := newOrchestrator(t, &scriptedDelegate{steps: []func([]domain.ConversationTurn) (string, []domain.ToolCall, error){
		func([]domain.ConversationTurn) (string, []domain.ToolCall, error) {
			return "", nil, domain.ErrRemoteService
		},
	}})

	res, err := o.Converse(context.Background(), "u1", domain.USD, "hello", nil, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRemoteService))
	require.Len(t, res.History, 1, "the user turn stays in the log")
}

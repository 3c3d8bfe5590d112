// Package orchestrator drives a multi-turn conversation between the user,
// the reasoning service, and the tool registry. Each user message runs a
// loop: ask the service, execute whatever tools it requested in parallel,
// feed the results back, and repeat until the service answers in text.
// The conversation log is append-only; turns are never rewritten.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-assistant/internal/delegate"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/tools"
)

// maxToolRounds caps how many request/execute cycles one user message may
// trigger before the service is forced to answer in text.
const maxToolRounds = 4

// Delegate is the reasoning-service surface the orchestrator needs.
type Delegate interface {
	Converse(ctx context.Context, system string, history []domain.ConversationTurn, tools []*genai.Tool) (string, []domain.ToolCall, error)
}

// Executor runs tool calls and advertises their declarations.
type Executor interface {
	Declarations() []*genai.Tool
	Execute(ctx context.Context, userID string, defaultCurrency domain.CurrencyCode, call domain.ToolCall) domain.ToolResult
}

// Result is the outcome of one user message: the assistant's reply, any
// chart side effects produced along the way, and the updated log.
type Result struct {
	Text    string
	Charts  []domain.ChartPayload
	History []domain.ConversationTurn
}

// Orchestrator coordinates conversation turns. Construct with New.
type Orchestrator struct {
	delegate Delegate
	executor Executor
	log      zerolog.Logger
}

// New creates an orchestrator over the given delegate and tool executor.
func New(d Delegate, e Executor, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{delegate: d, executor: e, log: log}
}

// Converse processes one user message. The returned history always
// includes every turn that completed, even when an error is also
// returned, so callers can persist partial progress.
func (o *Orchestrator) Converse(ctx context.Context, userID string, defaultCurrency domain.CurrencyCode, message string, history []domain.ConversationTurn, contextPeriod string) (Result, error) {
	history = append(history, domain.ConversationTurn{
		Role:    domain.RoleUser,
		Content: message,
	})
	system := delegate.ConverseSystemPrompt(defaultCurrency, contextPeriod)

	var charts []domain.ChartPayload
	for round := 0; round < maxToolRounds; round++ {
		text, calls, err := o.delegate.Converse(ctx, system, history, o.executor.Declarations())
		if err != nil {
			return Result{History: history}, fmt.Errorf("Converse: %w", err)
		}

		if len(calls) == 0 {
			history = append(history, domain.ConversationTurn{
				Role:    domain.RoleAssistant,
				Content: text,
			})
			return Result{Text: text, Charts: charts, History: history}, nil
		}

		history = append(history, domain.ConversationTurn{
			Role:      domain.RoleAssistant,
			Content:   text,
			ToolCalls: calls,
		})

		results, err := o.executeAll(ctx, userID, defaultCurrency, calls)
		if err != nil {
			return Result{History: history}, fmt.Errorf("Converse: %w", err)
		}

		failures := 0
		for _, res := range results {
			if res.Err != "" {
				failures++
				continue
			}
			if chart, ok := res.Payload[tools.ChartPayloadKey].(domain.ChartPayload); ok {
				charts = append(charts, chart)
			}
		}

		history = append(history, domain.ConversationTurn{
			Role:        domain.RoleTool,
			ToolResults: results,
		})

		// One failed call among several is reported back to the service
		// inside its own result; only a full wipeout aborts the turn.
		if failures == len(results) {
			return Result{Charts: charts, History: history},
				fmt.Errorf("Converse: all %d tool calls failed: %w", len(results), domain.ErrToolExecution)
		}
	}

	// Round limit hit: one final call with no tools attached forces a
	// text answer from whatever results are already in the log.
	text, _, err := o.delegate.Converse(ctx, system, history, nil)
	if err != nil {
		return Result{Charts: charts, History: history}, fmt.Errorf("Converse: %w", err)
	}
	history = append(history, domain.ConversationTurn{
		Role:    domain.RoleAssistant,
		Content: text,
	})
	return Result{Text: text, Charts: charts, History: history}, nil
}

// executeAll fans the batch out concurrently and returns results in call
// order, each correlated by the call's continuation token.
func (o *Orchestrator) executeAll(ctx context.Context, userID string, defaultCurrency domain.CurrencyCode, calls []domain.ToolCall) ([]domain.ToolResult, error) {
	results := make([]domain.ToolResult, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("executeAll: %v: %w", err, domain.ErrCancelled)
			}
			results[i] = o.executor.Execute(gctx, userID, defaultCurrency, call)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Package tools is the registry of operations the reasoning service may
// invoke during a conversation. Every handler validates its arguments
// before touching the store and normalizes all monetary output into one
// target currency, so figures from mixed-currency records are never
// combined raw.
package tools

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/extract"
	"github.com/dvloznov/finance-assistant/internal/search"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// Request carries the resolved per-call context into a handler. Currency
// is the target currency every monetary figure in the response must be
// converted into.
type Request struct {
	UserID   string
	Currency domain.CurrencyCode
	Args     map[string]any
}

// Handler executes one tool call and returns its structured payload.
type Handler func(ctx context.Context, req Request) (map[string]any, error)

// Tool pairs a function declaration (the schema advertised to the
// reasoning service) with its handler.
type Tool struct {
	Declaration *genai.FunctionDeclaration
	Handler     Handler
}

// Registry holds the registered tools and the shared dependencies their
// handlers use.
type Registry struct {
	store    store.Store
	searcher *search.Adapter
	embedder search.Embedder
	engine   *extract.Engine
	log      zerolog.Logger

	tools map[string]*Tool
	order []string
}

// New creates a registry with the full tool set registered. The embedder
// may be nil; new records are then stored without embeddings.
func New(st store.Store, searcher *search.Adapter, embedder search.Embedder, log zerolog.Logger) *Registry {
	r := &Registry{
		store:    st,
		searcher: searcher,
		embedder: embedder,
		engine:   extract.NewEngine(),
		log:      log,
		tools:    make(map[string]*Tool),
	}

	r.register(queryExpensesTool(r))
	r.register(queryIncomeTool(r))
	r.register(addExpenseTool(r))
	r.register(budgetStatusTool(r))
	r.register(deleteExpensesTool(r))
	r.register(generateChartTool(r))
	r.register(searchExpensesTool(r))
	r.register(listSubscriptionsTool(r))
	return r
}

func (r *Registry) register(t *Tool) {
	r.tools[t.Declaration.Name] = t
	r.order = append(r.order, t.Declaration.Name)
}

// Declarations returns the tool schema in the shape the reasoning service
// expects, in registration order.
func (r *Registry) Declarations() []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(r.order))
	for _, name := range r.order {
		decls = append(decls, r.tools[name].Declaration)
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// Execute runs one tool call and always produces a result carrying the
// call's continuation token. Failures are reported inside the result, not
// as a Go error, so one bad call in a batch never poisons its siblings.
func (r *Registry) Execute(ctx context.Context, userID string, defaultCurrency domain.CurrencyCode, call domain.ToolCall) domain.ToolResult {
	result := domain.ToolResult{
		Name:              call.Name,
		ContinuationToken: call.ContinuationToken,
	}

	tool, ok := r.tools[call.Name]
	if !ok {
		result.Err = fmt.Sprintf("unknown tool %q", call.Name)
		return result
	}

	// An explicit currency argument overrides the caller's default for
	// this one call.
	target := defaultCurrency
	if raw, ok := optionalString(call.Args, "currency"); ok {
		parsed, valid := domain.ParseCurrency(raw)
		if !valid {
			result.Err = fmt.Sprintf("unsupported currency %q", raw)
			return result
		}
		target = parsed
	}
	result.Currency = target

	payload, err := tool.Handler(ctx, Request{
		UserID:   userID,
		Currency: target,
		Args:     call.Args,
	})
	if err != nil {
		r.log.Warn().Err(err).Str("tool", call.Name).Msg("Execute: tool call failed")
		result.Err = err.Error()
		return result
	}
	result.Payload = payload
	return result
}

// currencyParam is the schema fragment shared by every tool that reports
// monetary figures.
func currencyParam() *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeString,
		Description: "Three-letter currency code to convert all amounts into. Defaults to the user's currency.",
	}
}

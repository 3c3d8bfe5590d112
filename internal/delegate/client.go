// Package delegate wraps the remote reasoning service (Gemini) behind the
// operations the tracker needs: single-item categorization, multi-item
// parsing, income-source classification, receipt-image extraction, the
// tool-calling conversation turn, and text embedding. Every text operation
// falls back to the local extraction engine when the remote call fails.
package delegate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/extract"
)

// Config selects the models used for reasoning and embedding.
type Config struct {
	Model      string
	EmbedModel string
}

// DefaultConfig returns the model names used unless overridden.
func DefaultConfig() Config {
	return Config{
		Model:      "gemini-2.5-flash",
		EmbedModel: "gemini-embedding-001",
	}
}

// EmbeddingDimensions is the fixed length of vectors produced by Embed.
const EmbeddingDimensions = 768

// Client is the AI delegate. The zero value is not usable; construct with
// New, or populate the call seams directly in tests.
type Client struct {
	cfg    Config
	engine *extract.Engine
	log    zerolog.Logger

	gen *genai.Client

	// generateContent and embedContent are seams over the genai SDK so
	// fallback behavior is testable without network access.
	generateContent func(ctx context.Context, contents []*genai.Content, cc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	embedContent    func(ctx context.Context, text string) ([]float32, error)
}

// New creates a delegate client. The genai client reads credentials from
// the environment (GEMINI_API_KEY / GOOGLE_API_KEY).
func New(ctx context.Context, cfg Config, engine *extract.Engine, log zerolog.Logger) (*Client, error) {
	gen, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("delegate.New: create genai client: %w", err)
	}

	c := &Client{
		cfg:    cfg,
		engine: engine,
		log:    log,
		gen:    gen,
	}
	c.generateContent = func(ctx context.Context, contents []*genai.Content, cc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return c.gen.Models.GenerateContent(ctx, c.cfg.Model, contents, cc)
	}
	c.embedContent = func(ctx context.Context, text string) ([]float32, error) {
		dims := int32(EmbeddingDimensions)
		resp, err := c.gen.Models.EmbedContent(ctx, c.cfg.EmbedModel, genai.Text(text), &genai.EmbedContentConfig{
			OutputDimensionality: &dims,
		})
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
			return nil, fmt.Errorf("empty embedding response")
		}
		return resp.Embeddings[0].Values, nil
	}
	return c, nil
}

// NewForTesting builds a client with injected call seams and no real genai
// client behind it.
func NewForTesting(
	engine *extract.Engine,
	log zerolog.Logger,
	generate func(ctx context.Context, contents []*genai.Content, cc *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error),
	embed func(ctx context.Context, text string) ([]float32, error),
) *Client {
	return &Client{
		cfg:             DefaultConfig(),
		engine:          engine,
		log:             log,
		generateContent: generate,
		embedContent:    embed,
	}
}

// cancelled converts a context error into the dedicated cancellation kind.
// Cancellation never triggers a fallback hop.
func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("delegate: %v: %w", err, domain.ErrCancelled)
	}
	return nil
}

// Categorize interprets one expense note via the reasoning service,
// falling back to the local engine on any remote failure. The returned
// error is non-nil only for cancellation.
func (c *Client) Categorize(ctx context.Context, text string, defaultCurrency domain.CurrencyCode) (domain.ExtractionResult, error) {
	items, err := c.requestItems(ctx, buildCategorizePrompt(text, defaultCurrency))
	if err != nil {
		if cerr := cancelled(ctx); cerr != nil {
			return domain.ExtractionResult{}, cerr
		}
		c.log.Warn().Err(err).Msg("Categorize: remote call failed, using local extraction")
		return c.engine.Extract(text, defaultCurrency), nil
	}
	return c.coerceItem(items[0], defaultCurrency, nil), nil
}

// ParseItems extracts every expense described in one free-text block. On
// remote failure the whole input is treated as a single item by the local
// engine.
func (c *Client) ParseItems(ctx context.Context, text string, defaultCurrency domain.CurrencyCode, fallbackDate time.Time) ([]domain.ExtractionResult, error) {
	items, err := c.requestItems(ctx, buildMultiItemPrompt(text, defaultCurrency, fallbackDate))
	if err != nil {
		if cerr := cancelled(ctx); cerr != nil {
			return nil, cerr
		}
		c.log.Warn().Err(err).Msg("ParseItems: remote call failed, using local extraction")
		return c.engine.ExtractMultiple(text, defaultCurrency, fallbackDate), nil
	}

	results := make([]domain.ExtractionResult, 0, len(items))
	for _, item := range items {
		results = append(results, c.coerceItem(item, defaultCurrency, &fallbackDate))
	}
	return results, nil
}

// ClassifyIncomeSource labels income text with one of the fixed sources.
// Invalid model output coerces to the default source with low confidence;
// remote failure falls back to local keyword scoring.
func (c *Client) ClassifyIncomeSource(ctx context.Context, text string) (string, domain.Confidence, error) {
	resp, err := c.generateContent(ctx, genai.Text(buildIncomeSourcePrompt(text)), nil)
	if err != nil || resp == nil || resp.Text() == "" {
		if cerr := cancelled(ctx); cerr != nil {
			return "", "", cerr
		}
		c.log.Warn().Err(err).Msg("ClassifyIncomeSource: remote call failed, using keyword scoring")
		return extract.InferIncomeSource(text), domain.ConfidenceMedium, nil
	}

	answer := strings.TrimSpace(resp.Text())
	for _, allowed := range extract.AllowedIncomeSources() {
		if strings.EqualFold(answer, allowed) {
			return allowed, domain.ConfidenceHigh, nil
		}
	}
	return extract.DefaultIncomeSource, domain.ConfidenceLow, nil
}

// ExtractReceipt parses a receipt image into candidate expense items.
// There is no local equivalent for images, so remote failures surface as
// errors instead of falling back.
func (c *Client) ExtractReceipt(ctx context.Context, image []byte, mimeType string, defaultCurrency domain.CurrencyCode) ([]domain.ExtractionResult, error) {
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: buildReceiptPrompt(defaultCurrency)},
			{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
		},
	}}

	resp, err := c.generateContent(ctx, contents, nil)
	if err != nil {
		if cerr := cancelled(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("ExtractReceipt: generate content: %v: %w", err, domain.ErrRemoteService)
	}
	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("ExtractReceipt: empty response from model: %w", domain.ErrRemoteService)
	}

	items, err := parseObjectArray(raw, itemFields)
	if err != nil {
		return nil, fmt.Errorf("ExtractReceipt: %w", err)
	}

	results := make([]domain.ExtractionResult, 0, len(items))
	for _, item := range items {
		results = append(results, c.coerceItem(item, defaultCurrency, nil))
	}
	return results, nil
}

// Embed converts text to the fixed-dimension embedding vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	values, err := c.embedContent(ctx, text)
	if err != nil {
		if cerr := cancelled(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, fmt.Errorf("Embed: %v: %w", err, domain.ErrRemoteService)
	}
	return values, nil
}

// requestItems runs one prompt expecting an array-of-objects reply and
// repairs truncation before giving up.
func (c *Client) requestItems(ctx context.Context, prompt string) ([]map[string]any, error) {
	resp, err := c.generateContent(ctx, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("requestItems: generate content: %v: %w", err, domain.ErrRemoteService)
	}
	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("requestItems: empty response from model: %w", domain.ErrRemoteService)
	}

	items, err := parseObjectArray(raw, itemFields)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("requestItems: model returned no items: %w", domain.ErrMalformedOutput)
	}
	return items, nil
}

// coerceItem validates one loose model object into an ExtractionResult.
// Values outside the fixed sets coerce to documented defaults and force
// confidence low; nothing is trusted blindly.
func (c *Client) coerceItem(item map[string]any, defaultCurrency domain.CurrencyCode, fallbackDate *time.Time) domain.ExtractionResult {
	confidence := domain.ConfidenceHigh

	desc, ok := getStringField(item, "description")
	if !ok {
		desc = ""
		confidence = domain.ConfidenceLow
	}

	result := domain.ExtractionResult{
		CleanedDescription: desc,
		Method:             domain.MethodDelegate,
	}

	if v, ok := getFloat64Field(item, "amount"); ok {
		if v < 0 {
			v = -v
		}
		currency := defaultCurrency
		if raw, ok := getStringField(item, "currency"); ok {
			if parsed, valid := domain.ParseCurrency(raw); valid {
				currency = parsed
			} else {
				confidence = domain.ConfidenceLow
			}
		}
		m := domain.NewMonetaryAmount(v, currency)
		result.Amount = &m
	} else {
		confidence = domain.ConfidenceLow
	}

	if raw, ok := getStringField(item, "date"); ok {
		if d, err := time.Parse("2006-01-02", raw); err == nil {
			result.Date = &d
		} else {
			confidence = domain.ConfidenceLow
		}
	}
	if result.Date == nil && fallbackDate != nil {
		d := *fallbackDate
		result.Date = &d
	}

	if raw, ok := getStringField(item, "category"); ok {
		if name, valid := extract.ValidCategory(raw); valid {
			result.Category = name
		} else {
			result.Category = extract.DefaultCategory
			confidence = domain.ConfidenceLow
		}
	} else {
		result.Category = extract.DefaultCategory
		confidence = domain.ConfidenceLow
	}

	result.Confidence = confidence
	return result
}

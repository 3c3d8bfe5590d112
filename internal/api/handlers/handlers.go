// Package handlers implements the HTTP endpoints of the assistant API.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/finance-assistant/internal/api/middleware"
	"github.com/dvloznov/finance-assistant/internal/domain"
	"github.com/dvloznov/finance-assistant/internal/extract"
	"github.com/dvloznov/finance-assistant/internal/jobs"
	"github.com/dvloznov/finance-assistant/internal/orchestrator"
	"github.com/dvloznov/finance-assistant/internal/receipts"
	"github.com/dvloznov/finance-assistant/internal/store"
)

// maxReceiptBytes caps receipt uploads at 10 MiB.
const maxReceiptBytes = 10 << 20

// Conversationalist is the orchestrator surface the converse endpoint
// needs.
type Conversationalist interface {
	Converse(ctx context.Context, userID string, defaultCurrency domain.CurrencyCode, message string, history []domain.ConversationTurn, contextPeriod string) (orchestrator.Result, error)
}

// resolveCurrency maps an optional currency field to a code, defaulting
// when absent.
func resolveCurrency(raw string, fallback domain.CurrencyCode) (domain.CurrencyCode, bool) {
	if raw == "" {
		return fallback, true
	}
	return domain.ParseCurrency(raw)
}

// ExtractHandler serves the deterministic extraction endpoints.
type ExtractHandler struct {
	engine *extract.Engine
	parser ItemParser
	cfgCur domain.CurrencyCode
	log    zerolog.Logger
}

// ItemParser is the delegate surface used by the parse endpoint.
type ItemParser interface {
	ParseItems(ctx context.Context, text string, defaultCurrency domain.CurrencyCode, fallbackDate time.Time) ([]domain.ExtractionResult, error)
}

// NewExtractHandler creates the extraction handler.
func NewExtractHandler(engine *extract.Engine, parser ItemParser, defaultCurrency domain.CurrencyCode, log zerolog.Logger) *ExtractHandler {
	return &ExtractHandler{engine: engine, parser: parser, cfgCur: defaultCurrency, log: log}
}

// Extract handles POST /api/extract: local keyword extraction with no
// remote calls, useful for instant client-side previews.
func (h *ExtractHandler) Extract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string `json:"text"`
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}
	cur, ok := resolveCurrency(req.Currency, h.cfgCur)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "unsupported currency")
		return
	}

	result := h.engine.Extract(req.Text, cur)
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Parse handles POST /api/parse: multi-item extraction through the
// reasoning service, degrading to local extraction on remote failure.
func (h *ExtractHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text     string `json:"text"`
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return
	}
	cur, ok := resolveCurrency(req.Currency, h.cfgCur)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "unsupported currency")
		return
	}

	items, err := h.parser.ParseItems(r.Context(), req.Text, cur, time.Now().UTC().Truncate(24*time.Hour))
	if err != nil {
		h.log.Error().Err(err).Msg("Parse: delegate call failed")
		middleware.WriteError(w, http.StatusBadGateway, "Parsing failed")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"items": items,
		"count": len(items),
	})
}

// ConverseHandler serves the conversational endpoint.
type ConverseHandler struct {
	orch   Conversationalist
	cfgCur domain.CurrencyCode
	log    zerolog.Logger
}

// NewConverseHandler creates the converse handler.
func NewConverseHandler(orch Conversationalist, defaultCurrency domain.CurrencyCode, log zerolog.Logger) *ConverseHandler {
	return &ConverseHandler{orch: orch, cfgCur: defaultCurrency, log: log}
}

// Converse handles POST /api/converse. The client holds the conversation
// log and sends it back with each message; the response returns the
// updated log for the next turn.
func (h *ConverseHandler) Converse(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message  string                    `json:"message"`
		History  []domain.ConversationTurn `json:"history"`
		Period   string                    `json:"period"`
		Currency string                    `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "message is required")
		return
	}
	cur, ok := resolveCurrency(req.Currency, h.cfgCur)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "unsupported currency")
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	result, err := h.orch.Converse(r.Context(), userID, cur, req.Message, req.History, req.Period)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("Converse: turn failed")
		middleware.WriteError(w, http.StatusBadGateway, "Conversation turn failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"reply":   result.Text,
		"charts":  result.Charts,
		"history": result.History,
	})
}

// BudgetsHandler serves monthly budget limits. One budget record exists
// per (user, period, category); setting it again replaces the limit.
type BudgetsHandler struct {
	store  store.Store
	cfgCur domain.CurrencyCode
	log    zerolog.Logger
}

// NewBudgetsHandler creates the budgets handler.
func NewBudgetsHandler(st store.Store, defaultCurrency domain.CurrencyCode, log zerolog.Logger) *BudgetsHandler {
	return &BudgetsHandler{store: st, cfgCur: defaultCurrency, log: log}
}

// SetBudget handles PUT /api/budgets.
func (h *BudgetsHandler) SetBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Category string  `json:"category"`
		Period   string  `json:"period"`
		Limit    float64 `json:"limit"`
		Currency string  `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	category, ok := extract.ValidCategory(req.Category)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "unknown category")
		return
	}
	periodStart, err := time.Parse("2006-01", req.Period)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "period must be formatted YYYY-MM")
		return
	}
	if req.Limit <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "limit must be positive")
		return
	}
	cur, ok := resolveCurrency(req.Currency, h.cfgCur)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "unsupported currency")
		return
	}

	rec := &domain.FinancialRecord{
		ID:          uuid.New().String(),
		UserID:      middleware.UserIDFromContext(r.Context()),
		Kind:        domain.KindBudget,
		Description: category + " budget",
		Amount:      decimal.NewFromFloat(req.Limit),
		Currency:    cur,
		Category:    category,
		Date:        periodStart,
		Period:      req.Period,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.store.UpsertPeriodRecord(r.Context(), rec); err != nil {
		h.log.Error().Err(err).Msg("SetBudget: upsert failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to save budget")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"category": rec.Category,
		"period":   rec.Period,
		"limit":    req.Limit,
		"currency": string(rec.Currency),
	})
}

// ListBudgets handles GET /api/budgets.
func (h *BudgetsHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	filter := store.Filter{
		UserID: middleware.UserIDFromContext(r.Context()),
		Kind:   domain.KindBudget,
		Period: r.URL.Query().Get("period"),
	}
	records, err := h.store.ListRecords(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("ListBudgets: failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list budgets")
		return
	}

	budgets := make([]map[string]interface{}, 0, len(records))
	for _, rec := range records {
		limit, _ := rec.Amount.Float64()
		budgets = append(budgets, map[string]interface{}{
			"category": rec.Category,
			"period":   rec.Period,
			"limit":    limit,
			"currency": string(rec.Currency),
		})
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"budgets": budgets,
		"count":   len(budgets),
	})
}

// ReceiptsHandler serves receipt uploads and enqueues scan jobs.
type ReceiptsHandler struct {
	objects   receipts.ObjectStore
	publisher jobs.Publisher
	cfgCur    domain.CurrencyCode
	log       zerolog.Logger
}

// NewReceiptsHandler creates the receipts handler.
func NewReceiptsHandler(objects receipts.ObjectStore, publisher jobs.Publisher, defaultCurrency domain.CurrencyCode, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{objects: objects, publisher: publisher, cfgCur: defaultCurrency, log: log}
}

// Upload handles POST /api/receipts. The body is the raw image; the scan
// runs asynchronously and the response carries the job to poll.
func (h *ReceiptsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	mimeType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		middleware.WriteError(w, http.StatusBadRequest, "Content-Type must be an image type")
		return
	}
	cur, ok := resolveCurrency(r.URL.Query().Get("currency"), h.cfgCur)
	if !ok {
		middleware.WriteError(w, http.StatusBadRequest, "unsupported currency")
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxReceiptBytes+1))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	if len(data) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Empty image")
		return
	}
	if len(data) > maxReceiptBytes {
		middleware.WriteError(w, http.StatusRequestEntityTooLarge, "Image too large")
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	uri, err := h.objects.Save(r.Context(), userID, mimeType, data)
	if err != nil {
		h.log.Error().Err(err).Msg("Upload: failed to store image")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store image")
		return
	}

	job := &jobs.ScanReceiptJob{
		UserID:   userID,
		GCSURI:   uri,
		MIMEType: mimeType,
		Currency: string(cur),
	}
	if err := h.publisher.PublishScanReceipt(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Upload: failed to enqueue scan")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue scan")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("uri", uri).Msg("Upload: receipt scan enqueued")
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler serves scan job status.
type JobsHandler struct {
	store jobs.Store
	log   zerolog.Logger
}

// NewJobsHandler creates the jobs handler.
func NewJobsHandler(store jobs.Store, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.UserID != middleware.UserIDFromContext(r.Context()) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobs.Filter{
		UserID: middleware.UserIDFromContext(r.Context()),
		Status: jobs.Status(r.URL.Query().Get("status")),
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("ListJobs: failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

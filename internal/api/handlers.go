package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pitchlens/pitchlens/internal/config"
	"github.com/pitchlens/pitchlens/internal/extract"
	"github.com/pitchlens/pitchlens/internal/llm"
	"github.com/pitchlens/pitchlens/internal/models"
	"github.com/pitchlens/pitchlens/internal/persona"
	"github.com/pitchlens/pitchlens/internal/respcache"
	"github.com/pitchlens/pitchlens/internal/usage"
)

const (
	endpointAnalyze = "analyze-slides"
	endpointChat    = "chat"
)

// Completer is the gateway surface the handlers consume.
type Completer interface {
	Complete(ctx context.Context, messages []models.ChatMessage, opts llm.Options) (*models.CompletionResult, error)
}

// ConversationStore is the history surface the handlers consume. An
// alternate backend can be substituted without changing the handlers.
type ConversationStore interface {
	Create(systemPrompt string) string
	AddMessage(id string, role models.Role, content string, tokens ...int) bool
	Messages(id string) ([]models.ChatMessage, bool)
	Delete(id string) bool
	ClearAll()
	GetStats() models.ConversationStats
	SweepIdle() int
}

// CacheObserver receives hit/miss signals for metrics.
type CacheObserver interface {
	ObserveCacheLookup(hit bool)
}

type noopCacheObserver struct{}

func (noopCacheObserver) ObserveCacheLookup(bool) {}

// Handler wires the request-economics pipeline behind the HTTP surface:
// locate conversation, check budget, consult the cache, call the
// gateway, then record the outcome.
type Handler struct {
	gateway   Completer
	extractor extract.Extractor
	cache     *respcache.Cache
	tracker   *usage.Tracker
	store     ConversationStore
	personas  *persona.Registry
	limits    config.LimitsConfig
	openai    config.OpenAIConfig
	observer  CacheObserver
	logger    *slog.Logger
}

// NewHandler constructs the API handler.
func NewHandler(gateway Completer, extractor extract.Extractor, cache *respcache.Cache, tracker *usage.Tracker, store ConversationStore, personas *persona.Registry, limits config.LimitsConfig, openAI config.OpenAIConfig, observer CacheObserver, logger *slog.Logger) *Handler {
	if observer == nil {
		observer = noopCacheObserver{}
	}
	if extractor == nil {
		extractor = extract.PlainText{}
	}
	return &Handler{
		gateway:   gateway,
		extractor: extractor,
		cache:     cache,
		tracker:   tracker,
		store:     store,
		personas:  personas,
		limits:    limits,
		openai:    openAI,
		observer:  observer,
		logger:    logger,
	}
}

type analyzeRequest struct {
	Messages    []models.ChatMessage `json:"messages"`
	DeckText    string               `json:"deckText,omitempty"`
	Persona     string               `json:"persona,omitempty"`
	Temperature *float32             `json:"temperature,omitempty"`
}

type analyzeResponse struct {
	Content    string               `json:"content"`
	Analysis   *llm.AnalysisPayload `json:"analysis,omitempty"`
	TokensUsed int                  `json:"tokensUsed"`
	Cost       float64              `json:"cost"`
	Cached     bool                 `json:"cached"`
}

// AnalyzeSlidesHandler handles POST /api/analyze-slides.
func (h *Handler) AnalyzeSlidesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}

	// Raw deck text is extracted into slide pages and folded into a
	// prompt; pre-built messages are passed through unchanged.
	if len(req.Messages) == 0 && req.DeckText != "" {
		messages, err := h.deckMessages(r.Context(), req.DeckText, req.Persona)
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		req.Messages = messages
	}

	if err := validateMessages(req.Messages); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := validateTemperature(req.Temperature); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if !h.withinBudget(w) {
		return
	}

	temperature := h.resolveTemperature(req.Temperature)
	fingerprint := respcache.Fingerprint(endpointAnalyze, h.openai.Model, req.Messages, temperature)

	if cached := h.cache.Get(fingerprint); cached != nil {
		h.observer.ObserveCacheLookup(true)
		writeJSON(w, h.logger, http.StatusOK, analyzeResponse{
			Content:    cached.Content,
			Analysis:   llm.ParseAnalysis(cached.Content, h.logger),
			TokensUsed: cached.TokensUsed,
			Cost:       0,
			Cached:     true,
		})
		return
	}
	h.observer.ObserveCacheLookup(false)

	result, err := h.gateway.Complete(r.Context(), req.Messages, llm.Options{
		Model:          h.openai.Model,
		Temperature:    req.Temperature,
		MaxInputTokens: h.limits.MaxInputTokens,
	})
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}

	h.cache.Set(fingerprint, result)
	h.tracker.Track(endpointAnalyze, result.TokensUsed, result.Cost)

	writeJSON(w, h.logger, http.StatusOK, analyzeResponse{
		Content:    result.Content,
		Analysis:   llm.ParseAnalysis(result.Content, h.logger),
		TokensUsed: result.TokensUsed,
		Cost:       result.Cost,
		Cached:     false,
	})
}

type chatRequest struct {
	Messages       []models.ChatMessage `json:"messages"`
	Temperature    *float32             `json:"temperature,omitempty"`
	ConversationID string               `json:"conversationId,omitempty"`
	Persona        string               `json:"persona,omitempty"`
	SystemPrompt   string               `json:"systemPrompt,omitempty"`
}

type chatResponse struct {
	Content        string  `json:"content"`
	TokensUsed     int     `json:"tokensUsed"`
	Cost           float64 `json:"cost"`
	Cached         bool    `json:"cached"`
	ConversationID string  `json:"conversationId"`
}

// ChatHandler handles POST /api/chat.
func (h *Handler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "request body is not valid JSON")
		return
	}
	if err := validateMessages(req.Messages); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := validateTemperature(req.Temperature); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if !h.withinBudget(w) {
		return
	}

	systemPrompt := req.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = h.personas.Get(req.Persona).SystemPrompt
	}

	// Locate or create the conversation, then fold the new user turns in.
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = h.store.Create(systemPrompt)
	} else if _, known := h.store.Messages(conversationID); !known {
		conversationID = h.store.Create(systemPrompt)
	}

	for _, m := range req.Messages {
		if m.Role == models.RoleSystem {
			continue
		}
		h.store.AddMessage(conversationID, m.Role, m.Content)
	}

	history, ok := h.store.Messages(conversationID)
	if !ok {
		// Capacity eviction can race the append in pathological configs.
		writeError(w, h.logger, http.StatusInternalServerError, "conversation_lost", "conversation no longer available")
		return
	}

	temperature := h.resolveTemperature(req.Temperature)
	fingerprint := respcache.Fingerprint(endpointChat, h.openai.Model, history, temperature)

	if cached := h.cache.Get(fingerprint); cached != nil {
		h.observer.ObserveCacheLookup(true)
		h.store.AddMessage(conversationID, models.RoleAssistant, cached.Content)
		writeJSON(w, h.logger, http.StatusOK, chatResponse{
			Content:        cached.Content,
			TokensUsed:     cached.TokensUsed,
			Cost:           0,
			Cached:         true,
			ConversationID: conversationID,
		})
		return
	}
	h.observer.ObserveCacheLookup(false)

	result, err := h.gateway.Complete(r.Context(), history, llm.Options{
		Model:          h.openai.Model,
		Temperature:    req.Temperature,
		MaxInputTokens: h.limits.MaxInputTokens,
	})
	if err != nil {
		h.writeGatewayError(w, err)
		return
	}

	h.cache.Set(fingerprint, result)
	h.store.AddMessage(conversationID, models.RoleAssistant, result.Content)
	h.tracker.Track(endpointChat, result.TokensUsed, result.Cost)

	writeJSON(w, h.logger, http.StatusOK, chatResponse{
		Content:        result.Content,
		TokensUsed:     result.TokensUsed,
		Cost:           result.Cost,
		Cached:         false,
		ConversationID: conversationID,
	})
}

// deckMessages turns raw deck text into the analysis prompt: the
// persona's system message plus one user message listing the extracted
// slides in order.
func (h *Handler) deckMessages(ctx context.Context, deckText, personaName string) ([]models.ChatMessage, error) {
	pages, err := h.extractor.Pages(ctx, strings.NewReader(deckText), "deck.txt")
	if err != nil {
		return nil, fmt.Errorf("extract slides: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("deckText contains no slide text")
	}

	var b strings.Builder
	b.WriteString("Analyze this pitch deck.\n")
	for i, page := range pages {
		fmt.Fprintf(&b, "\nSlide %d:\n%s\n", i+1, page)
	}

	return []models.ChatMessage{
		{Role: models.RoleSystem, Content: h.personas.Get(personaName).SystemPrompt},
		{Role: models.RoleUser, Content: b.String()},
	}, nil
}

// withinBudget rejects the request with 429 when today's limits are
// spent. The tracker only advises; enforcement lives here at the edge.
func (h *Handler) withinBudget(w http.ResponseWriter) bool {
	limits := h.tracker.CheckDailyLimits(h.limits.DailyCostUSD, h.limits.DailyTokens)
	if limits.CostExceeded || limits.TokensExceeded {
		h.logger.Warn("daily limit reached, rejecting request",
			"cost_exceeded", limits.CostExceeded,
			"tokens_exceeded", limits.TokensExceeded)
		writeError(w, h.logger, http.StatusTooManyRequests, "daily_limit_exceeded",
			"daily usage limit reached, try again tomorrow")
		return false
	}
	return true
}

// resolveTemperature normalizes the effective sampling temperature for
// fingerprinting: an omitted temperature and an explicit default-valued
// one hash identically.
func (h *Handler) resolveTemperature(t *float32) float32 {
	if t != nil {
		return *t
	}
	return h.openai.Temperature
}

func (h *Handler) writeGatewayError(w http.ResponseWriter, err error) {
	var tooLarge *llm.InputTooLargeError
	if errors.As(err, &tooLarge) {
		writeError(w, h.logger, http.StatusBadRequest, "input_too_large", tooLarge.Error())
		return
	}

	var rateLimited *llm.RateLimitError
	if errors.As(err, &rateLimited) {
		h.logger.Warn("provider rate limit surfaced after retries", "error", err)
		writeError(w, h.logger, http.StatusTooManyRequests, "rate_limited",
			"the model provider is rate limiting requests, try again shortly")
		return
	}

	h.logger.Error("completion failed", "error", err)
	writeError(w, h.logger, http.StatusBadGateway, "provider_error",
		"the model provider failed to produce a response")
}

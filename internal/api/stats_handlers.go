package api

import (
	"net/http"
	"strings"

	"github.com/pitchlens/pitchlens/internal/models"
)

type usageStatsResponse struct {
	Usage       models.UsageStats  `json:"usage"`
	Cache       any                `json:"cache"`
	Limits      limitsView         `json:"limits"`
	TodaysUsage models.UsageTotals `json:"todaysUsage"`
}

type limitsView struct {
	DailyCostUSD   float64            `json:"dailyCostUsd"`
	DailyTokens    int                `json:"dailyTokens"`
	MaxInputTokens int                `json:"maxInputTokens"`
	Status         models.LimitStatus `json:"status"`
}

// UsageStatsHandler handles GET /api/usage-stats.
func (h *Handler) UsageStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, usageStatsResponse{
		Usage: h.tracker.GetStats(),
		Cache: h.cache.GetStats(),
		Limits: limitsView{
			DailyCostUSD:   h.limits.DailyCostUSD,
			DailyTokens:    h.limits.DailyTokens,
			MaxInputTokens: h.limits.MaxInputTokens,
			Status:         h.tracker.CheckDailyLimits(h.limits.DailyCostUSD, h.limits.DailyTokens),
		},
		TodaysUsage: h.tracker.TodaysUsage(),
	})
}

// ConversationStatsHandler handles GET /api/conversation-stats.
func (h *Handler) ConversationStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, h.store.GetStats())
}

// PersonasHandler handles GET /api/personas for the UI dropdown.
func (h *Handler) PersonasHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "method_not_allowed", "use GET")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"personas": h.personas.List(),
		"default":  strings.ToLower(h.personas.Get("").Name),
	})
}

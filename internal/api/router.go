package api

import "net/http"

// SetupRoutes registers the API surface on the mux.
func SetupRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("/api/analyze-slides", h.AnalyzeSlidesHandler)
	mux.HandleFunc("/api/chat", h.ChatHandler)
	mux.HandleFunc("/api/usage-stats", h.UsageStatsHandler)
	mux.HandleFunc("/api/conversation-stats", h.ConversationStatsHandler)
	mux.HandleFunc("/api/personas", h.PersonasHandler)
	mux.HandleFunc("/api/clear-cache", h.ClearCacheHandler)
	mux.HandleFunc("/api/clear-conversations", h.ClearConversationsHandler)
	mux.HandleFunc("/api/conversations/", h.DeleteConversationHandler)
}

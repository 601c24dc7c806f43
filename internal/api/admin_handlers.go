package api

import (
	"net/http"
	"strings"
)

type successResponse struct {
	Success bool `json:"success"`
}

// ClearCacheHandler handles POST /api/clear-cache.
func (h *Handler) ClearCacheHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	h.cache.Clear()
	h.logger.Info("response cache cleared")
	writeJSON(w, h.logger, http.StatusOK, successResponse{Success: true})
}

// ClearConversationsHandler handles POST /api/clear-conversations.
func (h *Handler) ClearConversationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "method_not_allowed", "use POST")
		return
	}

	h.store.ClearAll()
	h.logger.Info("all conversations cleared")
	writeJSON(w, h.logger, http.StatusOK, successResponse{Success: true})
}

// DeleteConversationHandler handles DELETE /api/conversations/{id}.
// Deleting an unknown id reports success=false rather than an error.
func (h *Handler) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "method_not_allowed", "use DELETE")
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	id := parts[len(parts)-1]
	if id == "" || id == "conversations" {
		writeError(w, h.logger, http.StatusBadRequest, "invalid_request", "conversation id required")
		return
	}

	deleted := h.store.Delete(id)
	writeJSON(w, h.logger, http.StatusOK, successResponse{Success: deleted})
}

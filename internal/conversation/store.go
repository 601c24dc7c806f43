// Package conversation holds bounded, per-session message histories so
// chat context survives across turns without growing without bound.
package conversation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pitchlens/pitchlens/internal/config"
	"github.com/pitchlens/pitchlens/internal/llm"
	"github.com/pitchlens/pitchlens/internal/models"
)

// trimTargetRatio is how far below the token ceiling trimming drives a
// conversation before stopping.
const trimTargetRatio = 0.8

// minRetainedMessages is the floor of non-system messages token-trimming
// always leaves in place.
const minRetainedMessages = 2

// Store keeps live conversations in memory, keyed by id. Look-up misses
// are signaled with booleans so callers degrade gracefully.
type Store struct {
	mu            sync.Mutex
	conversations map[string]*models.Conversation
	cfg           config.ConversationConfig
	now           func() time.Time
	logger        *slog.Logger
}

// NewStore constructs an empty store bounded by cfg.
func NewStore(cfg config.ConversationConfig, logger *slog.Logger) *Store {
	return &Store{
		conversations: make(map[string]*models.Conversation),
		cfg:           cfg,
		now:           time.Now,
		logger:        logger,
	}
}

// Create starts a conversation, seeding it with a system prompt when one
// is supplied, and returns the new opaque id. Creation may evict the
// least recently active conversations to stay under the store cap.
func (s *Store) Create(systemPrompt string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	now := s.now()

	conv := &models.Conversation{
		ID:           id,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	if systemPrompt != "" {
		est := llm.EstimateTokens(systemPrompt)
		conv.Messages = append(conv.Messages, models.ConversationMessage{
			Role:          models.RoleSystem,
			Content:       systemPrompt,
			Timestamp:     now,
			TokenEstimate: est,
		})
		conv.TotalTokens = est
	}

	s.conversations[id] = conv
	s.evictOverCapLocked()

	return id
}

// AddMessage appends a turn to a conversation, returning false when the
// id is unknown. Appending may trim older non-system messages to honor
// the token and message-count ceilings.
func (s *Store) AddMessage(id string, role models.Role, content string, tokens ...int) bool {
	est := llm.EstimateTokens(content)
	if len(tokens) > 0 && tokens[0] > 0 {
		est = tokens[0]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return false
	}

	now := s.now()
	conv.Messages = append(conv.Messages, models.ConversationMessage{
		Role:          role,
		Content:       content,
		Timestamp:     now,
		TokenEstimate: est,
	})
	conv.TotalTokens += est
	conv.LastActiveAt = now

	s.trimTokensLocked(conv)
	s.trimCountLocked(conv)

	return true
}

// Messages returns the conversation formatted for the gateway, oldest
// first, or false when the id is unknown.
func (s *Store) Messages(id string) ([]models.ChatMessage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, false
	}

	out := make([]models.ChatMessage, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		out = append(out, models.ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out, true
}

// Delete removes a conversation, reporting whether it existed.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return false
	}
	delete(s.conversations, id)
	return true
}

// ClearAll drops every conversation.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[string]*models.Conversation)
}

// SweepIdle removes conversations idle beyond the configured TTL.
// Runs on a background interval, independent of capacity eviction.
func (s *Store) SweepIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.cfg.IdleTTL)
	removed := 0
	for id, conv := range s.conversations {
		if conv.LastActiveAt.Before(cutoff) {
			delete(s.conversations, id)
			removed++
		}
	}

	if removed > 0 {
		s.logger.Info("removed idle conversations", "count", removed)
	}
	return removed
}

// GetStats summarizes the live conversations.
func (s *Store) GetStats() models.ConversationStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := models.ConversationStats{
		ActiveConversations: len(s.conversations),
	}
	for _, conv := range s.conversations {
		stats.TotalMessages += len(conv.Messages)
		stats.TotalTokens += conv.TotalTokens
	}
	if stats.ActiveConversations > 0 {
		stats.AverageMessagesPerConversation = float64(stats.TotalMessages) / float64(stats.ActiveConversations)
	}
	return stats
}

// trimTokensLocked drops the oldest non-system messages until usage
// falls under 80% of the token ceiling or only two non-system messages
// remain. System messages are never dropped here.
func (s *Store) trimTokensLocked(conv *models.Conversation) {
	if conv.TotalTokens <= s.cfg.MaxTokens {
		return
	}

	target := int(float64(s.cfg.MaxTokens) * trimTargetRatio)
	trimmed := 0

	for conv.TotalTokens >= target && nonSystemCount(conv.Messages) > minRetainedMessages {
		idx := oldestNonSystem(conv.Messages)
		if idx < 0 {
			break
		}
		conv.TotalTokens -= conv.Messages[idx].TokenEstimate
		conv.Messages = append(conv.Messages[:idx], conv.Messages[idx+1:]...)
		trimmed++
	}

	if trimmed > 0 {
		s.logger.Debug("token-trimmed conversation",
			"id", conv.ID, "dropped", trimmed, "total_tokens", conv.TotalTokens)
	}
}

// trimCountLocked enforces the message-count ceiling: all system
// messages are kept plus only the most recent non-system messages that
// fit. Total tokens are recomputed by subtracting what was removed.
func (s *Store) trimCountLocked(conv *models.Conversation) {
	if len(conv.Messages) <= s.cfg.MaxMessages {
		return
	}

	systemCount := len(conv.Messages) - nonSystemCount(conv.Messages)
	keepRecent := s.cfg.MaxMessages - systemCount
	if keepRecent < 0 {
		keepRecent = 0
	}

	var system, recent []models.ConversationMessage
	for _, m := range conv.Messages {
		if m.Role == models.RoleSystem {
			system = append(system, m)
		} else {
			recent = append(recent, m)
		}
	}
	if len(recent) > keepRecent {
		for _, dropped := range recent[:len(recent)-keepRecent] {
			conv.TotalTokens -= dropped.TokenEstimate
		}
		recent = recent[len(recent)-keepRecent:]
	}

	conv.Messages = append(system, recent...)
}

// evictOverCapLocked removes the conversations with the oldest
// lastActiveAt until the store is back under its cap.
func (s *Store) evictOverCapLocked() {
	for len(s.conversations) > s.cfg.MaxConversations {
		oldestID := ""
		var oldestAt time.Time
		for id, conv := range s.conversations {
			if oldestID == "" || conv.LastActiveAt.Before(oldestAt) {
				oldestID = id
				oldestAt = conv.LastActiveAt
			}
		}
		if oldestID == "" {
			return
		}
		delete(s.conversations, oldestID)
		s.logger.Debug("evicted least recently active conversation", "id", oldestID)
	}
}

func nonSystemCount(messages []models.ConversationMessage) int {
	n := 0
	for _, m := range messages {
		if m.Role != models.RoleSystem {
			n++
		}
	}
	return n
}

func oldestNonSystem(messages []models.ConversationMessage) int {
	for i, m := range messages {
		if m.Role != models.RoleSystem {
			return i
		}
	}
	return -1
}

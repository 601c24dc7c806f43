package llm

import "github.com/pitchlens/pitchlens/internal/models"

// charsPerToken is the cheap length heuristic used for pre-flight
// admission control and conversation accounting. Billing always uses
// the provider-reported usage, never this estimate.
const charsPerToken = 4

// messageOverheadTokens approximates the per-message framing the
// provider adds around each chat turn.
const messageOverheadTokens = 4

// EstimateTokens approximates the token count of a text.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// EstimateMessageTokens approximates the input token count of a full
// message sequence, including per-message overhead.
func EstimateMessageTokens(messages []models.ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += EstimateTokens(m.Content) + messageOverheadTokens
	}
	return total
}

package models

// CompletionResult is the outcome of a single billed LLM call.
// Cost is computed from the provider-reported input/output token split,
// not from the local estimate.
type CompletionResult struct {
	Content      string  `json:"content"`
	Model        string  `json:"model"`
	TokensUsed   int     `json:"tokens_used"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

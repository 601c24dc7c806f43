package llm

import (
	"encoding/json"
	"log/slog"
	"regexp"
)

// AnalysisPayload is the structured verdict the model is prompted to
// return when analyzing a deck.
type AnalysisPayload struct {
	Summary    string   `json:"summary"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Questions  []string `json:"questions"`
	Score      float64  `json:"score"`
}

var (
	fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*({.+})\\s*```")
	bareJSON   = regexp.MustCompile(`(?s)^\s*({.+})\s*$`)
)

// ParseAnalysis extracts the structured analysis from model output,
// tolerating markdown code fences around the JSON object. Malformed
// output is logged and reported as nil rather than failing the request;
// the caller falls back to the raw text content.
func ParseAnalysis(content string, logger *slog.Logger) *AnalysisPayload {
	jsonStr := content

	if matches := fencedJSON.FindStringSubmatch(content); len(matches) > 1 {
		jsonStr = matches[1]
	} else if matches := bareJSON.FindStringSubmatch(content); len(matches) > 1 {
		jsonStr = matches[1]
	}

	var payload AnalysisPayload
	if err := json.Unmarshal([]byte(jsonStr), &payload); err != nil {
		logger.Warn("model output not parseable as analysis payload",
			"error", err,
			"content_prefix", truncate(content, 200))
		return nil
	}

	if payload.Score < 0 {
		payload.Score = 0
	} else if payload.Score > 10 {
		payload.Score = 10
	}

	return &payload
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

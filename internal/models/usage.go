package models

import "time"

// UsageRecord is one billed API call. Records are append-only and never
// mutated after creation; the tracker prunes them to a rolling window.
type UsageRecord struct {
	Endpoint  string    `json:"endpoint"`
	Tokens    int       `json:"tokens"`
	CostUSD   float64   `json:"cost_usd"`
	Timestamp time.Time `json:"timestamp"`
}

// UsageTotals aggregates a set of usage records.
type UsageTotals struct {
	Requests int     `json:"requests"`
	Tokens   int     `json:"tokens"`
	CostUSD  float64 `json:"cost_usd"`
}

// UsageStats is the full breakdown returned by the tracker.
type UsageStats struct {
	Totals     UsageTotals            `json:"totals"`
	ByDay      map[string]UsageTotals `json:"by_day"`
	ByEndpoint map[string]UsageTotals `json:"by_endpoint"`
}

// LimitStatus reports whether today's usage has reached the configured
// daily ceilings. Reaching the limit exactly counts as exceeded.
type LimitStatus struct {
	CostExceeded   bool `json:"cost_exceeded"`
	TokensExceeded bool `json:"tokens_exceeded"`
}

// Package usage keeps an append-only log of billed LLM calls and
// answers whether today's budget is spent. The tracker never fails and
// never blocks callers; limit enforcement happens at the API edge.
package usage

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pitchlens/pitchlens/internal/models"
)

// retentionWindow is the rolling window records are pruned to. Pruning
// happens on every Track call; there is no background timer.
const retentionWindow = 30 * 24 * time.Hour

// defaultCostPerToken is the estimated average blended rate used when a
// call is recorded without an exact cost.
const defaultCostPerToken = 0.000002

const dayFormat = "2006-01-02"

// Tracker records usage events in memory for the process lifetime.
type Tracker struct {
	mu      sync.Mutex
	records []models.UsageRecord
	now     func() time.Time
	logger  *slog.Logger
}

// NewTracker constructs an empty tracker.
func NewTracker(logger *slog.Logger) *Tracker {
	return &Tracker{
		now:    time.Now,
		logger: logger,
	}
}

// Track appends a usage event. When cost is omitted it defaults to the
// estimated average per-token rate. Records older than the retention
// window are dropped on the way in.
func (t *Tracker) Track(endpoint string, tokens int, cost ...float64) {
	recordCost := float64(tokens) * defaultCostPerToken
	if len(cost) > 0 {
		recordCost = cost[0]
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.pruneLocked(now)

	t.records = append(t.records, models.UsageRecord{
		Endpoint:  endpoint,
		Tokens:    tokens,
		CostUSD:   recordCost,
		Timestamp: now,
	})
}

// TodaysUsage sums the records stamped with today's date.
func (t *Tracker) TodaysUsage() models.UsageTotals {
	t.mu.Lock()
	defer t.mu.Unlock()

	today := t.now().Format(dayFormat)
	var totals models.UsageTotals
	for _, r := range t.records {
		if r.Timestamp.Format(dayFormat) == today {
			totals.Requests++
			totals.Tokens += r.Tokens
			totals.CostUSD += r.CostUSD
		}
	}
	return totals
}

// CheckDailyLimits reports whether today's usage has reached the given
// ceilings. Equality counts as exceeded. Advisory only: the tracker
// never rejects work itself.
func (t *Tracker) CheckDailyLimits(maxCostUSD float64, maxTokens int) models.LimitStatus {
	today := t.TodaysUsage()
	return models.LimitStatus{
		CostExceeded:   today.CostUSD >= maxCostUSD,
		TokensExceeded: today.Tokens >= maxTokens,
	}
}

// GetStats returns aggregate totals plus day-keyed and endpoint-keyed
// breakdowns over the retained window.
func (t *Tracker) GetStats() models.UsageStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := models.UsageStats{
		ByDay:      make(map[string]models.UsageTotals),
		ByEndpoint: make(map[string]models.UsageTotals),
	}

	for _, r := range t.records {
		stats.Totals.Requests++
		stats.Totals.Tokens += r.Tokens
		stats.Totals.CostUSD += r.CostUSD

		day := r.Timestamp.Format(dayFormat)
		d := stats.ByDay[day]
		d.Requests++
		d.Tokens += r.Tokens
		d.CostUSD += r.CostUSD
		stats.ByDay[day] = d

		e := stats.ByEndpoint[r.Endpoint]
		e.Requests++
		e.Tokens += r.Tokens
		e.CostUSD += r.CostUSD
		stats.ByEndpoint[r.Endpoint] = e
	}

	return stats
}

// pruneLocked drops records older than the retention window. It only
// removes from the head: records are appended in time order, so the
// suffix after the cutoff is untouched and never reordered.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retentionWindow)
	firstKept := len(t.records)
	for i, r := range t.records {
		if r.Timestamp.After(cutoff) {
			firstKept = i
			break
		}
	}
	if firstKept > 0 {
		t.logger.Debug("pruned usage records", "count", firstKept)
		t.records = append([]models.UsageRecord(nil), t.records[firstKept:]...)
	}
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T, collector *Collector) string {
	t.Helper()

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	collector.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics handler to return 200, got %d", rr.Code)
	}
	return rr.Body.String()
}

func TestCollectorRecordsHTTPMetrics(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	handlerInvoked := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerInvoked = true
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	})

	instrumented := collector.InstrumentHandler(handler)

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rr := httptest.NewRecorder()
	instrumented.ServeHTTP(rr, req)

	if !handlerInvoked {
		t.Fatal("expected handler to be invoked")
	}
	if rr.Code != http.StatusAccepted {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}

	body := scrape(t, collector)
	if !strings.Contains(body, `pitchlens_http_requests_total{method="GET",path="/test",status="202"} 1`) {
		t.Fatalf("requests_total metric not recorded, body=%q", body)
	}
	if !strings.Contains(body, `pitchlens_http_request_duration_seconds_count{method="GET",path="/test",status="202"} 1`) {
		t.Fatalf("request_duration_seconds_count metric not recorded, body=%q", body)
	}
}

func TestCollectorRecordsCompletionMetrics(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	collector.ObserveCompletion("success", 1500, 0.0005)
	collector.ObserveCompletion("rate_limited", 0, 0)
	collector.ObservePricingFallback()

	body := scrape(t, collector)
	if !strings.Contains(body, `pitchlens_llm_completions_total{outcome="success"} 1`) {
		t.Errorf("success completion not recorded, body=%q", body)
	}
	if !strings.Contains(body, `pitchlens_llm_completions_total{outcome="rate_limited"} 1`) {
		t.Errorf("rate-limited completion not recorded, body=%q", body)
	}
	if !strings.Contains(body, `pitchlens_llm_tokens_billed_total 1500`) {
		t.Errorf("billed tokens not recorded, body=%q", body)
	}
	if !strings.Contains(body, `pitchlens_llm_pricing_fallbacks_total 1`) {
		t.Errorf("pricing fallback not recorded, body=%q", body)
	}
}

func TestCollectorRecordsCacheMetrics(t *testing.T) {
	collector, err := NewCollector()
	if err != nil {
		t.Fatalf("NewCollector returned error: %v", err)
	}

	collector.ObserveCacheLookup(true)
	collector.ObserveCacheLookup(true)
	collector.ObserveCacheLookup(false)

	body := scrape(t, collector)
	if !strings.Contains(body, `pitchlens_cache_requests_total{result="hit"} 2`) {
		t.Errorf("cache hits not recorded, body=%q", body)
	}
	if !strings.Contains(body, `pitchlens_cache_requests_total{result="miss"} 1`) {
		t.Errorf("cache misses not recorded, body=%q", body)
	}
}

package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/odyssey-backoffice/internal/shared"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesReportMetrics(t *testing.T) {
	metrics := NewMetrics()
	_ = metrics.Reports().Track("trial_balance").End(nil)

	body := scrape(t, metrics)
	if !strings.Contains(body, `odyssey_report_builds_total{report="trial_balance",status="success"} 1`) {
		t.Fatalf("expected report build counter, got: %s", body)
	}
}

func TestReportTrackerCountsIntegrityFailures(t *testing.T) {
	metrics := NewMetrics()
	err := shared.NewDataIntegrityError("7", "account 4000 has no category")
	if got := metrics.Reports().Track("trial_balance").End(err); !errors.Is(got, shared.ErrDataIntegrity) {
		t.Fatalf("expected error to pass through, got %v", got)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, `odyssey_report_integrity_failures_total{report="trial_balance"} 1`) {
		t.Fatalf("expected integrity failure counter, got: %s", body)
	}
}

func TestNilReportMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	boom := errors.New("boom")
	if got := metrics.Reports().Track("x").End(boom); got != boom {
		t.Fatalf("expected passthrough error, got %v", got)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsBody := scrape(t, metrics)
	if !strings.Contains(metricsBody, "http_requests_total{code=\"418\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "http_request_duration_seconds_bucket{route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

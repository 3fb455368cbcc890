package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	jobmetrics "github.com/meridian-cms/meridian-cms/internal/jobs"
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

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/roles")

	req := httptest.NewRequest(http.MethodGet, "/roles", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, "meridian_http_requests_total{code=\"418\",route=\"/roles\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, "meridian_http_request_duration_seconds_bucket{route=\"/roles\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestObserveAuthzDecisionCounts(t *testing.T) {
	metrics := NewMetrics()

	metrics.ObserveAuthzDecision("pages", "create", true)
	metrics.ObserveAuthzDecision("roles", "manage_roles", false)

	body := scrape(t, metrics)
	if !strings.Contains(body, "meridian_authz_decisions_total{action=\"create\",module=\"pages\",outcome=\"allowed\"} 1") {
		t.Fatalf("expected allowed decision to be counted, got: %s", body)
	}
	if !strings.Contains(body, "meridian_authz_decisions_total{action=\"manage_roles\",module=\"roles\",outcome=\"denied\"} 1") {
		t.Fatalf("expected denied decision to be counted, got: %s", body)
	}
}

func TestRegistererExposesJobCollectorsOnScrape(t *testing.T) {
	metrics := NewMetrics()

	jm := jobmetrics.NewMetrics(metrics.Registerer())
	if err := jm.Track("mail:invite").End(nil); err != nil {
		t.Fatalf("unexpected tracker error: %v", err)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, "meridian_jobs_total{job=\"mail:invite\",status=\"success\"} 1") {
		t.Fatalf("expected job run to surface on the registry, got: %s", body)
	}
}

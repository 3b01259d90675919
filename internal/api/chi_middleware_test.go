// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/tavola/internal/api/response"
	"github.com/tomtom215/tavola/internal/metrics"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestChiMiddleware_CORSPreflight(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.CORSAllowedOrigins = []string{"https://pos.example.com"}
	h := NewChiMiddleware(cfg).CORS()(okHandler())

	tests := []struct {
		origin    string
		wantAllow string
	}{
		{"https://pos.example.com", "https://pos.example.com"},
		{"https://evil.example.com", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
		req.Header.Set("Origin", tt.origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllow {
			t.Errorf("origin %s: Allow-Origin = %q, want %q", tt.origin, got, tt.wantAllow)
		}
	}
}

func TestChiMiddleware_RateLimitCustom(t *testing.T) {
	r := chi.NewRouter()
	r.With(NewChiMiddleware(DefaultChiMiddlewareConfig()).
		RateLimitCustom(RateLimitConfig{Requests: 2, Window: time.Minute})).
		Get("/limited", okHandler().ServeHTTP)

	before := testutil.ToFloat64(metrics.APIRateLimitHits.WithLabelValues("/limited"))

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/limited", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		last = httptest.NewRecorder()
		r.ServeHTTP(last, req)
	}

	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", last.Code)
	}
	var body response.APIResponse
	if err := json.Unmarshal(last.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error == nil || body.Error.Code != response.ErrCodeTooManyRequests {
		t.Errorf("error = %+v, want %s", body.Error, response.ErrCodeTooManyRequests)
	}
	if got := testutil.ToFloat64(metrics.APIRateLimitHits.WithLabelValues("/limited")) - before; got != 1 {
		t.Errorf("rate limit hits += %v, want 1", got)
	}
}

func TestChiMiddleware_RateLimitDisabled(t *testing.T) {
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	h := NewChiMiddleware(cfg).RateLimitCustom(RateLimitConfig{Requests: 1, Window: time.Minute})(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
}

func TestAPISecurityHeaders_HSTSBehindProxy(t *testing.T) {
	h := APISecurityHeaders()(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS set on plain HTTP")
	}

	req.Header.Set("X-Forwarded-Proto", "https")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Strict-Transport-Security") == "" {
		t.Error("HSTS missing behind HTTPS proxy")
	}
}

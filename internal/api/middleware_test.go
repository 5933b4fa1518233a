package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/openclinic/clinic-scheduling/internal/metrics"
	redisclient "github.com/openclinic/clinic-scheduling/internal/redis"
)

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Fatal("request id missing from context")
	}
	if rec.Header().Get("X-Request-ID") != seen {
		t.Error("request id must be echoed in the response header")
	}

	// A provided id is kept.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "given-id")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "given-id" {
		t.Errorf("request id = %q, want the caller's", seen)
	}
}

func TestAdmissionMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	limiter := redisclient.NewFixedWindowLimiter(client, time.Minute)
	m := metrics.NewSchedulingMetrics(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.With(AdmissionMiddleware(limiter, m, "list_slots", 2)).
		Get("/v1/{tenant}/public/slots", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

	call := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/t1/public/slots", nil)
		req.Header.Set("X-Real-Ip", ip)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	if call("10.0.0.1") != http.StatusOK || call("10.0.0.1") != http.StatusOK {
		t.Fatal("calls within the window must pass")
	}
	if got := call("10.0.0.1"); got != http.StatusTooManyRequests {
		t.Fatalf("third call = %d, want 429", got)
	}
	// Another caller is unaffected.
	if got := call("10.0.0.2"); got != http.StatusOK {
		t.Fatalf("other ip = %d, want 200", got)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4431"
	if got := clientIP(req); got != "192.0.2.7" {
		t.Errorf("clientIP = %q", got)
	}

	req.Header.Set("X-Real-Ip", "203.0.113.9")
	if got := clientIP(req); got != "203.0.113.9" {
		t.Errorf("clientIP with header = %q", got)
	}
}

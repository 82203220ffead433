package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		assert.Len(t, seen, 36)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	})
}

func TestWithRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	h := RequestID(WithRequestLogger(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		GetLogger(r.Context()).Info("inside")
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/split", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var inside, access map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &inside))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &access))

	assert.Equal(t, "req-1", inside["request_id"])
	assert.Equal(t, "/v1/split", inside["path"])
	assert.Equal(t, "request", access["msg"])
	assert.Equal(t, float64(http.StatusTeapot), access["status"])
}

func TestGetLogger_Fallback(t *testing.T) {
	fallback := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	assert.Same(t, fallback, GetLogger(req.Context(), fallback))
	assert.Same(t, slog.Default(), GetLogger(req.Context()))
}

func TestRecovery(t *testing.T) {
	h := Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"internal"`)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestMetrics_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/v1/labels/1;2", "/v1/labels/3", "/healthz"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/v1/labels/:ids", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "/healthz", "200")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.requestsInFlight))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/healthz":                        "/healthz",
		"/v1/split":                       "/v1/split",
		"/v1/shipments":                   "/v1/shipments",
		"/v1/shipments/1;2;3":             "/v1/shipments/:ids",
		"/v1/shipments/1/return-mail":     "/v1/shipments/:ids/return-mail",
		"/v1/shipments/1/other":           "/other",
		"/v1/shipments/":                  "/other",
		"/v1/shipments//return-mail":      "/other",
		"/v1/labels/9":                    "/v1/labels/:ids",
		"/v1/labels/9;10/link":            "/v1/labels/:ids/link",
		"/v1/labels/9/return-mail":        "/other",
		"/labels/labels/2026/10/14/x.pdf": "/labels/*",
		"/wp-admin":                       "/other",
	}

	for path, want := range tests {
		assert.Equal(t, want, normalizePath(path), path)
	}
}

func TestRequestID_ReplacesUnsafeInbound(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	for _, inbound := range []string{"two words", strings.Repeat("x", 200), "line\nbreak"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, inbound)
		h.ServeHTTP(httptest.NewRecorder(), req)

		assert.NotEqual(t, inbound, seen)
		assert.Len(t, seen, 36)
	}
}

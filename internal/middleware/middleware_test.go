package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wbbcli/internal/infrastructure"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		description string
		header      string
	}{
		{description: "generates an id"},
		{description: "keeps the caller id", header: "caller-id"},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			var seenID, seenTrace string
			handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenID = GetRequestID(r.Context())
				seenTrace = infrastructure.GetTraceID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
			if tc.header != "" {
				req.Header.Set(RequestIDHeader, tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			require.NotEmpty(t, seenID)
			if tc.header != "" {
				assert.Equal(t, tc.header, seenID)
			}
			assert.Equal(t, seenID, seenTrace)
			assert.Equal(t, seenID, rec.Header().Get(RequestIDHeader))
		})
	}
}

func TestGetRequestID_FallsBackToTrace(t *testing.T) {
	ctx := infrastructure.WithTraceID(context.Background(), "trace-only")
	assert.Equal(t, "trace-only", GetRequestID(ctx))
}

func TestRecoverer(t *testing.T) {
	handler := Recoverer(quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil map write")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", body["error_code"])
	assert.Equal(t, "nil map write", body["details"].(map[string]interface{})["message"])
}

func TestRecoverer_AbortHandlerPropagates(t *testing.T) {
	handler := Recoverer(quietLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(0.001, 2, quietLogger())
	handler := limiter.Handler(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "RATE_LIMIT_EXCEEDED", decodeBody(t, rec)["error_code"])
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestCORS(t *testing.T) {
	cfg := CORSConfig{AllowedOrigins: []string{"http://localhost:8080"}}

	tests := []struct {
		description string
		method      string
		origin      string
		wantAllow   string
		wantCode    int
	}{
		{description: "allowed origin", method: http.MethodGet, origin: "http://localhost:8080", wantAllow: "http://localhost:8080", wantCode: http.StatusOK},
		{description: "other origin", method: http.MethodGet, origin: "http://evil.example", wantCode: http.StatusOK},
		{description: "preflight", method: http.MethodOptions, origin: "http://localhost:8080", wantAllow: "http://localhost:8080", wantCode: http.StatusNoContent},
	}

	for _, tc := range tests {
		t.Run(tc.description, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, "/api/runs", nil)
			req.Header.Set("Origin", tc.origin)
			rec := httptest.NewRecorder()
			CORS(cfg)(http.HandlerFunc(okHandler)).ServeHTTP(rec, req)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Equal(t, tc.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSConfig_OriginAllowed(t *testing.T) {
	assert.True(t, CORSConfig{}.OriginAllowed("http://any"))
	assert.True(t, CORSConfig{AllowedOrigins: []string{"*"}}.OriginAllowed("http://any"))
	assert.True(t, CORSConfig{AllowedOrigins: []string{"HTTP://LOCALHOST:8080"}}.OriginAllowed("http://localhost:8080"))
	assert.False(t, CORSConfig{AllowedOrigins: []string{"http://localhost:8080"}}.OriginAllowed("http://other"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestStructuredLogger(t *testing.T) {
	var buf strings.Builder
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestID(StructuredLogger(logger)(http.HandlerFunc(okHandler)))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/health", nil))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "request completed", entry["msg"])
	assert.Equal(t, "/api/health", entry["path"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
}

func TestOTelMiddleware(t *testing.T) {
	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := infrastructure.CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	mw := NewOTelMiddleware(providers.Tracer, metrics, quietLogger())
	rec := httptest.NewRecorder()
	mw.Handler(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	scrape := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, scrape.Body.String(), "http_requests_total")
	assert.Contains(t, scrape.Body.String(), `route="/api/health"`)
}

func TestOTelMiddleware_NilMetrics(t *testing.T) {
	mw := NewOTelMiddleware(nil, nil, nil)
	rec := httptest.NewRecorder()
	mw.Handler(http.HandlerFunc(okHandler)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/market-intel/internal/domain/report"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(GetClientFromContext(r.Context())))
})

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"ui": "secret"})(okHandler)

	cases := []struct {
		name   string
		path   string
		header string
		code   int
		body   string
	}{
		{"missing header", "/v1/session", "", http.StatusUnauthorized, ""},
		{"wrong key", "/v1/session", "Bearer nope", http.StatusUnauthorized, ""},
		{"bearer key", "/v1/session", "Bearer secret", http.StatusOK, "ui"},
		{"bare key", "/v1/session", "secret", http.StatusOK, "ui"},
		{"probe skips auth", "/healthz", "", http.StatusOK, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tc.code, rec.Code)
			if tc.code == http.StatusOK {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestAPIKeyAuthDisabledWithoutKeys(t *testing.T) {
	h := APIKeyAuth(nil)(okHandler)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/reports", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthHandler(t *testing.T) {
	healthy := HealthHandler(map[string]HealthChecker{
		"history": CheckerFunc(func(context.Context) error { return nil }),
	})
	rec := httptest.NewRecorder()
	healthy(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)

	broken := HealthHandler(map[string]HealthChecker{
		"history": CheckerFunc(func(context.Context) error { return errors.New("disk gone") }),
	})
	rec = httptest.NewRecorder()
	broken(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "disk gone")
}

func TestLoggingFields(t *testing.T) {
	log, hook := test.NewNullLogger()
	h := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/analyze", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "/v1/analyze", entry.Data["path"])
	assert.Equal(t, http.StatusInternalServerError, entry.Data["status"])
}

func TestMetricsMiddlewareAndCounters(t *testing.T) {
	m := NewMetrics()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/good", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bad", nil))

	m.AnalysisStarted()
	m.AnalysisFinished(false)
	m.FollowUp(true)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap["requests_total"])
	assert.Equal(t, uint64(1), snap["requests_success"])
	assert.Equal(t, uint64(1), snap["requests_failed"])
	assert.Equal(t, int64(0), snap["requests_in_progress"])
	assert.Equal(t, uint64(1), snap["analyses_total"])
	assert.Equal(t, int64(0), snap["analyses_running"])
	assert.Equal(t, uint64(1), snap["analyses_failed"])
	assert.Equal(t, uint64(1), snap["followups_total"])

	rec := httptest.NewRecorder()
	m.Handler(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `"analyses_total":1`)
}

func TestRateLimit(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	h := RateLimit(rl)(okHandler)

	do := func(path, addr string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("/v1/session", "10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, do("/v1/session", "10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, do("/v1/session", "10.0.0.1:1002"), "same host, new port")
	assert.Equal(t, http.StatusOK, do("/v1/session", "10.0.0.2:1000"))
	assert.Equal(t, http.StatusOK, do("/health", "10.0.0.1:1003"))

	now = now.Add(2 * time.Second)
	assert.Equal(t, http.StatusOK, do("/v1/session", "10.0.0.1:1004"), "bucket refilled")

	now = now.Add(limiterIdleTTL + time.Second)
	rl.sweep()
	assert.Equal(t, 0, rl.size())
}

func TestValidateCompanyName(t *testing.T) {
	got, err := ValidateCompanyName("  Elbit\x00 Systems \x07")
	require.NoError(t, err)
	assert.Equal(t, "Elbit Systems", got)

	_, err = ValidateCompanyName(" \t ")
	assert.ErrorIs(t, err, report.ErrEmptyCompany)

	_, err = ValidateCompanyName(strings.Repeat("公", MaxCompanyNameLength+1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestValidateReportID(t *testing.T) {
	assert.NoError(t, ValidateReportID("3f2b8c1e-0d4a-4b7e-9a51-7c2d9e6f1a20"))
	assert.ErrorIs(t, ValidateReportID(""), ErrInvalidInput)
	assert.ErrorIs(t, ValidateReportID("../etc/passwd"), ErrInvalidInput)
	assert.ErrorIs(t, ValidateReportID(strings.Repeat("a", 65)), ErrInvalidInput)
}

func TestValidatePage(t *testing.T) {
	p, s := ValidatePage("", "")
	assert.Equal(t, 1, p)
	assert.Equal(t, 20, s)

	p, s = ValidatePage("3", "500")
	assert.Equal(t, 3, p)
	assert.Equal(t, 100, s)

	p, s = ValidatePage("-2", "abc")
	assert.Equal(t, 1, p)
	assert.Equal(t, 20, s)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitetrust/internal/api/handlers"
	"sitetrust/internal/config"
	"sitetrust/internal/domain/services"
	"sitetrust/internal/metrics"
	"sitetrust/pkg/logger"
)

const legitimateRequest = `{
	"url": "https://www.riverside-bakery.com",
	"probes": {
		"reachability": {"httpStatus": 200, "responseTimeMs": 120, "reachable": true},
		"ssl": {"enabled": true, "valid": true, "grade": "A+", "issuer": "Let's Encrypt"},
		"domain": {"ageInDays": 1000, "registrar": "Gandi", "nameServers": ["ns1.gandi.net"]},
		"content": {"score": 80, "title": "Riverside Bakery", "hasContactInfo": true, "fingerprint": "a1 b2 c3 d4"},
		"reputation": {"reputationScore": 80}
	}
}`

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestRouter(t *testing.T, mutate func(*config.Config), checks map[string]handlers.Pinger) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	log := logger.NewNop()
	reg := prometheus.NewRegistry()
	store := services.NewMemoryStore(0)
	engine := services.NewEngine(cfg.Engine, services.NewBrandCatalog(nil), log)
	svc := services.NewVerificationService(services.VerificationDeps{
		Engine:  engine,
		Store:   store,
		Corpus:  store,
		Metrics: metrics.New(reg),
	}, log)

	h := handlers.NewHandlers(handlers.Dependencies{
		Service:      svc,
		Version:      "test",
		HealthChecks: checks,
		Logger:       log,
	})
	return NewRouter(*cfg, h, nil, nil, reg, log).Setup()
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestRouter_VerifyThenReadBack(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	rec := do(t, h, http.MethodPost, "/api/v1/websites/verify", legitimateRequest, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, "riverside-bakery.com", body["domain"])
	assert.Equal(t, float64(100), body["trustScore"])
	assert.Equal(t, "Low", body["riskLevel"])
	assert.Equal(t, true, body["corpusChecked"])
	id, ok := body["id"].(string)
	require.True(t, ok)

	rec = do(t, h, http.MethodGet, "/api/v1/websites/verifications/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decode(t, rec)["id"])

	rec = do(t, h, http.MethodGet, "/api/v1/websites/verifications/"+id+"/explain", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	breakdown, ok := decode(t, rec)["factorBreakdown"].([]any)
	require.True(t, ok)
	total := 0.0
	for _, item := range breakdown {
		total += item.(map[string]any)["points"].(float64)
	}
	assert.Equal(t, float64(100), total)

	rec = do(t, h, http.MethodGet, "/api/v1/websites/verifications?domain=riverside-bakery.com", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["count"])
}

func TestRouter_VerifyRejectsBadInput(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{"invalid json", `{"url":`, "invalid request body"},
		{"missing url", `{"probes":{"reachability":{"httpStatus":200,"reachable":true}}}`, "url is required"},
		{"missing reachability", `{"url":"https://example.com","probes":{}}`, "reachability"},
		{"missing http status", `{"url":"https://example.com","probes":{"reachability":{"reachable":true}}}`, "reachability.httpStatus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/v1/websites/verify", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.contains)
		})
	}
}

func TestRouter_GetVerificationErrors(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/websites/verifications/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/websites/verifications/6f1c1f3e-0d7c-4a53-9d8e-3f1f1c0b2a10", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/websites/verifications?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ScoreAndBrands(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	score := `{
		"signals": {"reachable": true, "httpStatus": 200, "ssl": {"enabled": true, "valid": true, "grade": "A"}},
		"duplicate": {"isExactMatch": false, "differences": []},
		"imitation": {"isPotentialImitation": false, "imitationScore": 0, "suspiciousElements": [], "legitimateIndicators": []}
	}`
	rec := do(t, h, http.MethodPost, "/api/v1/websites/score", score, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(55), body["trustScore"])
	assert.Equal(t, "High", body["riskLevel"])

	rec = do(t, h, http.MethodGet, "/api/v1/websites/brands", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(len(services.DefaultBrandSignatures())), decode(t, rec)["count"])
}

func TestRouter_APIKeyAuth(t *testing.T) {
	h := newTestRouter(t, func(c *config.Config) {
		c.Auth.APIKeys = []string{"s3cret"}
	}, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/websites/brands", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/websites/brands", "", map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/websites/brands", "", map[string]string{"Authorization": "Bearer s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/websites/brands", "", map[string]string{"X-API-Key": "s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays public
	rec = do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_LocalRateLimit(t *testing.T) {
	h := newTestRouter(t, func(c *config.Config) {
		c.RateLimit.Enabled = true
		c.RateLimit.RequestsPerMinute = 1
		c.RateLimit.Burst = 1
	}, nil)

	rec := do(t, h, http.MethodGet, "/api/v1/websites/brands", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/v1/websites/brands", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestRouter_HealthAndReadiness(t *testing.T) {
	h := newTestRouter(t, nil, map[string]handlers.Pinger{
		"postgres": stubPinger{},
		"redis":    stubPinger{err: errors.New("connection refused")},
		"nats":     nil,
	})

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = do(t, h, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["postgres"])
	assert.Contains(t, checks["redis"], "connection refused")
	assert.Equal(t, "not configured", checks["nats"])

	rec = do(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

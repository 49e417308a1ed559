package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/weather-production-optimizer/internal/adapter/http"
	"github.com/couchcryptid/weather-production-optimizer/internal/domain"
	"github.com/couchcryptid/weather-production-optimizer/internal/recommend"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(readyErr error) *httpadapter.Server {
	r := recommend.New(recommend.DefaultParams(), slog.Default())
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, r, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(fmt.Errorf("not ready yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func postRecommendation(srv *httpadapter.Server, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/recommendations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.ServeHTTP(rec, req)
	return rec
}

func TestRecommendations_NeutralRequest(t *testing.T) {
	srv := newTestServer(nil)

	rec := postRecommendation(srv, `{"site_id":"seguin_tx"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var out domain.Recommendation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.InDelta(t, 150.0, out.DryerTempF, 1e-9)
	assert.Equal(t, domain.Continue, out.HoldRelease)
	assert.Equal(t, domain.AlertLow, out.AlertLevel)
}

func TestRecommendations_HeavyRainfall(t *testing.T) {
	srv := newTestServer(nil)

	rec := postRecommendation(srv, `{"site_id":"seguin_tx","rainfall_last_24h":2.0}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	var out domain.Recommendation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, domain.Hold, out.HoldRelease)
	assert.GreaterOrEqual(t, int(out.AlertLevel), int(domain.AlertHigh))
}

func TestRecommendations_MalformedBody(t *testing.T) {
	srv := newTestServer(nil)

	rec := postRecommendation(srv, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendations_MissingSiteID(t *testing.T) {
	srv := newTestServer(nil)

	rec := postRecommendation(srv, `{"rainfall_last_24h":1.0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "SiteID")
}

func TestRecommendations_OutOfRangeHumidity(t *testing.T) {
	srv := newTestServer(nil)

	rec := postRecommendation(srv, `{"site_id":"seguin_tx","humidity_relative":140}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

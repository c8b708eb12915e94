package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routeScope/internal/model"
	"routeScope/internal/router"
)

func newTestHandler(t *testing.T, cfg router.Config, pools ...model.Pool) http.Handler {
	t.Helper()
	reg := prometheus.NewRegistry()
	finder := router.New(cfg, nil, reg)
	finder.UpdatePools(pools)
	return NewHandler(finder, reg, nil).Routes()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

var testPools = []model.Pool{
	{Exchange: "A", Pair: "ETH/USDT", Liquidity: 1_000_000, Price: 2000, Fee: 0.003, Address: "p1"},
	{Exchange: "A", Pair: "USDT/USDC", Liquidity: 5_000_000, Price: 1, Fee: 0.001, Address: "p2"},
	{Exchange: "B", Pair: "SOL/DAI", Liquidity: 1_000_000, Price: 150, Fee: 0.003, Address: "p3"},
}

func TestRouteEndpoint(t *testing.T) {
	h := newTestHandler(t, router.Config{}, testPools...)

	rec := get(t, h, "/route?in=ETH&out=USDC&amount=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var route model.Route
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&route))
	assert.Equal(t, []string{"ETH", "USDT", "USDC"}, route.Path)
	assert.Equal(t, uint64(300000), route.EstimatedGas)
}

func TestRouteEndpointErrors(t *testing.T) {
	cases := []struct {
		name   string
		cfg    router.Config
		target string
		code   int
	}{
		{"BadAmount", router.Config{}, "/route?in=ETH&out=USDC&amount=abc", http.StatusBadRequest},
		{"SameToken", router.Config{}, "/route?in=ETH&out=ETH&amount=1", http.StatusBadRequest},
		{"NoRoute", router.Config{}, "/route?in=ETH&out=SOL&amount=1", http.StatusNotFound},
		{"Aborted", router.Config{MaxVisits: 1}, "/route?in=ETH&out=USDC&amount=1", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(t, tc.cfg, testPools...)
			rec := get(t, h, tc.target)
			assert.Equal(t, tc.code, rec.Code)

			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRouteJSONBody(t *testing.T) {
	h := newTestHandler(t, router.Config{}, testPools...)

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"token_in":"ETH","token_out":"USDC","amount":2}`)
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/route", body))
	require.Equal(t, http.StatusOK, rec.Code)

	var route model.Route
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&route))
	assert.Equal(t, []string{"ETH", "USDT", "USDC"}, route.Path)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/route", strings.NewReader(`{"bogus":1}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/route", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPoolsAndHealth(t *testing.T) {
	empty := newTestHandler(t, router.Config{})
	assert.Equal(t, http.StatusServiceUnavailable, get(t, empty, "/healthz").Code)

	h := newTestHandler(t, router.Config{}, testPools...)
	rec := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)

	rec = get(t, h, "/pools")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Pools []model.Pool `json:"pools"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body.Pools, 3)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestHandler(t, router.Config{}, testPools...)
	get(t, h, "/route?in=ETH&out=USDC&amount=1")

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `route_scope_router_searches_total{outcome="found"} 1`))
}

type stubFinder struct {
	route model.Route
}

func (s stubFinder) FindBestRoute(context.Context, string, string, float64) (model.Route, error) {
	return s.route, nil
}

func (s stubFinder) Pools() []model.Pool { return nil }

func (s stubFinder) Stats() router.Stats { return router.Stats{} }

func TestRouteEndpointUnencodableRoute(t *testing.T) {
	h := NewHandler(stubFinder{route: model.Route{Path: []string{"ETH", "USDC"}, ExpectedOutput: math.Inf(1)}}, nil, nil).Routes()

	rec := get(t, h, "/route?in=ETH&out=USDC&amount=1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.NotEmpty(t, body["error"])
}

func TestRouteEndpointOverflowAmount(t *testing.T) {
	h := newTestHandler(t, router.Config{}, testPools...)

	rec := get(t, h, "/route?in=ETH&out=USDC&amount=1e307")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "overflows")
}

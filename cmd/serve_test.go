package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyfence-jp/skyfence/internal/config"
	"github.com/skyfence-jp/skyfence/internal/forecast"
	"github.com/skyfence-jp/skyfence/internal/zone"
)

func testRouter(t *testing.T, srvCfg config.ServerConfig) http.Handler {
	t.Helper()

	zones := []*zone.Feature{{
		Kind: zone.KindDID,
		Name: "test district",
		Geometry: orb.MultiPolygon{orb.Polygon{orb.Ring{
			{139.6, 35.6}, {139.8, 35.6}, {139.8, 35.8}, {139.6, 35.8}, {139.6, 35.6},
		}}},
	}}

	env := &serveEnv{
		classifier: zone.NewClassifier(nil),
		source:     zone.Collection(zones),
		zones:      zones,
		cache:      forecast.NewCache(10, time.Minute),
	}
	return newRouter(env, srvCfg)
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestServe_Healthz(t *testing.T) {
	h := testRouter(t, config.ServerConfig{AllowedOrigins: []string{"*"}})

	w := doRequest(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.EqualValues(t, 1, resp["zones"])
}

func TestServe_ClassifyPoint(t *testing.T) {
	h := testRouter(t, config.ServerConfig{AllowedOrigins: []string{"*"}})

	w := doRequest(t, h, http.MethodPost, "/v1/classify/point", `{"lng":139.7,"lat":35.7}`)
	require.Equal(t, http.StatusOK, w.Code)

	var verdict zone.PointVerdict
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verdict))
	assert.True(t, verdict.Colliding)
	assert.Equal(t, zone.KindDID, verdict.Kind)

	w = doRequest(t, h, http.MethodPost, "/v1/classify/point", `{"lng":130.0,"lat":33.0}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verdict))
	assert.False(t, verdict.Colliding)
	assert.Equal(t, zone.SeveritySafe, verdict.Severity)
}

func TestServe_ClassifyPoint_BadBody(t *testing.T) {
	h := testRouter(t, config.ServerConfig{AllowedOrigins: []string{"*"}})

	w := doRequest(t, h, http.MethodPost, "/v1/classify/point", `{broken`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServe_ClassifyPath(t *testing.T) {
	h := testRouter(t, config.ServerConfig{AllowedOrigins: []string{"*"}})

	body := `{"coordinates":[[139.5,35.7],[139.9,35.7]]}`
	w := doRequest(t, h, http.MethodPost, "/v1/classify/path", body)
	require.Equal(t, http.StatusOK, w.Code)

	var verdict zone.PathVerdict
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verdict))
	assert.True(t, verdict.Colliding)
	assert.Equal(t, zone.SeverityDanger, verdict.Severity)
	assert.Len(t, verdict.Intersections, 2)
}

func TestServe_ClassifyArea(t *testing.T) {
	h := testRouter(t, config.ServerConfig{AllowedOrigins: []string{"*"}})

	// Fully inside the zone: full overlap, DANGER.
	body := `{"coordinates":[[139.65,35.65],[139.75,35.65],[139.75,35.75],[139.65,35.75],[139.65,35.65]]}`
	w := doRequest(t, h, http.MethodPost, "/v1/classify/area", body)
	require.Equal(t, http.StatusOK, w.Code)

	var verdict zone.PolygonVerdict
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &verdict))
	assert.True(t, verdict.Colliding)
	assert.Equal(t, zone.SeverityDanger, verdict.Severity)
	assert.InDelta(t, 1.0, verdict.OverlapRatio, 0.01)
}

func TestServe_MeshEndpoints(t *testing.T) {
	h := testRouter(t, config.ServerConfig{AllowedOrigins: []string{"*"}})

	w := doRequest(t, h, http.MethodGet, "/v1/mesh/encode?lat=35.681236&lng=139.767125&level=3", "")
	require.Equal(t, http.StatusOK, w.Code)

	var cell meshCellInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cell))
	assert.Equal(t, "53394611", cell.Code)
	assert.Equal(t, 3, cell.Level)

	// Out-of-bounds coordinates are a client data error, not a 500.
	w = doRequest(t, h, http.MethodGet, "/v1/mesh/encode?lat=10&lng=100", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Decode and neighbors.
	w = doRequest(t, h, http.MethodGet, "/v1/mesh/53394611", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, h, http.MethodGet, "/v1/mesh/53394611/neighbors", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Neighbors []string `json:"neighbors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Neighbors, 9)

	w = doRequest(t, h, http.MethodGet, "/v1/mesh/banana", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Zoom policy.
	w = doRequest(t, h, http.MethodGet, "/v1/mesh/zoom?z=8", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"maxCells":200`)
}

func TestServe_ForecastCacheLifecycle(t *testing.T) {
	h := testRouter(t, config.ServerConfig{AllowedOrigins: []string{"*"}})

	// Miss before put.
	w := doRequest(t, h, http.MethodGet, "/v1/forecast/53394611", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Store then read back.
	w = doRequest(t, h, http.MethodPut, "/v1/forecast/53394611", `{"windSpeed":3.4}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(t, h, http.MethodGet, "/v1/forecast/53394611", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"windSpeed":3.4}`, w.Body.String())

	// Invalid cell is rejected on write.
	w = doRequest(t, h, http.MethodPut, "/v1/forecast/banana99", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Non-JSON payloads are rejected so GET can always reply with a
	// JSON content type.
	w = doRequest(t, h, http.MethodPut, "/v1/forecast/53394611", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Stats reflect the traffic.
	w = doRequest(t, h, http.MethodGet, "/v1/forecast/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats forecast.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Entries)
}

func TestServe_RateLimit(t *testing.T) {
	h := testRouter(t, config.ServerConfig{
		AllowedOrigins: []string{"*"},
		RateLimit:      1,
		Burst:          2,
	})

	// Burst allows the first two, the third is rejected.
	for i := 0; i < 2; i++ {
		w := doRequest(t, h, http.MethodGet, "/healthz", "")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i)
	}
	w := doRequest(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

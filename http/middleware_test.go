package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"studentrisk/config"
	"studentrisk/ml"
	"studentrisk/monitoring"
)

func TestRecoveryMiddleware(t *testing.T) {
	handler := RecoveryMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	handler := CORSMiddleware([]string{"https://clinic.example"})(next)

	req := httptest.NewRequest(http.MethodOptions, "/api/predict", nil)
	req.Header.Set("Origin", "https://clinic.example")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://clinic.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://other.example")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoggerMiddlewareSetsRequestID(t *testing.T) {
	var seen string
	handler := LoggerMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
}

func TestServerMiddlewareChain(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, Capacity: 2, Refill: time.Hour, MaxClients: 8}

	server, err := NewServer(cfg, NewHandler(fixturePredictor(t), nil, nil), nil)
	require.NoError(t, err)
	handler := server.Handler()

	for i := 0; i < 2; i++ {
		w := postJSON(handler, fixtureJSON)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	}

	w := postJSON(handler, fixtureJSON)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Reads are not limited.
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServerRejectsOversizedBody(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.MaxBodyBytes = 64
	cfg.RateLimit.Enabled = false

	provider := &fakeProvider{result: ml.PredictionResult{Label: 1, Probability: 0.9}}
	server, err := NewServer(cfg, NewHandler(provider, nil, nil), nil)
	require.NoError(t, err)

	w := postJSON(server.Handler(), fixtureJSON+strings.Repeat(" ", 128))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, provider.calls)
}

func TestNewServerInvalidRateLimit(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true}

	_, err := NewServer(cfg, NewHandler(&fakeProvider{}, nil, nil), nil)
	assert.Error(t, err)
}

func TestServerMetricsStream(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.RateLimit.Enabled = false

	metrics := monitoring.NewMetricsCollector()
	hub := monitoring.NewMetricsHub(metrics, time.Hour, nil)
	go hub.Run()
	defer hub.Stop()

	handler := NewHandler(fixturePredictor(t), metrics, nil)
	handler.EnableMetricsStream(hub)
	server, err := NewServer(cfg, handler, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(server.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/metrics/stream", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var msg monitoring.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, monitoring.MetricsUpdate, msg.Type)

	// A prediction pushes a fresh snapshot.
	resp, err := http.Post(srv.URL+"/api/predict", "application/json", strings.NewReader(fixtureJSON))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&msg))
	var snap monitoring.Snapshot
	require.NoError(t, json.Unmarshal(msg.Data, &snap))
	assert.Equal(t, int64(1), snap.Predictions["high_risk"])
}

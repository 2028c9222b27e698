// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/companion-tui/internal/chatsync"
	"github.com/jeranaias/companion-tui/internal/connection"
	"github.com/jeranaias/companion-tui/internal/metrics"
	"github.com/jeranaias/companion-tui/internal/model"
)

func newTestServer(t *testing.T, snap chatsync.Snapshot, m http.Handler) *httptest.Server {
	t.Helper()
	s := New(Options{
		Version:  "test",
		Metrics:  m,
		Snapshot: func() chatsync.Snapshot { return snap },
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func getHealth(t *testing.T, url string) (int, HealthResponse) {
	t.Helper()
	resp, err := http.Get(url + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var h HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	return resp.StatusCode, h
}

// ============================================================================
// HEALTH TESTS
// ============================================================================

func TestHealth_Connected(t *testing.T) {
	snap := chatsync.Snapshot{
		Messages:          []*model.Message{model.NewUserMessage("hi"), model.NewStreamingMessage("r1", "he", nil)},
		CurrentResponseID: "r1",
		Composing:         true,
		Connection: connection.Snapshot{
			State:     connection.StateConnected,
			Quality:   connection.QualityExcellent,
			LatencyMs: 12,
		},
	}
	ts := newTestServer(t, snap, nil)

	code, h := getHealth(t, ts.URL)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusOK, h.Status)
	assert.Equal(t, "connected", h.Connection)
	assert.Equal(t, "excellent", h.Quality)
	assert.Equal(t, int64(12), h.LatencyMs)
	assert.Equal(t, 2, h.Messages)
	assert.True(t, h.Streaming)
	assert.True(t, h.Composing)
	assert.Equal(t, "test", h.Version)
}

func TestHealth_Status(t *testing.T) {
	tests := []struct {
		name     string
		conn     connection.Snapshot
		want     string
		wantCode int
	}{
		{"offline", connection.Snapshot{State: connection.StateDisconnected, Quality: connection.QualityDisconnected}, StatusOffline, http.StatusServiceUnavailable},
		{"connecting", connection.Snapshot{State: connection.StateConnecting}, StatusOffline, http.StatusServiceUnavailable},
		{"slow", connection.Snapshot{State: connection.StateConnected, Quality: connection.QualityPoor}, StatusDegraded, http.StatusOK},
		{"server error", connection.Snapshot{State: connection.StateConnected, Quality: connection.QualityPoor, Degraded: true}, StatusDegraded, http.StatusOK},
		{"good", connection.Snapshot{State: connection.StateConnected, Quality: connection.QualityGood}, StatusOK, http.StatusOK},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, chatsync.Snapshot{Connection: tc.conn}, nil)
			code, h := getHealth(t, ts.URL)
			assert.Equal(t, tc.wantCode, code)
			assert.Equal(t, tc.want, h.Status)
		})
	}
}

func TestHealth_RejectsPost(t *testing.T) {
	ts := newTestServer(t, chatsync.Snapshot{}, nil)

	resp, err := http.Post(ts.URL+"/health", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	assert.Equal(t, "GET, HEAD", resp.Header.Get("Allow"))
}

func TestHealth_NoStoreHeaders(t *testing.T) {
	ts := newTestServer(t, chatsync.Snapshot{}, nil)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Cache-Control"), "no-store")
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

// ============================================================================
// METRICS TESTS
// ============================================================================

func TestMetricsRoute(t *testing.T) {
	m := metrics.New()
	m.ChunkFolded()
	ts := newTestServer(t, chatsync.Snapshot{}, m.Handler())

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "companion_")
}

func TestMetricsRouteAbsentWithoutHandler(t *testing.T) {
	ts := newTestServer(t, chatsync.Snapshot{}, nil)
	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// ============================================================================
// MIDDLEWARE TESTS
// ============================================================================

func TestRecoveryMiddleware(t *testing.T) {
	h := Chain(RecoveryMiddleware())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(mw("a"), mw("b"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

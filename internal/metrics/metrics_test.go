// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.EventHandled("typing")
	m.EventHandled("typing")
	m.EventHandled("response")
	m.ChunkFolded()
	m.SequenceGap()
	m.SendResult(SendOK)
	m.SendResult(SendFailed)
	m.Notified("error")
	m.NotificationDropped()
	m.HandlerFailed()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("typing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("response")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chunks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.gaps))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sends.WithLabelValues(SendFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notifications.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.handlerFailures))
}

func TestMetrics_QualityIsOneHot(t *testing.T) {
	m := New()
	all := []string{"excellent", "good", "poor", "disconnected"}

	m.SetQuality("good", all...)
	m.SetQuality("poor", all...)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.quality.WithLabelValues("good")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.quality.WithLabelValues("poor")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.EventHandled("x")
		m.ChunkFolded()
		m.SequenceGap()
		m.SendResult(SendOK)
		m.Notified("info")
		m.NotificationDropped()
		m.HandlerFailed()
		m.ObserveLatency(time.Millisecond)
		m.SetQuality("good")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveLatency(30 * time.Millisecond)
	m.SendResult(SendOK)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `companion_sends_total{outcome="ok"} 1`)
	assert.Contains(t, string(body), "companion_connection_latency_seconds_count 1")
}

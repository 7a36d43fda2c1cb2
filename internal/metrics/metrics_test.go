package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest("/api/cart/{cartKey}", http.MethodGet, http.StatusOK, 12*time.Millisecond)
	m.ObserveRequest("/api/cart/{cartKey}", http.MethodGet, http.StatusOK, 3*time.Millisecond)
	m.CartSaveFailed("file")
	m.OrderCreated()
	m.IdempotentReplay()
	m.QRActivated()
	m.OutboxPublished("order.created.v1")
	m.OutboxFailed("order.created.v1")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("/api/cart/{cartKey}", "GET", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cartSaveFailures.WithLabelValues("file")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ordersCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.idempotentReplays))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.qrActivations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outboxPublished.WithLabelValues("order.created.v1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.outboxFailed.WithLabelValues("order.created.v1")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("/", "GET", 200, time.Millisecond)
		m.CartSaveFailed("memory")
		m.OrderCreated()
		m.IdempotentReplay()
		m.QRActivated()
		m.OutboxPublished("x")
		m.OutboxFailed("x")
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.OrderCreated()

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "codeqr_orders_created_total 1"))
}

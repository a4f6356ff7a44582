package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRemote(t *testing.T) {
	m := New(nil)
	m.ObserveRemote("budget", "fetch", time.Now(), nil)
	m.ObserveRemote("budget", "fetch", time.Now(), errors.New("boom"))
	m.ObserveRemote("budget", "fetch", time.Now(), nil)

	body := scrape(t, m)
	assert.Contains(t, body, `remote_operations_total{component="budget",operation="fetch",outcome="ok"} 2`)
	assert.Contains(t, body, `remote_operations_total{component="budget",operation="fetch",outcome="error"} 1`)
	assert.Contains(t, body, `remote_operation_duration_seconds_count{component="budget",operation="fetch"} 3`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRemote("events", "create", time.Now(), nil)
	m.Notification("events", "delivered")
	m.ObjectServed("200")
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New(nil)
	m.Notification("photos", "dropped")

	assert.Contains(t, scrape(t, m), `realtime_notifications_total{outcome="dropped",table="photos"} 1`)
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestTracerEndsSpan(t *testing.T) {
	var tr Tracer
	ctx, end := tr.Start(context.Background(), "test")
	assert.NotNil(t, ctx)
	end(errors.New("recorded"))
}

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppMetrics(t *testing.T) {
	reg := NewRegistry()
	m := NewAppMetrics(reg)

	m.DatagramsReceived.Inc()
	m.DecodeTotal.WithLabelValues("LAN_X_LOCO_INFO", "ok").Add(2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DatagramsReceived))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.DecodeTotal.WithLabelValues("LAN_X_LOCO_INFO", "ok")))

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "z21_datagrams_received_total 1")
}

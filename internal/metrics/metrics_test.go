package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerExposesCounters(t *testing.T) {
	reg := NewRegistry()
	reg.ReconcileRuns.Inc()
	reg.StoreErrors.WithLabelValues("list_sales").Inc()
	reg.SoldUnits.Add(7)

	rec := httptest.NewRecorder()
	reg.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "bakery_reconcile_runs_total 1")
	assert.Contains(t, string(body), `bakery_store_errors_total{op="list_sales"} 1`)
	assert.Contains(t, string(body), "bakery_sold_units_total 7")
}

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	ReconcileRuns     prometheus.Counter
	ReconcileSec      prometheus.Histogram
	StoreErrors       *prometheus.CounterVec
	ProducedUnits     prometheus.Counter
	SoldUnits         prometheus.Counter
	DigestsPublished  prometheus.Counter
	DigestSinkErrors  *prometheus.CounterVec
	RejectedSaleLines prometheus.Counter
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	runs := prometheus.NewCounter(prometheus.CounterOpts{Name: "bakery_reconcile_runs_total"})
	dur := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bakery_reconcile_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	storeErrors := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bakery_store_errors_total"}, []string{"op"})
	produced := prometheus.NewCounter(prometheus.CounterOpts{Name: "bakery_produced_units_total"})
	sold := prometheus.NewCounter(prometheus.CounterOpts{Name: "bakery_sold_units_total"})
	digests := prometheus.NewCounter(prometheus.CounterOpts{Name: "bakery_digests_published_total"})
	sinkErrors := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "bakery_digest_sink_errors_total"}, []string{"sink"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "bakery_sale_lines_rejected_total"})

	r.MustRegister(runs, dur, storeErrors, produced, sold, digests, sinkErrors, rejected)
	return &Registry{
		reg:               r,
		ReconcileRuns:     runs,
		ReconcileSec:      dur,
		StoreErrors:       storeErrors,
		ProducedUnits:     produced,
		SoldUnits:         sold,
		DigestsPublished:  digests,
		DigestSinkErrors:  sinkErrors,
		RejectedSaleLines: rejected,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

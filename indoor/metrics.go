package indoor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	DatasetLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terminalmap",
		Subsystem: "dataset",
		Name:      "loads_total",
		Help:      "Dataset load attempts by source and result",
	}, []string{"source", "result"})

	DatasetFeatures = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "terminalmap",
		Subsystem: "dataset",
		Name:      "features",
		Help:      "Number of features in the active dataset",
	})

	SkippedGeometries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "terminalmap",
		Subsystem: "dataset",
		Name:      "skipped_geometries_total",
		Help:      "Features whose geometry was not transformed or bounded",
	})

	ViewportFits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "terminalmap",
		Subsystem: "viewport",
		Name:      "fits_total",
		Help:      "One-shot load fits issued to the viewport",
	})

	ViewportFitsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "terminalmap",
		Subsystem: "viewport",
		Name:      "fits_cancelled_total",
		Help:      "Deferred fits dropped because a newer dataset was loaded",
	})

	LocatorEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terminalmap",
		Subsystem: "locator",
		Name:      "events_total",
		Help:      "Position events by source",
	}, []string{"source"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "terminalmap",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"path", "status"})
)

// MetricsHandler exposes the default registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

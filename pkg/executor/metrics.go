package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	inflightRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reqstate_inflight_requests",
		Help: "Number of keyed calls currently registered as in flight",
	})

	dedupAttachTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reqstate_dedup_attach_total",
		Help: "Total number of requests that attached to an in-flight call",
	})

	callAbortsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reqstate_call_aborts_total",
		Help: "Total number of calls aborted after their last handle was released",
	})
)

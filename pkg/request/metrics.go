package request

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var staleOutcomesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "reqstate_stale_outcomes_total",
	Help: "Total number of fetch outcomes discarded because the request moved on",
})

package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus instruments for the discovery pipeline.
type Metrics struct {
	SearchAttempts   *prometheus.CounterVec
	SearchRetries    prometheus.Counter
	SearchFailures   *prometheus.CounterVec
	SourcesFound     prometheus.Counter
	DuplicatesSeen   prometheus.Counter
	SectionsAccepted prometheus.Counter
	SectionsRejected *prometheus.CounterVec
}

// New registers and returns the metric set. Pass prometheus.DefaultRegisterer
// in production; tests pass a fresh registry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SearchAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chronicler_search_attempts_total",
			Help: "Search strategy executions, by strategy.",
		}, []string{"strategy"}),
		SearchRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "chronicler_search_retries_total",
			Help: "Search attempts retried after a transient failure.",
		}),
		SearchFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chronicler_search_failures_total",
			Help: "Search strategies that exhausted their retries, by strategy.",
		}, []string{"strategy"}),
		SourcesFound: factory.NewCounter(prometheus.CounterOpts{
			Name: "chronicler_sources_found_total",
			Help: "Unique sources accepted during discovery.",
		}),
		DuplicatesSeen: factory.NewCounter(prometheus.CounterOpts{
			Name: "chronicler_duplicate_records_total",
			Help: "Records skipped because their identifier was already seen.",
		}),
		SectionsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "chronicler_sections_accepted_total",
			Help: "Report sections that passed citation verification.",
		}),
		SectionsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chronicler_sections_rejected_total",
			Help: "Report sections rejected, by error kind.",
		}, []string{"kind"}),
	}
}

package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type eventMetrics struct {
	classifiedCounter   prometheus.Counter
	unclassifiedCounter prometheus.Counter
	duplicateCounter    prometheus.Counter
}

func newEventMetrics() *eventMetrics {
	metrics := new(eventMetrics)

	metrics.classifiedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_events_classified_count",
		Help: "The number of inbound events classified into a known category",
	})

	metrics.unclassifiedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_events_unclassified_count",
		Help: "The number of inbound events that did not match a known category",
	})

	metrics.duplicateCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_events_duplicate_count",
		Help: "The number of inbound events dropped by the dedup window",
	})

	return metrics
}

var (
	metrics = newEventMetrics()
)

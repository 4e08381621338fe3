package poller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type pollerMetrics struct {
	batchCounter       prometheus.Counter
	deliveredCounter   prometheus.Counter
	pollFailureCounter prometheus.Counter
	backoffCounter     prometheus.Counter
}

func newPollerMetrics() *pollerMetrics {
	metrics := new(pollerMetrics)

	metrics.batchCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_poller_batch_count",
		Help: "The number of non-empty poll batches processed",
	})

	metrics.deliveredCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_poller_delivered_event_count",
		Help: "The number of events delivered to the dispatcher",
	})

	metrics.pollFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_poller_poll_failure_count",
		Help: "The number of poll calls that failed after the transport retries",
	})

	metrics.backoffCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_poller_backoff_count",
		Help: "The number of backoff waits taken by the poll loop",
	})

	return metrics
}

var (
	metrics = newPollerMetrics()
)

package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type transportMetrics struct {
	callRetryCounter      prometheus.Counter
	reauthenticateCounter prometheus.Counter
	terminalErrorCounter  prometheus.Counter
	pollDuration          prometheus.Histogram
}

func newTransportMetrics() *transportMetrics {
	metrics := new(transportMetrics)

	metrics.callRetryCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_transport_call_retry_count",
		Help: "The number of transport calls that were retried after a transient failure",
	})

	metrics.reauthenticateCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_transport_reauthenticate_count",
		Help: "The number of transport calls that triggered an automatic re-authentication",
	})

	metrics.terminalErrorCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_transport_terminal_error_count",
		Help: "The number of transport calls that failed with a non-retryable error",
	})

	metrics.pollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "chat_connector_transport_poll_duration",
		Help: "The amount of time one poll call took",
	})

	return metrics
}

var (
	metrics = newTransportMetrics()
)

package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type dispatchMetrics struct {
	dispatchedCounter     prometheus.Counter
	handlerFailureCounter prometheus.Counter
	handlerPanicCounter   prometheus.Counter
	registrationGauge     prometheus.Gauge
}

func newDispatchMetrics() *dispatchMetrics {
	metrics := new(dispatchMetrics)

	metrics.dispatchedCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_dispatch_event_count",
		Help: "The number of events delivered to the handler registry",
	})

	metrics.handlerFailureCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_dispatch_handler_failure_count",
		Help: "The number of handler invocations that returned an error",
	})

	metrics.handlerPanicCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_connector_dispatch_handler_panic_count",
		Help: "The number of handler invocations that panicked",
	})

	metrics.registrationGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_connector_dispatch_registration_count",
		Help: "The number of handler registrations currently installed",
	})

	return metrics
}

var (
	metrics = newDispatchMetrics()
)

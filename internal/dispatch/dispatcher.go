package dispatch

import (
	"context"
	"fmt"

	"github.com/oachat/chat-connector/internal/events"
	"github.com/oachat/chat-connector/internal/platform/logger"

	"github.com/sirupsen/logrus"
)

// HandlerError records a single handler's failure while delivering an event.
// Other handlers for the same event are unaffected.
type HandlerError struct {
	RegistrationID RegistrationID
	Category       events.Category
	Subcategory    events.Subcategory
	Cause          error
}

func (he *HandlerError) Error() string {
	return fmt.Sprintf("handler %s failed on %s/%s: %v", he.RegistrationID, he.Category, he.Subcategory, he.Cause)
}

func (he *HandlerError) Unwrap() error {
	return he.Cause
}

// Dispatcher delivers classified events to the matching registrations.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// Dispatch delivers the event to every matching handler, sequentially, in
// precedence order.  A handler failure or panic is captured and logged and
// the remaining handlers still run.  The returned slice holds one entry per
// failed handler.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.Event) []*HandlerError {
	matched := d.registry.Lookup(event)

	logger.Log.WithFields(logrus.Fields{
		"event_id":    event.ID,
		"category":    event.Category,
		"subcategory": event.Subcategory,
		"handlers":    len(matched),
	}).Debug("Dispatching event")

	var failures []*HandlerError

	for _, reg := range matched {
		if err := d.invoke(ctx, reg, event); err != nil {
			handlerError := &HandlerError{
				RegistrationID: reg.id,
				Category:       event.Category,
				Subcategory:    event.Subcategory,
				Cause:          err,
			}

			logger.LogError("Event handler failed", handlerError)
			metrics.handlerFailureCounter.Inc()

			failures = append(failures, handlerError)
		}
	}

	metrics.dispatchedCounter.Inc()

	return failures
}

func (d *Dispatcher) invoke(ctx context.Context, reg *registration, event events.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.handlerPanicCounter.Inc()
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return reg.handler(ctx, event)
}

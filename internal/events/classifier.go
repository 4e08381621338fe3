package events

import (
	"github.com/oachat/chat-connector/internal/transport"
)

// Classify maps a raw inbound payload to a typed Event.  It is total: a
// malformed or unknown payload becomes unclassified with the raw payload
// preserved, it never fails, so one bad event cannot abort a batch.
func Classify(raw transport.RawEvent) Event {
	event := Event{
		ID:         raw.ID,
		Payload:    raw.Data,
		ReceivedAt: raw.ReceivedAt,
	}

	category := Category(raw.Name)
	subcategories, known := knownSubcategories[category]
	if !known {
		event.Category = CategoryUnclassified
		event.Subcategory = SubcategoryUnclassified
		metrics.unclassifiedCounter.Inc()
		return event
	}

	event.Category = category

	subEvent, _ := raw.Data["subEvent"].(string)
	subcategory := Subcategory(subEvent)
	if !subcategories[subcategory] {
		subcategory = SubcategoryUnclassified
	}
	event.Subcategory = subcategory

	metrics.classifiedCounter.Inc()

	return event
}

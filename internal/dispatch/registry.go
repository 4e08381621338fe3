package dispatch

import (
	"context"
	"sync"

	"github.com/oachat/chat-connector/internal/events"

	"github.com/google/uuid"
)

// Handler consumes one classified event.  Returning an error marks the
// delivery failed for this handler only.
type Handler func(ctx context.Context, event events.Event) error

// Filter selects the events a handler receives.  Either field may be the
// wildcard.  A wildcard category subsumes the subcategory, so the three
// shapes are exact, category-wide and global.
type Filter struct {
	Category    events.Category
	Subcategory events.Subcategory
}

func ExactFilter(category events.Category, subcategory events.Subcategory) Filter {
	return Filter{Category: category, Subcategory: subcategory}
}

func CategoryFilter(category events.Category) Filter {
	return Filter{Category: category, Subcategory: events.SubcategoryAny}
}

func GlobalFilter() Filter {
	return Filter{Category: events.CategoryAny, Subcategory: events.SubcategoryAny}
}

func (f Filter) isGlobal() bool {
	return f.Category == events.CategoryAny
}

func (f Filter) isCategoryWide() bool {
	return f.Category != events.CategoryAny && f.Subcategory == events.SubcategoryAny
}

func (f Filter) isExact() bool {
	return f.Category != events.CategoryAny && f.Subcategory != events.SubcategoryAny
}

type RegistrationID string

type registration struct {
	id      RegistrationID
	filter  Filter
	handler Handler
}

// Registry holds handler registrations and resolves them against events in
// precedence order.  Safe for concurrent use.
type Registry struct {
	lock          sync.RWMutex
	registrations []*registration
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a handler under the given filter and returns an identifier
// for later removal.  Registration order within a precedence group is
// delivery order.
func (r *Registry) Register(filter Filter, handler Handler) RegistrationID {
	id := RegistrationID(uuid.NewString())

	r.lock.Lock()
	defer r.lock.Unlock()

	r.registrations = append(r.registrations, &registration{
		id:      id,
		filter:  filter,
		handler: handler,
	})

	metrics.registrationGauge.Inc()

	return id
}

// Unregister removes a registration.  Removing an unknown identifier is a
// no-op, so callers may unregister twice safely.
func (r *Registry) Unregister(id RegistrationID) {
	r.lock.Lock()
	defer r.lock.Unlock()

	for i, reg := range r.registrations {
		if reg.id == id {
			r.registrations = append(r.registrations[:i], r.registrations[i+1:]...)
			metrics.registrationGauge.Dec()
			return
		}
	}
}

func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()

	return len(r.registrations)
}

// Lookup returns the registrations matching the event:  exact matches first,
// then category-wide, then global, each group in registration order.
func (r *Registry) Lookup(event events.Event) []*registration {
	r.lock.RLock()
	defer r.lock.RUnlock()

	var matched []*registration

	for _, reg := range r.registrations {
		if reg.filter.isExact() && reg.filter.Category == event.Category && reg.filter.Subcategory == event.Subcategory {
			matched = append(matched, reg)
		}
	}

	for _, reg := range r.registrations {
		if reg.filter.isCategoryWide() && reg.filter.Category == event.Category {
			matched = append(matched, reg)
		}
	}

	for _, reg := range r.registrations {
		if reg.filter.isGlobal() {
			matched = append(matched, reg)
		}
	}

	return matched
}

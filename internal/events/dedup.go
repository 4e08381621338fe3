package events

import (
	"time"

	"github.com/oachat/chat-connector/internal/domain"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Window is the bounded recent-identifier set that prevents re-delivery of
// events refetched after a resumed poll.  Capacity-limited with
// oldest-evicted-first semantics; identifiers also age out after the TTL.
// Single writer (the poller), so delivery stays at-most-once while an
// identifier is resident.
type Window struct {
	seen *expirable.LRU[domain.EventID, struct{}]
}

func NewWindow(capacity int, ttl time.Duration) *Window {
	return &Window{
		seen: expirable.NewLRU[domain.EventID, struct{}](capacity, nil, ttl),
	}
}

// Seen reports whether the identifier is still resident in the window.
// Events without an identifier cannot be deduplicated and always pass.
func (w *Window) Seen(id domain.EventID) bool {
	if id == "" {
		return false
	}

	_, found := w.seen.Get(id)
	if found {
		metrics.duplicateCounter.Inc()
	}

	return found
}

func (w *Window) Add(id domain.EventID) {
	if id == "" {
		return
	}

	w.seen.Add(id, struct{}{})
}

func (w *Window) Len() int {
	return w.seen.Len()
}

package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/oachat/chat-connector/internal/domain"
)

func TestWindowRemembersDeliveredIdentifiers(t *testing.T) {
	window := NewWindow(16, time.Minute)

	if window.Seen("e1") {
		t.Fatal("a fresh window should not report e1 as seen")
	}

	window.Add("e1")

	if !window.Seen("e1") {
		t.Fatal("e1 should be resident after Add")
	}
}

func TestWindowEvictsOldestFirst(t *testing.T) {
	window := NewWindow(3, time.Minute)

	for i := 1; i <= 4; i++ {
		window.Add(domain.EventID(fmt.Sprintf("e%d", i)))
	}

	if window.Seen("e1") {
		t.Fatal("e1 should have been evicted when capacity was exceeded")
	}

	for i := 2; i <= 4; i++ {
		id := domain.EventID(fmt.Sprintf("e%d", i))
		if !window.Seen(id) {
			t.Fatalf("%s should still be resident", id)
		}
	}

	if window.Len() != 3 {
		t.Fatalf("expected the window to hold 3 identifiers, got %d", window.Len())
	}
}

func TestWindowIgnoresEmptyIdentifiers(t *testing.T) {
	window := NewWindow(4, time.Minute)

	window.Add("")

	if window.Seen("") {
		t.Fatal("events without identifiers cannot be deduplicated")
	}

	if window.Len() != 0 {
		t.Fatal("an empty identifier must not occupy window capacity")
	}
}

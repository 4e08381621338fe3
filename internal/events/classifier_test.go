package events

import (
	"testing"
	"time"

	"github.com/oachat/chat-connector/internal/platform/logger"
	"github.com/oachat/chat-connector/internal/transport"

	"github.com/google/go-cmp/cmp"
)

func init() {
	logger.InitLogger()
}

func TestClassifyKnownEvents(t *testing.T) {
	testCases := []struct {
		name            string
		raw             transport.RawEvent
		wantCategory    Category
		wantSubcategory Subcategory
	}{
		{
			"chat message",
			transport.RawEvent{ID: "e1", Name: "chat", Data: map[string]interface{}{"subEvent": "message"}},
			CategoryChat, SubcategoryMessage,
		},
		{
			"chat message sent",
			transport.RawEvent{ID: "e2", Name: "chat", Data: map[string]interface{}{"subEvent": "messageSent"}},
			CategoryChat, SubcategoryMessageSent,
		},
		{
			"read receipt",
			transport.RawEvent{ID: "e3", Name: "chat", Data: map[string]interface{}{"subEvent": "read"}},
			CategoryChat, SubcategoryRead,
		},
		{
			"typing indicator",
			transport.RawEvent{ID: "e4", Name: "chat", Data: map[string]interface{}{"subEvent": "typing"}},
			CategoryChat, SubcategoryTyping,
		},
		{
			"typing vanished",
			transport.RawEvent{ID: "e5", Name: "chat", Data: map[string]interface{}{"subEvent": "typingVanished"}},
			CategoryChat, SubcategoryTypingVanished,
		},
		{
			"manual chat marker",
			transport.RawEvent{ID: "e6", Name: "chat", Data: map[string]interface{}{"subEvent": "markedAsManualChat"}},
			CategoryChat, SubcategoryMarkedAsManualChat,
		},
		{
			"unread count increment",
			transport.RawEvent{ID: "e7", Name: "botUnreadChatCount", Data: map[string]interface{}{"subEvent": "increment"}},
			CategoryBotUnreadChatCount, SubcategoryIncrement,
		},
		{
			"bot info change",
			transport.RawEvent{ID: "e8", Name: "botInfo", Data: map[string]interface{}{"subEvent": "hasChatRoomChanged"}},
			CategoryBotInfo, SubcategoryHasChatRoomChanged,
		},
		{
			"invalid token failure",
			transport.RawEvent{ID: "e9", Name: "fail", Data: map[string]interface{}{"subEvent": "invalid_token"}},
			CategoryFail, SubcategoryInvalidToken,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			event := Classify(tc.raw)

			if event.Category != tc.wantCategory {
				t.Errorf("expected category %s, got %s", tc.wantCategory, event.Category)
			}
			if event.Subcategory != tc.wantSubcategory {
				t.Errorf("expected subcategory %s, got %s", tc.wantSubcategory, event.Subcategory)
			}
			if event.ID != tc.raw.ID {
				t.Errorf("expected the raw identifier %s to carry over, got %s", tc.raw.ID, event.ID)
			}
		})
	}
}

func TestClassifyIsTotalOverMalformedPayloads(t *testing.T) {
	testCases := []struct {
		name            string
		raw             transport.RawEvent
		wantCategory    Category
		wantSubcategory Subcategory
	}{
		{
			"unknown category",
			transport.RawEvent{ID: "e1", Name: "somethingNew", Data: map[string]interface{}{"subEvent": "message"}},
			CategoryUnclassified, SubcategoryUnclassified,
		},
		{
			"unknown subcategory keeps the category",
			transport.RawEvent{ID: "e2", Name: "chat", Data: map[string]interface{}{"subEvent": "somethingNew"}},
			CategoryChat, SubcategoryUnclassified,
		},
		{
			"missing subEvent field",
			transport.RawEvent{ID: "e3", Name: "chat", Data: map[string]interface{}{}},
			CategoryChat, SubcategoryUnclassified,
		},
		{
			"nil payload",
			transport.RawEvent{ID: "e4", Name: "chat"},
			CategoryChat, SubcategoryUnclassified,
		},
		{
			"subEvent of the wrong type",
			transport.RawEvent{ID: "e5", Name: "chat", Data: map[string]interface{}{"subEvent": 42}},
			CategoryChat, SubcategoryUnclassified,
		},
		{
			"empty event name",
			transport.RawEvent{ID: "e6", Data: map[string]interface{}{"raw": "not-json"}},
			CategoryUnclassified, SubcategoryUnclassified,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			event := Classify(tc.raw)

			if event.Category != tc.wantCategory {
				t.Errorf("expected category %s, got %s", tc.wantCategory, event.Category)
			}
			if event.Subcategory != tc.wantSubcategory {
				t.Errorf("expected subcategory %s, got %s", tc.wantSubcategory, event.Subcategory)
			}
		})
	}
}

func TestClassifyPreservesRawPayload(t *testing.T) {
	payload := map[string]interface{}{
		"subEvent": "somethingNew",
		"message":  map[string]interface{}{"text": "hi"},
	}

	event := Classify(transport.RawEvent{ID: "e1", Name: "unknownShape", Data: payload})

	if diff := cmp.Diff(payload, event.Payload); diff != "" {
		t.Fatalf("raw payload was not preserved (-want +got):\n%s", diff)
	}
}

func TestClassifyCarriesArrivalTimestamp(t *testing.T) {
	receivedAt := time.Now().Add(-time.Minute)

	event := Classify(transport.RawEvent{ID: "e1", Name: "chat", ReceivedAt: receivedAt})

	if !event.ReceivedAt.Equal(receivedAt) {
		t.Fatalf("expected arrival timestamp %s, got %s", receivedAt, event.ReceivedAt)
	}
}

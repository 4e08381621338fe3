package events

import (
	"time"

	"github.com/oachat/chat-connector/internal/domain"
)

type Category string

const (
	// CategoryAny is the wildcard filter value, never assigned to an event
	CategoryAny Category = "*"

	CategoryChat               Category = "chat"
	CategoryBotUnreadChatCount Category = "botUnreadChatCount"
	CategoryBotInfo            Category = "botInfo"
	CategoryFail               Category = "fail"
	CategoryUnclassified       Category = "unclassified"
)

type Subcategory string

const (
	// SubcategoryAny is the wildcard filter value, never assigned to an event
	SubcategoryAny Subcategory = "*"

	SubcategoryMessage              Subcategory = "message"
	SubcategoryMessageSent          Subcategory = "messageSent"
	SubcategoryRead                 Subcategory = "read"
	SubcategoryTyping               Subcategory = "typing"
	SubcategoryTypingVanished       Subcategory = "typingVanished"
	SubcategoryNoteUpdated          Subcategory = "noteUpdated"
	SubcategoryMarkedAsManualChat   Subcategory = "markedAsManualChat"
	SubcategoryUnmarkedAsManualChat Subcategory = "unmarkedAsManualChat"
	SubcategoryChatRead             Subcategory = "chatRead"
	SubcategoryAssigneeUpdated      Subcategory = "assigneeUpdated"
	SubcategoryTagged               Subcategory = "tagged"
	SubcategoryIncrement            Subcategory = "increment"
	SubcategoryHasChatRoomChanged   Subcategory = "hasChatRoomChanged"
	SubcategoryInvalidToken         Subcategory = "invalid_token"
	SubcategoryUnclassified         Subcategory = "unclassified"
)

// knownSubcategories is the closed enumeration the classifier recognizes.
// Anything outside it degrades to unclassified instead of failing, which
// keeps the loop alive when the platform grows new event shapes.
var knownSubcategories = map[Category]map[Subcategory]bool{
	CategoryChat: {
		SubcategoryMessage:              true,
		SubcategoryMessageSent:          true,
		SubcategoryRead:                 true,
		SubcategoryTyping:               true,
		SubcategoryTypingVanished:       true,
		SubcategoryNoteUpdated:          true,
		SubcategoryMarkedAsManualChat:   true,
		SubcategoryUnmarkedAsManualChat: true,
		SubcategoryChatRead:             true,
		SubcategoryAssigneeUpdated:      true,
		SubcategoryTagged:               true,
	},
	CategoryBotUnreadChatCount: {
		SubcategoryIncrement: true,
	},
	CategoryBotInfo: {
		SubcategoryHasChatRoomChanged: true,
	},
	CategoryFail: {
		SubcategoryInvalidToken: true,
	},
}

// Event is a classified inbound notification.  Immutable once built.
type Event struct {
	ID          domain.EventID
	Category    Category
	Subcategory Subcategory
	Payload     map[string]interface{}
	ReceivedAt  time.Time
}

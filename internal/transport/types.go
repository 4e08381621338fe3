package transport

import (
	"context"
	"time"

	"github.com/oachat/chat-connector/internal/domain"
	"github.com/oachat/chat-connector/internal/session"
)

// Cursor is the opaque resume position handed back by each poll.  The
// platform interprets it, the core only stores and replays it.
type Cursor string

// RawEvent is one inbound payload before classification.  Name and the
// payload's discriminator fields drive the classifier; ID drives dedup.
type RawEvent struct {
	ID         domain.EventID
	Name       string
	Data       map[string]interface{}
	ReceivedAt time.Time
}

type Emoji struct {
	ProductID string `json:"productId"`
	EmojiID   string `json:"emojiId"`
	Length    int    `json:"length"`
	Index     int    `json:"index"`
}

// Message is an outbound send request.  Type selects which of the optional
// fields the platform reads.
type Message struct {
	ContactID  domain.ContactID `json:"-"`
	Type       string           `json:"type"`
	Text       string           `json:"text,omitempty"`
	Emojis     []Emoji          `json:"emojis,omitempty"`
	StickerID  int              `json:"stickerId,omitempty"`
	PackageID  int              `json:"packageId,omitempty"`
	QuoteToken string           `json:"quoteToken,omitempty"`
}

type Ack struct {
	SendID    domain.SendID
	MessageID string
}

// EventSource is the inbound half of the transport boundary.  The HTTP
// long-poll stream and the MQTT push stream both implement it.
type EventSource interface {
	Poll(ctx context.Context, sess session.Session, cursor Cursor) ([]RawEvent, Cursor, error)
}

// Sender is the outbound half of the transport boundary.
type Sender interface {
	Send(ctx context.Context, sess session.Session, msg Message) (Ack, error)
}

// ChatControls are the chat-state side calls the bot helpers lean on.
type ChatControls interface {
	SetTyping(ctx context.Context, sess session.Session, contactID domain.ContactID) error
	MarkAsRead(ctx context.Context, sess session.Session, contactID domain.ContactID, messageID string) error
	UseManualChat(ctx context.Context, sess session.Session, contactID domain.ContactID, expiresAt time.Time) error
}

// Transport is the full boundary a single-backend deployment wires up.
type Transport interface {
	session.Authenticator
	EventSource
	Sender
}

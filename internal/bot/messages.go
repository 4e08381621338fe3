package bot

import (
	"context"
	"regexp"
	"time"

	"github.com/oachat/chat-connector/internal/domain"
	"github.com/oachat/chat-connector/internal/platform/logger"
	"github.com/oachat/chat-connector/internal/transport"

	"github.com/sirupsen/logrus"
)

// emojiPlaceholderPattern matches inline emoji placeholders of the form
// [EM:productId,id=emojiId] embedded in outbound text.
var emojiPlaceholderPattern = regexp.MustCompile(`\[EM:(\w+),id=(\w+)\]`)

// emojiSubstitute is the single character the platform expects in place of
// each extracted placeholder.
const emojiSubstitute = "$"

// ExtractEmojis splits inline emoji placeholders out of the raw text and
// returns the cleaned text plus the emoji positions.  Each placeholder
// collapses to one character, so the indexes are relative to the cleaned
// text.
func ExtractEmojis(rawText string) (string, []transport.Emoji) {
	matches := emojiPlaceholderPattern.FindAllStringSubmatchIndex(rawText, -1)
	if matches == nil {
		return rawText, nil
	}

	var emojis []transport.Emoji
	gap := 0
	for _, match := range matches {
		start, end := match[0], match[1]

		emojis = append(emojis, transport.Emoji{
			ProductID: rawText[match[2]:match[3]],
			EmojiID:   rawText[match[4]:match[5]],
			Length:    1,
			Index:     start - gap,
		})

		gap += end - start - 1
	}

	cleaned := emojiPlaceholderPattern.ReplaceAllString(rawText, emojiSubstitute)

	return cleaned, emojis
}

// SendText sends a text message, extracting inline emoji placeholders first.
// The chat is switched to manual mode so the platform accepts the operator
// send.
func (b *Bot) SendText(ctx context.Context, contactID domain.ContactID, text string) (transport.Ack, error) {
	cleaned, emojis := ExtractEmojis(text)

	return b.send(ctx, transport.Message{
		ContactID: contactID,
		Type:      "text",
		Text:      cleaned,
		Emojis:    emojis,
	})
}

// SendTextQuoting sends a text reply quoting an earlier message.
func (b *Bot) SendTextQuoting(ctx context.Context, contactID domain.ContactID, text string, quoteToken string) (transport.Ack, error) {
	cleaned, emojis := ExtractEmojis(text)

	return b.send(ctx, transport.Message{
		ContactID:  contactID,
		Type:       "text",
		Text:       cleaned,
		Emojis:     emojis,
		QuoteToken: quoteToken,
	})
}

// SendRawText sends the text verbatim, leaving any placeholder syntax alone.
func (b *Bot) SendRawText(ctx context.Context, contactID domain.ContactID, text string) (transport.Ack, error) {
	return b.send(ctx, transport.Message{
		ContactID: contactID,
		Type:      "text",
		Text:      text,
	})
}

// SendSticker sends a sticker from a sticker package.
func (b *Bot) SendSticker(ctx context.Context, contactID domain.ContactID, packageID int, stickerID int) (transport.Ack, error) {
	return b.send(ctx, transport.Message{
		ContactID: contactID,
		Type:      "sticker",
		PackageID: packageID,
		StickerID: stickerID,
	})
}

// SendTyping shows the typing indicator in the contact's chat.
func (b *Bot) SendTyping(ctx context.Context, contactID domain.ContactID) error {
	return b.client.SetTyping(ctx, contactID)
}

// MarkAsRead marks the contact's message as read.
func (b *Bot) MarkAsRead(ctx context.Context, contactID domain.ContactID, messageID string) error {
	return b.client.MarkAsRead(ctx, contactID, messageID)
}

func (b *Bot) send(ctx context.Context, msg transport.Message) (transport.Ack, error) {
	if err := b.client.UseManualChat(ctx, msg.ContactID, time.Now().Add(b.manualChatTTL)); err != nil {
		logger.Log.WithFields(logrus.Fields{"error": err, "contact_id": msg.ContactID}).Warn("Unable to switch the chat to manual mode")
	}

	return b.client.Send(ctx, msg)
}

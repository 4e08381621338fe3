package cursor_repository

import (
	"context"

	"github.com/oachat/chat-connector/internal/domain"
	"github.com/oachat/chat-connector/internal/transport"
)

// NullCursorStore drops cursors.  Used when no database is configured; a
// restart simply resumes from the live stream.
type NullCursorStore struct {
}

func NewNullCursorStore() *NullCursorStore {
	return &NullCursorStore{}
}

func (ncs *NullCursorStore) Save(ctx context.Context, botID domain.BotID, cursor transport.Cursor) error {
	return nil
}

func (ncs *NullCursorStore) Load(ctx context.Context, botID domain.BotID) (transport.Cursor, error) {
	return "", ErrCursorNotFound
}

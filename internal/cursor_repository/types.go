package cursor_repository

import (
	"context"
	"errors"

	"github.com/oachat/chat-connector/internal/domain"
	"github.com/oachat/chat-connector/internal/transport"
)

var ErrCursorNotFound = errors.New("no cursor stored for bot")

// CursorStore persists the last delivered event position per bot so a
// restarted poller resumes where it left off instead of replaying the
// backlog.
type CursorStore interface {
	Save(ctx context.Context, botID domain.BotID, cursor transport.Cursor) error
	Load(ctx context.Context, botID domain.BotID) (transport.Cursor, error)
}

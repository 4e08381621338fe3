package bot

import (
	"context"
	"time"

	"github.com/oachat/chat-connector/internal/config"
	"github.com/oachat/chat-connector/internal/dispatch"
	"github.com/oachat/chat-connector/internal/domain"
	"github.com/oachat/chat-connector/internal/events"
	"github.com/oachat/chat-connector/internal/poller"
	"github.com/oachat/chat-connector/internal/transport"
)

// MessagingClient is the outbound slice of the transport client the bot
// helpers use.
type MessagingClient interface {
	Send(ctx context.Context, msg transport.Message) (transport.Ack, error)
	SetTyping(ctx context.Context, contactID domain.ContactID) error
	MarkAsRead(ctx context.Context, contactID domain.ContactID, messageID string) error
	UseManualChat(ctx context.Context, contactID domain.ContactID, expiresAt time.Time) error
}

// Runner is the loop the bot's lifecycle delegates to.
type Runner interface {
	Run(ctx context.Context) error
	Stop()
	State() poller.State
}

// Bot ties the handler registry, the poll loop, and the outbound messaging
// helpers together behind one surface.
type Bot struct {
	registry      *dispatch.Registry
	runner        Runner
	client        MessagingClient
	manualChatTTL time.Duration
}

func NewBot(registry *dispatch.Registry, runner Runner, client MessagingClient, cfg *config.Config) *Bot {
	return &Bot{
		registry:      registry,
		runner:        runner,
		client:        client,
		manualChatTTL: cfg.ManualChatTTL,
	}
}

// Handle registers a handler for events matching the filter.
func (b *Bot) Handle(filter dispatch.Filter, handler dispatch.Handler) dispatch.RegistrationID {
	return b.registry.Register(filter, handler)
}

// HandleAll registers a handler that receives every event, including
// unclassified ones.
func (b *Bot) HandleAll(handler dispatch.Handler) dispatch.RegistrationID {
	return b.registry.Register(dispatch.GlobalFilter(), handler)
}

// HandleMessages registers a handler for inbound chat messages.
func (b *Bot) HandleMessages(handler dispatch.Handler) dispatch.RegistrationID {
	return b.registry.Register(dispatch.ExactFilter(events.CategoryChat, events.SubcategoryMessage), handler)
}

// Unhandle removes a registration.  Safe to call more than once.
func (b *Bot) Unhandle(id dispatch.RegistrationID) {
	b.registry.Unregister(id)
}

// Run blocks until Stop is called, the context is cancelled, or the poll loop
// gives up with a FatalError.
func (b *Bot) Run(ctx context.Context) error {
	return b.runner.Run(ctx)
}

// Stop asks the poll loop to halt after its current batch.
func (b *Bot) Stop() {
	b.runner.Stop()
}

func (b *Bot) State() poller.State {
	return b.runner.State()
}

package relay

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cchalm/duet/internal/ai"
)

// ExtractionFailureReply is sent when the attachment on the first message cannot be read
const ExtractionFailureReply = "Sorry, I couldn't read the PDF you uploaded."

var tracer = otel.Tracer("github.com/cchalm/duet/internal/relay")

// Responder produces a reply for a conversation. It never fails; failures are reported as reply text
type Responder interface {
	Generate(ctx context.Context, persona ai.Persona, task string, history ai.History) string
}

// Outbox delivers text to a chat channel
type Outbox interface {
	Send(ctx context.Context, channelID string, text string) error
}

// AttachmentFetcher downloads the bytes of an attachment
type AttachmentFetcher interface {
	Fetch(ctx context.Context, attachment Attachment) ([]byte, error)
}

// TextExtractor turns attachment bytes into text
type TextExtractor interface {
	Extract(b []byte) (string, error)
}

type IdentityConfig struct {
	Role       Role
	Persona    ai.Persona
	Responder  Responder
	Outbox     Outbox
	Fetcher    AttachmentFetcher
	Extractor  TextExtractor
	MaxReplies int // Zero means unbounded
	InboxSize  int
	Logger     zerolog.Logger
}

// Identity is one bot identity. Its state is only touched by the goroutine that processes its inbox
type Identity struct {
	cfg    IdentityConfig
	logger zerolog.Logger

	inbox     chan Event
	peerInbox chan<- Event
	accounts  Accounts

	state State
}

func NewIdentity(cfg IdentityConfig) (*Identity, error) {
	if !cfg.Role.Valid() {
		return nil, fmt.Errorf("unknown role %d", int(cfg.Role))
	}
	if cfg.Responder == nil || cfg.Outbox == nil {
		return nil, fmt.Errorf("%s identity requires a responder and an outbox", cfg.Role)
	}
	if cfg.Role.spec().seedsConversation && (cfg.Fetcher == nil || cfg.Extractor == nil) {
		return nil, fmt.Errorf("%s identity requires an attachment fetcher and extractor", cfg.Role)
	}
	if cfg.MaxReplies < 0 {
		return nil, fmt.Errorf("max replies must not be negative, got %d", cfg.MaxReplies)
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 1
	}

	return &Identity{
		cfg:    cfg,
		logger: cfg.Logger.With().Str("role", cfg.Role.String()).Logger(),
		inbox:  make(chan Event, cfg.InboxSize),
		state:  NewState(cfg.Role),
	}, nil
}

func (id *Identity) Role() Role {
	return id.cfg.Role
}

func (id *Identity) Persona() ai.Persona {
	return id.cfg.Persona
}

// bind sets the account ids to route by and the inbox of the peer identity
func (id *Identity) bind(accounts Accounts, peerInbox chan<- Event) {
	id.accounts = accounts
	id.peerInbox = peerInbox
}

// Deliver queues an event for processing, blocking while the inbox is full
func (id *Identity) Deliver(ctx context.Context, ev Event) error {
	select {
	case id.inbox <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the identity's current state. It must not be called while Run is active
func (id *Identity) State() State {
	return id.state
}

// Run processes queued events one at a time until ctx is cancelled, then returns the final state
func (id *Identity) Run(ctx context.Context) State {
	id.logger.Info().Msg("Identity loop started")
	for {
		select {
		case <-ctx.Done():
			id.logger.Info().Str("phase", id.state.Phase.String()).Int("turns", id.state.History.Len()).Msg("Identity loop stopped")
			return id.state
		case ev := <-id.inbox:
			id.Process(ctx, ev)
		}
	}
}

// Process handles a single event. Nothing escapes: failures are logged and end the handling of this event only
func (id *Identity) Process(ctx context.Context, ev Event) {
	ctx, span := tracer.Start(ctx, "relay.handle", trace.WithAttributes(
		attribute.String("relay.role", id.cfg.Role.String()),
		attribute.String("relay.event.kind", ev.Kind.String()),
		attribute.String("relay.event.id", ev.ID),
	))
	defer span.End()

	logger := id.logger.With().Str("event_id", ev.ID).Str("author_id", ev.AuthorID).Logger()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("unhandled error: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, "unhandled error")
			logger.Error().Err(err).Msg("Error while handling event")
		}
	}()

	decision := Decide(id.state, ev, id.accounts)
	span.SetAttributes(
		attribute.String("relay.decision", decision.Action.String()),
		attribute.String("relay.phase", id.state.Phase.String()),
	)

	switch decision.Action {
	case ActionIgnore:
		logger.Debug().Str("reason", decision.Reason).Msg("Ignoring event")
	case ActionHalt:
		id.state = id.state.halt()
		logger.Info().Msg("Received stop command, routing halted")
	case ActionAcceptSeed:
		id.state = id.state.begin(ev.Content, ai.HumanTurn(ev.Content))
		logger.Info().Str("task", ev.Content).Msg("Conversation seeded by peer")
	case ActionOpen:
		id.open(ctx, logger, ev)
	case ActionReply:
		id.state = id.state.incoming(ev.Content)
		logger.Info().Str("content", ev.Content).Msg("Message from peer")
		id.respond(ctx, logger, ev.ChannelID)
	}
}

// open starts the conversation from the human's first message
func (id *Identity) open(ctx context.Context, logger zerolog.Logger, ev Event) {
	documentText := ""
	if ev.Attachment != nil {
		text, err := id.readAttachment(ctx, *ev.Attachment)
		if err != nil {
			logger.Error().Err(err).Str("attachment", ev.Attachment.Name).Msg("Failed to read attachment")
			id.send(ctx, logger, ev.ChannelID, ExtractionFailureReply)
			return
		}
		documentText = text
	}

	id.state = id.state.begin(ev.Content, SeedTurns(documentText, ev.Content)...)
	logger.Info().Str("task", ev.Content).Int("document_chars", len(documentText)).Msg("User input received")

	id.crossSeed(ctx, logger, ev)
	id.respond(ctx, logger, ev.ChannelID)
}

func (id *Identity) readAttachment(ctx context.Context, attachment Attachment) (string, error) {
	b, err := id.cfg.Fetcher.Fetch(ctx, attachment)
	if err != nil {
		return "", fmt.Errorf("failed to fetch attachment: %w", err)
	}
	text, err := id.cfg.Extractor.Extract(b)
	if err != nil {
		return "", fmt.Errorf("failed to extract attachment text: %w", err)
	}
	return text, nil
}

// crossSeed hands the human's first message to the peer identity
func (id *Identity) crossSeed(ctx context.Context, logger zerolog.Logger, ev Event) {
	if id.peerInbox == nil {
		logger.Warn().Msg("No peer inbox bound, skipping cross-seed")
		return
	}
	seed := Event{
		ID:        ev.ID,
		Kind:      EventSeed,
		AuthorID:  ev.AuthorID,
		ChannelID: ev.ChannelID,
		Content:   ev.Content,
	}
	select {
	case id.peerInbox <- seed:
	case <-ctx.Done():
		logger.Warn().Err(ctx.Err()).Msg("Cross-seed abandoned")
	}
}

// respond generates a reply to the current history, records it and delivers it
func (id *Identity) respond(ctx context.Context, logger zerolog.Logger, channelID string) {
	reply := id.cfg.Responder.Generate(ctx, id.cfg.Persona, id.state.Task, id.state.History)
	id.state = id.state.reply(reply, id.cfg.MaxReplies)
	id.send(ctx, logger, channelID, reply)
	logger.Info().Int("replies", id.state.Replies).Msg("Responded")

	if id.state.Phase == PhaseHalted {
		logger.Info().Int("max_replies", id.cfg.MaxReplies).Msg("Reply limit reached, routing halted")
	}
}

func (id *Identity) send(ctx context.Context, logger zerolog.Logger, channelID string, text string) {
	if err := id.cfg.Outbox.Send(ctx, channelID, text); err != nil {
		logger.Error().Err(err).Str("channel_id", channelID).Msg("Failed to send message")
	}
}

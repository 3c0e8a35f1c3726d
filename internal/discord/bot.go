package discord

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/cchalm/duet/internal/relay"
)

// MaxMessageLength is the longest message Discord accepts, in characters
const MaxMessageLength = 2000

const ellipsis = "…"

// channelSender is the part of a discordgo session used to post messages
type channelSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Deliverer accepts events translated from the gateway
type Deliverer interface {
	Deliver(ctx context.Context, ev relay.Event) error
}

// Bot is one Discord bot account: a gateway session that feeds an identity and posts its replies
type Bot struct {
	name    string
	session *discordgo.Session
	sender  channelSender
	logger  zerolog.Logger
}

// New creates a bot for the given token. The gateway connection is not opened until Open is called
func New(name string, token string, logger zerolog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session for %s: %w", name, err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
	// Handlers run on the gateway goroutine so messages reach the identity in the order they arrived
	session.SyncEvents = true

	return &Bot{
		name:    name,
		session: session,
		sender:  session,
		logger:  logger.With().Str("component", "discord").Str("bot", name).Logger(),
	}, nil
}

// Open connects to the gateway and returns the account id the bot is logged in as
func (b *Bot) Open(ctx context.Context) (string, error) {
	if err := b.session.Open(); err != nil {
		return "", fmt.Errorf("failed to open discord session for %s: %w", b.name, err)
	}

	if b.session.State != nil && b.session.State.User != nil {
		b.logger.Info().Str("account_id", b.session.State.User.ID).Str("username", b.session.State.User.Username).Msg("Logged in")
		return b.session.State.User.ID, nil
	}

	user, err := b.session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to get discord user for %s: %w", b.name, err)
	}
	b.logger.Info().Str("account_id", user.ID).Str("username", user.Username).Msg("Logged in")
	return user.ID, nil
}

// Close disconnects from the gateway
func (b *Bot) Close() error {
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("failed to close discord session for %s: %w", b.name, err)
	}
	return nil
}

// Forward delivers every message the bot sees to d until ctx is cancelled. The returned function unregisters the
// handler
func (b *Bot) Forward(ctx context.Context, d Deliverer) func() {
	return b.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		ev, ok := ToEvent(m)
		if !ok {
			return
		}
		if err := d.Deliver(ctx, ev); err != nil {
			b.logger.Warn().Err(err).Str("message_id", ev.ID).Msg("Dropped incoming message")
		}
	})
}

// Send posts text to a channel, truncated to fit Discord's message limit
func (b *Bot) Send(ctx context.Context, channelID string, text string) error {
	if text == "" {
		return fmt.Errorf("refusing to send empty message to channel %s", channelID)
	}
	content := Truncate(text, MaxMessageLength)
	if len(content) != len(text) {
		b.logger.Warn().Int("chars", utf8.RuneCountInString(text)).Msg("Message truncated to fit limit")
	}

	_, err := b.sender.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return nil
}

// ToEvent translates a gateway message into a relay event. Only the first attachment is kept
func ToEvent(m *discordgo.MessageCreate) (relay.Event, bool) {
	if m == nil || m.Message == nil || m.Author == nil {
		return relay.Event{}, false
	}

	ev := relay.Event{
		ID:        m.ID,
		Kind:      relay.EventMessage,
		AuthorID:  m.Author.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
	}
	if len(m.Attachments) > 0 && m.Attachments[0] != nil {
		a := m.Attachments[0]
		ev.Attachment = &relay.Attachment{
			Name:        a.Filename,
			URL:         a.URL,
			ContentType: a.ContentType,
			Size:        a.Size,
		}
	}
	return ev, true
}

// Truncate shortens text to at most limit characters, ending with an ellipsis when anything was cut
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-1]) + ellipsis
}

package discord

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cchalm/duet/internal/relay"
)

type senderStub struct {
	channelID string
	content   string
	err       error
}

func (ss *senderStub) ChannelMessageSend(channelID string, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	ss.channelID = channelID
	ss.content = content
	if ss.err != nil {
		return nil, ss.err
	}
	return &discordgo.Message{ChannelID: channelID, Content: content}, nil
}

func testBot(sender channelSender) *Bot {
	return &Bot{name: "test", sender: sender, logger: zerolog.Nop()}
}

func TestToEvent(t *testing.T) {
	m := &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		Content:   "summarize this",
		Author:    &discordgo.User{ID: "u1"},
		Attachments: []*discordgo.MessageAttachment{
			{Filename: "a.pdf", URL: "https://cdn.example/a.pdf", ContentType: "application/pdf", Size: 10},
			{Filename: "b.pdf", URL: "https://cdn.example/b.pdf"},
		},
	}}

	ev, ok := ToEvent(m)
	require.True(t, ok)
	require.Equal(t, relay.Event{
		ID:        "m1",
		Kind:      relay.EventMessage,
		AuthorID:  "u1",
		ChannelID: "c1",
		Content:   "summarize this",
		Attachment: &relay.Attachment{
			Name:        "a.pdf",
			URL:         "https://cdn.example/a.pdf",
			ContentType: "application/pdf",
			Size:        10,
		},
	}, ev)
}

func TestToEvent_NoAttachment(t *testing.T) {
	ev, ok := ToEvent(&discordgo.MessageCreate{Message: &discordgo.Message{
		ID:      "m1",
		Content: "<STOP>",
		Author:  &discordgo.User{ID: "u1"},
	}})
	require.True(t, ok)
	require.Nil(t, ev.Attachment)
	require.True(t, ev.IsStop())
}

func TestToEvent_Incomplete(t *testing.T) {
	_, ok := ToEvent(nil)
	require.False(t, ok)
	_, ok = ToEvent(&discordgo.MessageCreate{})
	require.False(t, ok)
	_, ok = ToEvent(&discordgo.MessageCreate{Message: &discordgo.Message{ID: "m1"}})
	require.False(t, ok)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", Truncate("short", MaxMessageLength))

	exact := strings.Repeat("a", MaxMessageLength)
	require.Equal(t, exact, Truncate(exact, MaxMessageLength))

	long := strings.Repeat("é", MaxMessageLength+10)
	truncated := Truncate(long, MaxMessageLength)
	require.Equal(t, MaxMessageLength, utf8.RuneCountInString(truncated))
	require.True(t, strings.HasSuffix(truncated, ellipsis))
}

func TestTruncate_NonPositiveLimit(t *testing.T) {
	require.Equal(t, "", Truncate("hello", 0))
	require.Equal(t, "", Truncate("hello", -3))
	require.Equal(t, "", Truncate("", 0))
	require.Equal(t, ellipsis, Truncate("hello", 1))
}

func TestNew_DispatchesEventsInOrder(t *testing.T) {
	b, err := New("JJ", "token", zerolog.Nop())
	require.NoError(t, err)

	require.True(t, b.session.SyncEvents)
	require.Equal(t, discordgo.IntentsGuildMessages|discordgo.IntentsMessageContent, b.session.Identify.Intents)
}

func TestSend(t *testing.T) {
	sender := &senderStub{}
	b := testBot(sender)

	require.NoError(t, b.Send(context.Background(), "c1", "hello"))
	require.Equal(t, "c1", sender.channelID)
	require.Equal(t, "hello", sender.content)

	require.NoError(t, b.Send(context.Background(), "c1", strings.Repeat("x", 5000)))
	require.Equal(t, MaxMessageLength, utf8.RuneCountInString(sender.content))
}

func TestSend_Errors(t *testing.T) {
	sender := &senderStub{err: errors.New("missing access")}
	b := testBot(sender)

	err := b.Send(context.Background(), "c1", "hello")
	require.ErrorContains(t, err, "missing access")

	require.Error(t, b.Send(context.Background(), "c1", ""))
}

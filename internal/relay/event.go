package relay

import "strings"

// StopSentinel is the message prefix that halts routing
const StopSentinel = "<STOP>"

type EventKind int

const (
	// EventMessage is a message posted on the chat platform
	EventMessage EventKind = iota
	// EventSeed carries the human's first message from the lead to the follower. It never comes from the platform
	EventSeed
)

func (k EventKind) String() string {
	switch k {
	case EventMessage:
		return "message"
	case EventSeed:
		return "seed"
	default:
		return "unknown"
	}
}

// Attachment describes a file attached to a message. Only its location is known until it is fetched
type Attachment struct {
	Name        string
	URL         string
	ContentType string
	Size        int
}

// Event is one inbound unit of work for an identity
type Event struct {
	ID         string
	Kind       EventKind
	AuthorID   string
	ChannelID  string
	Content    string
	Attachment *Attachment // First attachment only; nil if none
}

// IsStop reports whether the event's content begins with the stop sentinel
func (e Event) IsStop() bool {
	return strings.HasPrefix(e.Content, StopSentinel)
}

// Package ai provides conversation state, prompt construction and response generation against the Anthropic API.
package ai

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
)

// TurnRole identifies who authored a turn, from the point of view of the model
type TurnRole string

const (
	TurnHuman     TurnRole = "human"
	TurnAssistant TurnRole = "assistant"
)

// Turn is one message-equivalent unit of a conversation. A turn with a single segment carries plain text content; a
// turn with several segments carries an ordered list of text blocks
type Turn struct {
	Role     TurnRole `json:"role"`
	Segments []string `json:"segments"`
}

// HumanTurn returns a human turn with the given segments
func HumanTurn(segments ...string) Turn {
	return Turn{Role: TurnHuman, Segments: segments}
}

// AssistantTurn returns an assistant turn with the given text
func AssistantTurn(text string) Turn {
	return Turn{Role: TurnAssistant, Segments: []string{text}}
}

// Text joins the turn's segments with newlines
func (t Turn) Text() string {
	return strings.Join(t.Segments, "\n")
}

// toParam converts the turn into an Anthropic message. Empty segments are dropped, since the API rejects empty text
// blocks. ok is false if nothing is left to send
func (t Turn) toParam() (param anthropic.MessageParam, ok bool) {
	blocks := []anthropic.ContentBlockParamUnion{}
	for _, segment := range t.Segments {
		if strings.TrimSpace(segment) == "" {
			continue
		}
		blocks = append(blocks, anthropic.NewTextBlock(segment))
	}
	if len(blocks) == 0 {
		return anthropic.MessageParam{}, false
	}

	if t.Role == TurnAssistant {
		return anthropic.NewAssistantMessage(blocks...), true
	}
	return anthropic.NewUserMessage(blocks...), true
}

// History is an append-only, ordered sequence of turns. Append never modifies memory visible through a previous
// History value, so a History can be handed to another goroutine and kept growing independently
type History struct {
	turns []Turn
}

// NewHistory returns a history holding copies of the given turns
func NewHistory(turns ...Turn) History {
	return History{turns: append([]Turn(nil), turns...)}
}

// Append returns a new history with the given turns added to the end
func (h History) Append(turns ...Turn) History {
	next := make([]Turn, 0, len(h.turns)+len(turns))
	next = append(next, h.turns...)
	next = append(next, turns...)
	return History{turns: next}
}

// Len returns the number of turns in the history
func (h History) Len() int {
	return len(h.turns)
}

// Empty reports whether no turn has been appended yet
func (h History) Empty() bool {
	return len(h.turns) == 0
}

// Turns returns a copy of the turns in conversation order
func (h History) Turns() []Turn {
	return append([]Turn(nil), h.turns...)
}

// Last returns the most recent turn, if any
func (h History) Last() (Turn, bool) {
	if len(h.turns) == 0 {
		return Turn{}, false
	}
	return h.turns[len(h.turns)-1], true
}

// MessageParams converts the history into the message list of an Anthropic request
func (h History) MessageParams() []anthropic.MessageParam {
	params := make([]anthropic.MessageParam, 0, len(h.turns))
	for _, turn := range h.turns {
		if param, ok := turn.toParam(); ok {
			params = append(params, param)
		}
	}
	return params
}

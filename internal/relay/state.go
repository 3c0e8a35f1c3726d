package relay

import "github.com/cchalm/duet/internal/ai"

// Phase is the routing lifecycle of one identity
type Phase int

const (
	PhaseAwaitingFirstMessage Phase = iota
	PhaseActive
	PhaseHalted
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaitingFirstMessage:
		return "awaiting_first_message"
	case PhaseActive:
		return "active"
	case PhaseHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// State is everything one identity knows about the conversation. It is owned by a single identity loop and only ever
// replaced, never shared
type State struct {
	Role    Role
	Phase   Phase
	History ai.History
	Task    string // The first human message of the run
	Replies int    // Assistant turns appended so far
}

func NewState(role Role) State {
	return State{Role: role, Phase: PhaseAwaitingFirstMessage}
}

// SeedTurns returns the turns the lead appends for the human's first message: the document text together with the
// message, followed by the message alone
func SeedTurns(documentText, content string) []ai.Turn {
	return []ai.Turn{
		ai.HumanTurn(documentText, content),
		ai.HumanTurn(content),
	}
}

// begin records the task and the opening turns and activates routing
func (s State) begin(task string, turns ...ai.Turn) State {
	s.Task = task
	s.History = s.History.Append(turns...)
	s.Phase = PhaseActive
	return s
}

// incoming records a message from the peer
func (s State) incoming(content string) State {
	s.History = s.History.Append(ai.HumanTurn(content))
	if s.Phase == PhaseAwaitingFirstMessage {
		s.Phase = PhaseActive
	}
	return s
}

// reply records a generated reply, halting once maxReplies is reached. Zero maxReplies means unbounded
func (s State) reply(text string, maxReplies int) State {
	s.History = s.History.Append(ai.AssistantTurn(text))
	s.Replies++
	if maxReplies > 0 && s.Replies >= maxReplies {
		s.Phase = PhaseHalted
	}
	return s
}

func (s State) halt() State {
	s.Phase = PhaseHalted
	return s
}

package relay

// Accounts holds the platform account ids an identity routes by
type Accounts struct {
	Self string
	Peer string
}

type Action int

const (
	ActionIgnore Action = iota
	// ActionHalt stops all further routing for the identity
	ActionHalt
	// ActionOpen starts the conversation from the human's first message
	ActionOpen
	// ActionAcceptSeed records the human's first message relayed by the lead
	ActionAcceptSeed
	// ActionReply answers a message from the peer
	ActionReply
)

func (a Action) String() string {
	switch a {
	case ActionIgnore:
		return "ignore"
	case ActionHalt:
		return "halt"
	case ActionOpen:
		return "open"
	case ActionAcceptSeed:
		return "accept_seed"
	case ActionReply:
		return "reply"
	default:
		return "unknown"
	}
}

// Decision is the outcome of routing one event
type Decision struct {
	Action Action
	Reason string
}

func ignore(reason string) Decision {
	return Decision{Action: ActionIgnore, Reason: reason}
}

// Decide chooses what an identity in state s does with ev. It has no side effects
func Decide(s State, ev Event, accounts Accounts) Decision {
	spec := s.Role.spec()

	if ev.Kind == EventSeed {
		switch {
		case spec.seedsConversation:
			return ignore("seed sent to the opening role")
		case s.Phase == PhaseHalted:
			return ignore("routing halted")
		case !s.History.Empty():
			return ignore("conversation already seeded")
		}
		return Decision{Action: ActionAcceptSeed, Reason: "first message relayed by peer"}
	}

	if accounts.Self != "" && ev.AuthorID == accounts.Self {
		return ignore("self-authored")
	}
	if ev.IsStop() {
		if s.Phase == PhaseHalted {
			return ignore("routing halted")
		}
		return Decision{Action: ActionHalt, Reason: "stop sentinel"}
	}
	if s.Phase == PhaseHalted {
		return ignore("routing halted")
	}

	if spec.seedsConversation && s.History.Empty() {
		return Decision{Action: ActionOpen, Reason: "first message of the run"}
	}
	if accounts.Peer != "" && ev.AuthorID == accounts.Peer {
		return Decision{Action: ActionReply, Reason: "message from peer"}
	}
	return ignore("author is neither peer nor self")
}

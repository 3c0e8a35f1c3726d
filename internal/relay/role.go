// Package relay routes chat events between two bot identities, each backed by its own model, so that the output of
// one becomes the input of the other.
package relay

import (
	"fmt"

	"github.com/cchalm/duet/internal/ai"
)

// Role is one of the two bot identities of a run
type Role int

const (
	// RoleLead answers the human's first message, then answers the follower
	RoleLead Role = iota
	// RoleFollower answers the lead
	RoleFollower
)

type roleSpec struct {
	name              string
	peer              Role
	seedsConversation bool // Whether the role opens the conversation from the first human message
}

var roles = map[Role]roleSpec{
	RoleLead: {
		name:              "lead",
		peer:              RoleFollower,
		seedsConversation: true,
	},
	RoleFollower: {
		name: "follower",
		peer: RoleLead,
	},
}

func (r Role) spec() roleSpec {
	spec, ok := roles[r]
	if !ok {
		panic(fmt.Sprintf("unknown role %d", int(r)))
	}
	return spec
}

func (r Role) String() string {
	if spec, ok := roles[r]; ok {
		return spec.name
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// Peer returns the role on the other end of the conversation
func (r Role) Peer() Role {
	return r.spec().peer
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	_, ok := roles[r]
	return ok
}

// Personas maps each role to the persona it adopts, given the display name of each role
func Personas(leadName, followerName string) map[Role]ai.Persona {
	names := map[Role]string{
		RoleLead:     leadName,
		RoleFollower: followerName,
	}
	personas := map[Role]ai.Persona{}
	for role := range roles {
		personas[role] = ai.Persona{
			Name:    names[role],
			Partner: names[role.Peer()],
		}
	}
	return personas
}

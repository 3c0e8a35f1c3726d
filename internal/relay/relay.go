package relay

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"
)

// Relay runs the two identities of a conversation side by side
type Relay struct {
	identities map[Role]*Identity
	logger     zerolog.Logger
}

// Outcome holds the final state of each identity once a run ends
type Outcome struct {
	Lead     State
	Follower State
}

func New(lead, follower *Identity, logger zerolog.Logger) (*Relay, error) {
	if lead == nil || lead.Role() != RoleLead {
		return nil, fmt.Errorf("first identity must have role %s", RoleLead)
	}
	if follower == nil || follower.Role() != RoleFollower {
		return nil, fmt.Errorf("second identity must have role %s", RoleFollower)
	}
	return &Relay{
		identities: map[Role]*Identity{
			RoleLead:     lead,
			RoleFollower: follower,
		},
		logger: logger.With().Str("component", "relay").Logger(),
	}, nil
}

// Identity returns the identity playing the given role
func (r *Relay) Identity(role Role) *Identity {
	return r.identities[role]
}

// Connect tells each identity its own platform account id and its peer's, and links each identity to its peer's
// inbox. It must be called before Run
func (r *Relay) Connect(accountIDs map[Role]string) error {
	for role := range roles {
		if accountIDs[role] == "" {
			return fmt.Errorf("missing account id for %s", role)
		}
	}
	if accountIDs[RoleLead] == accountIDs[RoleFollower] {
		return fmt.Errorf("both identities use account %s", accountIDs[RoleLead])
	}

	for role, identity := range r.identities {
		peer := role.Peer()
		identity.bind(Accounts{Self: accountIDs[role], Peer: accountIDs[peer]}, r.identities[peer].inbox)
		r.logger.Info().Str("role", role.String()).Str("account_id", accountIDs[role]).Msg("Identity connected")
	}
	return nil
}

// Run processes both identities' inboxes concurrently until ctx is cancelled
func (r *Relay) Run(ctx context.Context) (Outcome, error) {
	var outcome Outcome

	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		outcome.Lead = r.identities[RoleLead].Run(ctx)
		return nil
	})
	p.Go(func(ctx context.Context) error {
		outcome.Follower = r.identities[RoleFollower].Run(ctx)
		return nil
	})

	err := p.Wait()
	r.logger.Info().
		Int("lead_turns", outcome.Lead.History.Len()).
		Int("follower_turns", outcome.Follower.History.Len()).
		Msg("Relay stopped")
	return outcome, err
}

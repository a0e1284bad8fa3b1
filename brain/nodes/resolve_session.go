package brainnode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	continuityx "github.com/aryanranjan/aria/brain/continuity"
	contractx "github.com/aryanranjan/aria/brain/contract"
)

// ResolveSession loads or creates the session for this identity. When the
// store is unreachable the request degrades to single-turn mode instead of
// failing: the user still gets a reply, just a less personalized one.
func ResolveSession(ctx context.Context, in *GraphState, manager *continuityx.Manager) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Degraded {
		return in, nil
	}

	s, err := manager.Resolve(ctx, in.Identity, in.Channel)
	if err != nil {
		if errors.Is(err, contractx.ErrContinuityUnavailable) {
			log.Warn().Err(err).Str("identity", in.Identity).Msg("continuity unavailable, degrading to single-turn mode")
			in.Degraded = true
			return in, nil
		}
		return nil, err
	}

	in.Session = s
	return in, nil
}

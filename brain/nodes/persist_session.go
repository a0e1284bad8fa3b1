package brainnode

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	continuityx "github.com/aryanranjan/aria/brain/continuity"
	contractx "github.com/aryanranjan/aria/brain/contract"
	sessionx "github.com/aryanranjan/aria/brain/session"
)

// PersistSession records both turns of this exchange and writes the session
// back, fenced on the lease token held since pipeline start. The reply has
// already been validated; a failing write degrades the next request, not this
// reply. A lost lease means a successor already owns the session, so this
// run's write is dropped rather than clobbering the successor's state.
func PersistSession(ctx context.Context, in *GraphState, manager *continuityx.Manager) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Degraded || in.Session == nil {
		return in, nil
	}

	manager.RecordTurn(in.Session, sessionx.RoleUser, in.Message, in.Channel)
	manager.RecordTurn(in.Session, sessionx.RoleAssistant, in.Reply, in.Channel)

	if err := manager.Persist(ctx, in.Session, in.LeaseToken); err != nil {
		if errors.Is(err, sessionx.ErrLeaseLost) {
			log.Error().Str("identity", in.Identity).Msg("lease expired before persist, dropping session write")
		} else {
			log.Error().Err(err).Str("identity", in.Identity).Msg("session persist failed")
		}
	}
	return in, nil
}

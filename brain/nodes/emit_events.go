package brainnode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/aryanranjan/aria/brain/contract"
	sessionx "github.com/aryanranjan/aria/brain/session"
)

// EmitEvents appends this exchange's events to the conversation log.
// Appends are best-effort and detached from the request context so a slow or
// failing log never touches the user-visible reply.
func EmitEvents(ctx context.Context, in *GraphState, convlog contractx.ConversationLog) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if convlog == nil {
		return in, nil
	}

	events := []contractx.Event{
		{
			Type:      contractx.EventTurnRecorded,
			UserID:    in.Identity,
			Role:      sessionx.RoleUser,
			Content:   in.Message,
			Channel:   in.Channel,
			Timestamp: in.Now,
		},
		{
			Type:      contractx.EventTurnRecorded,
			UserID:    in.Identity,
			Role:      sessionx.RoleAssistant,
			Content:   in.Reply,
			Channel:   in.Channel,
			Timestamp: in.Now,
		},
	}
	if in.GuardrailTripped {
		// Policy events are logged distinctly from upstream errors; a trip
		// means model drift that needs review.
		events = append(events, contractx.Event{
			Type:      contractx.EventGuardrailTripped,
			UserID:    in.Identity,
			Channel:   in.Channel,
			Timestamp: in.Now,
		})
	}

	detached := context.WithoutCancel(ctx)
	go func() {
		appendCtx, cancel := context.WithTimeout(detached, 10*time.Second)
		defer cancel()
		for _, event := range events {
			if err := convlog.Append(appendCtx, event); err != nil {
				log.Warn().Err(err).Str("identity", event.UserID).Str("type", string(event.Type)).Msg("conversation log append failed")
			}
		}
	}()

	return in, nil
}

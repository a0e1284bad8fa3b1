package brainnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/aryanranjan/aria/brain/contract"
)

// ApologyFallback is returned when the generator fails twice. The user is
// never shown a raw upstream error and never silently dropped.
const ApologyFallback = "I apologize, but I'm having a moment. Could you please try again?"

// GenerateReply calls the gateway with the assembled context, retrying once
// with the same context on timeout or upstream failure before falling back.
func GenerateReply(ctx context.Context, in *GraphState, generator contractx.Generator) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply, err := generator.Generate(ctx, in.Prompt)
	if err != nil {
		log.Warn().Err(err).Str("identity", in.Identity).Msg("generation failed, retrying once")
		reply, err = generator.Generate(ctx, in.Prompt)
	}
	if err != nil {
		log.Error().Err(err).Str("identity", in.Identity).Msg("generation retry exhausted, using apology fallback")
		in.Reply = ApologyFallback
		return in, nil
	}

	in.Reply = reply
	return in, nil
}

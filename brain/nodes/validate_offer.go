package brainnode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/aryanranjan/aria/brain/contract"
	guardrailx "github.com/aryanranjan/aria/brain/guardrail"
	offerx "github.com/aryanranjan/aria/brain/offer"
)

// RefusalFallback replaces a reply that still violates policy after one
// corrective regeneration.
const RefusalFallback = "I've already applied the best available offers. I won't be able to reduce it further, but I can help you find options that fit your budget."

const correctiveInstruction = "\n\n[CORRECTION: Your previous draft violated pricing policy. Rewrite the reply with NO discount above the permitted ceiling and NO forbidden free items. If the line is held, offer no further discount at all.]"

// ValidateOffer is the mandatory second guardrail consultation: the generator
// is non-deterministic and untrusted, so its output is scanned and checked
// before release. One corrective regeneration is attempted; after that the
// canned compliant refusal ships instead.
func ValidateOffer(ctx context.Context, in *GraphState, generator contractx.Generator) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	state := guardrailState(in)
	proposed := offerx.Scan(in.Reply)
	if guardrailx.EvaluateOffer(state, proposed) == guardrailx.DecisionAllow {
		return in, nil
	}

	in.GuardrailTripped = true
	log.Warn().
		Str("identity", in.Identity).
		Int("proposed_percent", proposed.DiscountPercent).
		Strs("free_items", proposed.FreeItems).
		Msg("guardrail violation in generated reply, regenerating")

	corrective := in.Prompt
	corrective.System += correctiveInstruction

	reply, err := generator.Generate(ctx, corrective)
	if err != nil {
		in.Reply = RefusalFallback
		return in, nil
	}
	if guardrailx.EvaluateOffer(state, offerx.Scan(reply)) != guardrailx.DecisionAllow {
		log.Warn().Str("identity", in.Identity).Msg("corrective regeneration still violates policy, using refusal fallback")
		in.Reply = RefusalFallback
		return in, nil
	}

	in.Reply = reply
	return in, nil
}

func guardrailState(in *GraphState) guardrailx.State {
	if in.Session != nil {
		return in.Session.Guardrail
	}
	// Degraded mode validates against a fresh state, held when the user was
	// asking for a discount this turn.
	state := guardrailx.NewState()
	state.HeldLine = in.Directive == guardrailx.DirectiveHoldLine
	return state
}

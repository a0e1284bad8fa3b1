package brainnode

import (
	"fmt"

	contractx "github.com/aryanranjan/aria/brain/contract"
	guardrailx "github.com/aryanranjan/aria/brain/guardrail"
)

// PrecheckGuardrail consults the engine before prompt assembly so the
// directive lands in the context the generator sees. This is the first of the
// two mandatory guardrail consultations per turn.
func PrecheckGuardrail(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Directive = guardrailx.DirectiveAllowNegotiate

	if in.Session == nil {
		// Degraded mode has no attempt history to consult; a discount request
		// is answered without escalation room so the ceiling still holds.
		if in.Intent == contractx.IntentDiscountRequest {
			in.Directive = guardrailx.DirectiveHoldLine
		}
		return in, nil
	}

	if in.Intent == contractx.IntentDiscountRequest {
		state, directive := guardrailx.OnDiscountRequest(in.Session.Guardrail)
		in.Session.Guardrail = state
		in.Directive = directive
		return in, nil
	}

	// held_line is permanent for the session, whatever this turn asks.
	if in.Session.Guardrail.HeldLine {
		in.Directive = guardrailx.DirectiveHoldLine
	}
	return in, nil
}

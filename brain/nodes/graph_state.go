package brainnode

import (
	"errors"
	"strings"
	"time"

	contractx "github.com/aryanranjan/aria/brain/contract"
	guardrailx "github.com/aryanranjan/aria/brain/guardrail"
	sessionx "github.com/aryanranjan/aria/brain/session"
)

var ErrInvalidIdentity = errors.New("user id is empty")

const defaultChannel = "web"

type GraphInput struct {
	Inbound contractx.Inbound

	// LeaseToken is the per-identity lease held for this run; persistence is
	// fenced on it. Empty in degraded mode.
	LeaseToken string

	// Degraded is set when the session store was unreachable before the
	// pipeline started (lease acquisition failed with continuity loss).
	Degraded bool
}

type GraphOutput struct {
	Reply contractx.Outbound
}

type GraphState struct {
	Identity   string
	Message    string
	Channel    string
	Now        time.Time
	LeaseToken string

	// Degraded means single-turn, no-memory mode: no session is loaded or
	// persisted, yet replies remain guardrail-safe.
	Degraded bool
	Session  *sessionx.Session

	Intent      contractx.Intent
	Directive   guardrailx.Directive
	WorkerNotes []string
	Prompt      contractx.PromptContext

	Reply            string
	GuardrailTripped bool
}

// ValidateRequest normalizes the inbound message. An empty or whitespace-only
// message is allowed and flows through as neutral intent.
func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	identity := strings.TrimSpace(in.Inbound.UserID)
	if identity == "" {
		return nil, ErrInvalidIdentity
	}

	channel := strings.TrimSpace(in.Inbound.Channel)
	if channel == "" {
		channel = defaultChannel
	}

	return &GraphState{
		Identity:   identity,
		Message:    strings.TrimSpace(in.Inbound.Message),
		Channel:    channel,
		Now:        nowFn().UTC(),
		LeaseToken: in.LeaseToken,
		Degraded:   in.Degraded,
	}, nil
}

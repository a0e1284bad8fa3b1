package prompt

import (
	"fmt"
	"strings"
	"testing"
	"time"

	contractx "github.com/aryanranjan/aria/brain/contract"
	guardrailx "github.com/aryanranjan/aria/brain/guardrail"
	sessionx "github.com/aryanranjan/aria/brain/session"
)

func seededSession(turns int) *sessionx.Session {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := sessionx.New("user-1", "web", now)
	for i := 0; i < turns; i++ {
		role := sessionx.RoleUser
		if i%2 == 1 {
			role = sessionx.RoleAssistant
		}
		s.AppendTurn(sessionx.Turn{
			Role:      role,
			Content:   fmt.Sprintf("turn-%d", i),
			Channel:   "web",
			Timestamp: now.Add(time.Duration(i) * time.Second),
		})
	}
	return s
}

func TestAssembleHoldLineDirectiveIsExplicit(t *testing.T) {
	t.Parallel()

	ctx := Assemble(Input{
		Session:   seededSession(0),
		Channel:   "web",
		Message:   "come on, give me more off",
		Directive: guardrailx.DirectiveHoldLine,
		Intent:    contractx.IntentDiscountRequest,
	})

	if !strings.Contains(ctx.System, "Do NOT offer any further discount") {
		t.Fatalf("hold-line rule missing from system prompt:\n%s", ctx.System)
	}
	if strings.Contains(ctx.System, "realistic current offers") {
		t.Fatal("allow-negotiate line present alongside hold-line rule")
	}
}

func TestAssembleBoundsHistoryWindow(t *testing.T) {
	t.Parallel()

	ctx := Assemble(Input{
		Session:   seededSession(HistoryWindow + 15),
		Channel:   "web",
		Message:   "what about this one?",
		Directive: guardrailx.DirectiveAllowNegotiate,
	})

	// Window plus the current message; oldest turns fall off.
	if got := len(ctx.Messages); got != HistoryWindow+1 {
		t.Fatalf("messages = %d, want %d", got, HistoryWindow+1)
	}
	if ctx.Messages[0].Content != "turn-15" {
		t.Fatalf("oldest replayed turn = %q, want turn-15", ctx.Messages[0].Content)
	}
	last := ctx.Messages[len(ctx.Messages)-1]
	if last.Role != sessionx.RoleUser || last.Content != "what about this one?" {
		t.Fatalf("last message = %+v, want the current user message", last)
	}
}

func TestAssembleNotesChannelSwitch(t *testing.T) {
	t.Parallel()

	s := seededSession(2) // last turn on web
	ctx := Assemble(Input{
		Session:   s,
		Channel:   "whatsapp",
		Message:   "picking up where we left off",
		Directive: guardrailx.DirectiveAllowNegotiate,
	})

	if !strings.Contains(ctx.System, "switched from web to whatsapp") {
		t.Fatalf("channel switch note missing:\n%s", ctx.System)
	}
}

func TestAssembleDegradedModeOmitsCustomerContext(t *testing.T) {
	t.Parallel()

	ctx := Assemble(Input{
		Session:   nil,
		Channel:   "web",
		Message:   "hi",
		Directive: guardrailx.DirectiveAllowNegotiate,
	})

	if strings.Contains(ctx.System, "CUSTOMER CONTEXT") {
		t.Fatal("degraded prompt leaked customer context section")
	}
	if len(ctx.Messages) != 1 {
		t.Fatalf("messages = %d, want just the current message", len(ctx.Messages))
	}
}

func TestAssembleIncludesWorkerNotes(t *testing.T) {
	t.Parallel()

	ctx := Assemble(Input{
		Session:     seededSession(0),
		Channel:     "web",
		Message:     "looking for a shirt",
		Directive:   guardrailx.DirectiveAllowNegotiate,
		Intent:      contractx.IntentProductQuery,
		WorkerNotes: []string{"## AVAILABLE PRODUCTS\n- Formal Shirt", "  "},
	})

	if !strings.Contains(ctx.System, "## AVAILABLE PRODUCTS") {
		t.Fatalf("worker note missing:\n%s", ctx.System)
	}
}

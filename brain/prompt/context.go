package prompt

import (
	"fmt"
	"strings"

	contractx "github.com/aryanranjan/aria/brain/contract"
	guardrailx "github.com/aryanranjan/aria/brain/guardrail"
	sessionx "github.com/aryanranjan/aria/brain/session"
)

// HistoryWindow bounds how many recent turns are replayed to the generator.
const HistoryWindow = 10

// Input carries everything prompt assembly needs for one request.
type Input struct {
	Session     *sessionx.Session // nil in degraded single-turn mode
	Channel     string
	Message     string
	Directive   guardrailx.Directive
	Intent      contractx.Intent
	WorkerNotes []string
}

// Assemble builds the bounded, policy-constrained generator input: fixed
// policy preamble, the hard negotiation directive, customer context, a window
// of recent turns oldest-first, and the current message.
func Assemble(in Input) contractx.PromptContext {
	var sb strings.Builder
	sb.WriteString(PolicyPreamble())
	sb.WriteString("\n\n## NEGOTIATION STATE\n")

	if in.Session != nil {
		fmt.Fprintf(&sb, "- Discount requests this session: %d (max discount: %d%%)\n",
			in.Session.Guardrail.DiscountAttempts, in.Session.Guardrail.MaxDiscountPercent)
	}
	if in.Directive == guardrailx.DirectiveHoldLine {
		sb.WriteString("- HARD RULE: the line is held. Do NOT offer any further discount, of any size, in this reply. Redirect to options within the customer's budget.\n")
	} else {
		sb.WriteString("- You may mention realistic current offers within the ceiling.\n")
	}
	if in.Intent == contractx.IntentAbusive {
		sb.WriteString("- The customer's last message was rude. Respond once, calmly, and ask to keep things respectful.\n")
	}

	if in.Session != nil {
		sb.WriteString(customerContext(in.Session, in.Channel))
	}

	for _, note := range in.WorkerNotes {
		if strings.TrimSpace(note) == "" {
			continue
		}
		sb.WriteString("\n")
		sb.WriteString(strings.TrimSpace(note))
		sb.WriteString("\n")
	}

	if note := channelSwitchNote(in.Session, in.Channel); note != "" {
		sb.WriteString(note)
	}

	ctx := contractx.PromptContext{System: sb.String()}
	if in.Session != nil {
		for _, turn := range in.Session.RecentHistory(HistoryWindow) {
			ctx.Messages = append(ctx.Messages, contractx.Message{
				Role:    turn.Role,
				Content: turn.Content,
			})
		}
	}
	ctx.Messages = append(ctx.Messages, contractx.Message{
		Role:    sessionx.RoleUser,
		Content: in.Message,
	})
	return ctx
}

func customerContext(s *sessionx.Session, channel string) string {
	var sb strings.Builder
	sb.WriteString("\n## CUSTOMER CONTEXT\n")
	fmt.Fprintf(&sb, "- Current Channel: %s\n", channel)
	fmt.Fprintf(&sb, "- Channels Used: %s\n", strings.Join(s.ChannelsUsed, ", "))
	if s.ChannelSwitchCount > 0 {
		fmt.Fprintf(&sb, "- Channel Switches: %d (seamless experience!)\n", s.ChannelSwitchCount)
	}
	if s.StyleDNAFlag {
		sb.WriteString("- Style DNA analysis completed: tailor color suggestions to their saved profile.\n")
	}
	if count := s.CartCount(); count > 0 {
		fmt.Fprintf(&sb, "- Items in cart: %d\n", count)
	}
	return sb.String()
}

// channelSwitchNote asks the model to acknowledge a just-happened switch, the
// signature moment of cross-channel continuity.
func channelSwitchNote(s *sessionx.Session, channel string) string {
	if s == nil || len(s.History) == 0 {
		return ""
	}
	last := s.History[len(s.History)-1]
	if last.Channel == "" || last.Channel == channel {
		return ""
	}
	return fmt.Sprintf("\n[Note: Customer just switched from %s to %s. Acknowledge this seamless transition briefly.]\n", last.Channel, channel)
}

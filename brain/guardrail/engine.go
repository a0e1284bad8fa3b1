package guardrail

import "strings"

// State is the per-session negotiation tracker embedded in a Session.
// HeldLine is monotonic: once set it never reverts within the session,
// regardless of what the generator produces afterwards.
type State struct {
	DiscountAttempts   int  `json:"discount_attempts"`
	MaxDiscountPercent int  `json:"max_discount_percent"`
	HeldLine           bool `json:"held_line"`
}

const (
	// DefaultMaxDiscountPercent is the business-defined discount ceiling.
	DefaultMaxDiscountPercent = 30

	// holdLineThreshold is the number of discount requests tolerated before
	// the line is held for the rest of the session.
	holdLineThreshold = 2
)

// forbiddenGiftCategories may never be offered as free items. Matching is
// case-insensitive on the singular stem.
var forbiddenGiftCategories = map[string]bool{
	"jacket": true,
	"shoe":   true,
	"outfit": true,
}

type Directive string

const (
	DirectiveAllowNegotiate Directive = "allow_negotiate"
	DirectiveHoldLine       Directive = "hold_line"
)

type Decision string

const (
	DecisionAllow  Decision = "allow"
	DecisionReject Decision = "reject"
)

// NewState returns the initial guardrail state for a fresh session.
func NewState() State {
	return State{
		MaxDiscountPercent: DefaultMaxDiscountPercent,
	}
}

// Normalize repairs a state decoded from storage: a missing ceiling is
// restored, a negative attempt count is clamped, and the hold flag is
// re-asserted once the threshold is reached. Shapes Normalize cannot repair
// still fail Valid and are treated as fatal by the caller.
func (s State) Normalize() State {
	if s.MaxDiscountPercent <= 0 {
		s.MaxDiscountPercent = DefaultMaxDiscountPercent
	}
	if s.DiscountAttempts < 0 {
		s.DiscountAttempts = 0
	}
	if s.DiscountAttempts >= holdLineThreshold {
		s.HeldLine = true
	}
	return s
}

// Valid reports whether a stored state decoded into a usable shape.
func (s State) Valid() bool {
	if s.DiscountAttempts < 0 {
		return false
	}
	if s.MaxDiscountPercent < 0 || s.MaxDiscountPercent > 100 {
		return false
	}
	// HeldLine must never be false once the threshold is reached.
	if s.DiscountAttempts >= holdLineThreshold && !s.HeldLine {
		return false
	}
	return true
}

// OnDiscountRequest records one more discount request and returns the updated
// state plus the directive the prompt layer must honor.
func OnDiscountRequest(s State) (State, Directive) {
	s.DiscountAttempts++
	if s.DiscountAttempts >= holdLineThreshold {
		s.HeldLine = true
	}
	if s.HeldLine {
		return s, DirectiveHoldLine
	}
	return s, DirectiveAllowNegotiate
}

// Offer is what the post-validation layer extracted from a generated reply.
type Offer struct {
	DiscountPercent int
	FreeItems       []string
}

// EvaluateOffer decides whether a proposed offer may reach the user. It is
// consulted after generation as well as before prompt assembly, because the
// generator is untrusted for policy compliance.
func EvaluateOffer(s State, offer Offer) Decision {
	if offer.DiscountPercent > s.MaxDiscountPercent {
		return DecisionReject
	}
	if s.HeldLine && offer.DiscountPercent > 0 {
		return DecisionReject
	}
	for _, item := range offer.FreeItems {
		if ForbiddenGift(item) {
			return DecisionReject
		}
	}
	return DecisionAllow
}

// ForbiddenGift reports whether the named item falls in a category that may
// never be given away for free.
func ForbiddenGift(item string) bool {
	normalized := strings.ToLower(strings.TrimSpace(item))
	normalized = strings.TrimSuffix(normalized, "s")
	return forbiddenGiftCategories[normalized]
}

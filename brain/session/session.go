package session

import (
	"errors"
	"time"

	guardrailx "github.com/aryanranjan/aria/brain/guardrail"
)

// Session is the persistent source-of-truth for one shopper's continuous
// journey across channels. One Identity maps to exactly one Session; the
// store's TTL is the only thing that ends a session.
type Session struct {
	// Identity
	ID string `json:"id"`

	// Cross-channel continuity
	ChannelsUsed       []string `json:"channels_used"`
	ChannelSwitchCount int      `json:"channel_switch_count"`
	LastActiveChannel  string   `json:"last_active_channel"`

	// Sliding context window, oldest first. Bounded by HistoryCap.
	History []Turn `json:"history,omitempty"`

	// Commerce state
	Cart         map[string]int `json:"cart,omitempty"` // product id -> quantity
	StyleDNAFlag bool           `json:"style_dna_flag"`

	Guardrail guardrailx.State `json:"guardrail_state"`

	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// Turn is one message in the conversation. Immutable once appended.
type Turn struct {
	Role      string    `json:"role"` // "user" | "assistant"
	Content   string    `json:"content"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	// HistoryCap bounds the sliding context window; oldest turns are evicted
	// first once it is reached.
	HistoryCap = 50
)

var (
	ErrNilSession      = errors.New("session is nil")
	ErrInvalidIdentity = errors.New("identity is empty")
	ErrCorruptState    = errors.New("session state decoded into an invalid shape")
)

// New creates a fresh session for a previously-unseen identity.
func New(identity, channel string, now time.Time) *Session {
	now = now.UTC()
	return &Session{
		ID:                identity,
		ChannelsUsed:      []string{channel},
		LastActiveChannel: channel,
		Cart:              make(map[string]int, 4),
		Guardrail:         guardrailx.NewState(),
		CreatedAt:         now,
		LastActiveAt:      now,
	}
}

/* ----------------------------- Turn helpers ----------------------------- */

// AppendTurn appends a turn, evicting the oldest entries once HistoryCap is
// reached, and updates the channel bookkeeping: ChannelsUsed grows as a set,
// ChannelSwitchCount increments exactly when the turn's channel differs from
// the previous turn's channel.
func (s *Session) AppendTurn(t Turn) {
	if s == nil {
		return
	}

	if s.LastActiveChannel != "" && t.Channel != s.LastActiveChannel {
		s.ChannelSwitchCount++
	}
	if !s.HasUsedChannel(t.Channel) {
		s.ChannelsUsed = append(s.ChannelsUsed, t.Channel)
	}

	s.History = append(s.History, t)
	if len(s.History) > HistoryCap {
		s.History = s.History[len(s.History)-HistoryCap:]
	}

	s.LastActiveChannel = t.Channel
	s.LastActiveAt = t.Timestamp.UTC()
}

// RecentHistory returns the last n turns, oldest first.
func (s *Session) RecentHistory(n int) []Turn {
	if s == nil || n <= 0 || len(s.History) == 0 {
		return nil
	}
	if len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}

func (s *Session) HasUsedChannel(channel string) bool {
	for _, c := range s.ChannelsUsed {
		if c == channel {
			return true
		}
	}
	return false
}

/* ----------------------------- Cart helpers ----------------------------- */

// AddToCart increments the quantity for a product. Quantities never go
// negative; a non-positive qty is ignored.
func (s *Session) AddToCart(productID string, qty int) {
	if s == nil || productID == "" || qty <= 0 {
		return
	}
	if s.Cart == nil {
		s.Cart = make(map[string]int, 4)
	}
	s.Cart[productID] += qty
}

func (s *Session) ClearCart() {
	if s == nil {
		return
	}
	s.Cart = make(map[string]int, 4)
}

func (s *Session) CartCount() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, qty := range s.Cart {
		total += qty
	}
	return total
}

// MarkStyleDNA records that a style/color analysis completed. Set once, never
// cleared within a session.
func (s *Session) MarkStyleDNA() {
	if s == nil {
		return
	}
	s.StyleDNAFlag = true
}

/* --------------------------- State validation --------------------------- */

// Validate reports whether a session decoded from storage is usable. Guardrail
// corruption is the only fatal condition; the caller re-initializes the
// session in that case.
func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if s.ID == "" {
		return ErrInvalidIdentity
	}
	if !s.Guardrail.Valid() {
		return ErrCorruptState
	}
	for _, qty := range s.Cart {
		if qty < 0 {
			return ErrCorruptState
		}
	}
	return nil
}

// EnsureCart makes sure s.Cart is initialized after decoding.
func (s *Session) EnsureCart() {
	if s.Cart == nil {
		s.Cart = make(map[string]int, 4)
	}
}

package contract

import "time"

// Intent is the coarse classification of one inbound message. It is derived
// from deterministic pattern rules so that guardrail enforcement stays
// auditable.
type Intent string

const (
	IntentNeutral         Intent = "neutral"
	IntentDiscountRequest Intent = "discount_request"
	IntentGiftRequest     Intent = "gift_request"
	IntentAbusive         Intent = "abusive"
	IntentProductQuery    Intent = "product_query"
)

// Inbound is the channel-agnostic request consumed from transport adapters.
type Inbound struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
	Channel string `json:"channel"`
}

// Outbound is the reply returned to transport adapters.
type Outbound struct {
	Response    string      `json:"response"`
	SessionInfo SessionInfo `json:"session_info"`
}

// SessionInfo is the public subset of session state exposed to callers.
type SessionInfo struct {
	ChannelsUsed    []string `json:"channels_used"`
	ChannelSwitches int      `json:"channel_switches"`
	CartCount       int      `json:"cart_count"`
	HasStyleDNA     bool     `json:"has_style_dna"`
}

type EventType string

const (
	EventTurnRecorded      EventType = "turn_recorded"
	EventPurchase          EventType = "purchase"
	EventStyleDNACompleted EventType = "style_dna_completed"
	EventGuardrailTripped  EventType = "guardrail_tripped"
)

// Event is one business event appended to the conversation log.
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role,omitempty"`
	Content   string    `json:"content,omitempty"`
	Channel   string    `json:"channel,omitempty"`
	Amount    int       `json:"amount,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Receipt summarizes one completed checkout.
type Receipt struct {
	Items       int         `json:"items"`
	Amount      int         `json:"amount"`
	SessionInfo SessionInfo `json:"session_info"`
}

// Product is a read-only catalog entry.
type Product struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Brand string `json:"brand"`
	Price int    `json:"price"`
}

// Message is one chat message handed to the generator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptContext is the fully assembled, policy-constrained generator input.
type PromptContext struct {
	System   string    `json:"system"`
	Messages []Message `json:"messages"`
}

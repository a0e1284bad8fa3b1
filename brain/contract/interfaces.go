package contract

import "context"

// Generator is the stateless request/response boundary to the external
// text-generation service. Implementations return ErrUpstreamTimeout or
// ErrUpstreamError; they make no policy guarantees about the text.
type Generator interface {
	Generate(ctx context.Context, prompt PromptContext) (string, error)
}

// ConversationLog is the append-only durable store of turns and business
// events. Appends are best-effort and must never block the reply path.
type ConversationLog interface {
	Append(ctx context.Context, event Event) error
}

// Catalog is the read-only product lookup.
type Catalog interface {
	Lookup(ctx context.Context, productID string) (Product, error)
}

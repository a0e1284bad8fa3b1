package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/aryanranjan/aria/brain/contract"
	brainnode "github.com/aryanranjan/aria/brain/nodes"
	sessionx "github.com/aryanranjan/aria/brain/session"
)

// opBudget bounds the non-chat session writes. They hold the same
// per-identity lease as the chat pipeline, so cart and style-DNA updates
// never interleave with a message mid-persist.
const opBudget = 15 * time.Second

// CompleteStyleDNA records that a style analysis finished for this identity.
// The analysis itself happens outside the core; this is the set-path that
// flips the session flag and logs the completion event.
func (o *Orchestrator) CompleteStyleDNA(ctx context.Context, userID string) (contractx.SessionInfo, error) {
	s, err := o.withSession(ctx, userID, nil, func(s *sessionx.Session) {
		s.MarkStyleDNA()
	})
	if err != nil {
		return contractx.SessionInfo{}, err
	}

	o.emitEvent(ctx, contractx.Event{
		Type:      contractx.EventStyleDNACompleted,
		UserID:    s.ID,
		Timestamp: o.now().UTC(),
	})
	return snapshot(s), nil
}

// AddToCart validates the product against the catalog, then adds it to the
// identity's cart.
func (o *Orchestrator) AddToCart(ctx context.Context, userID, productID string, qty int) (contractx.SessionInfo, error) {
	if o.catalog == nil {
		return contractx.SessionInfo{}, fmt.Errorf("%w: catalog is not configured", contractx.ErrValidation)
	}
	if qty <= 0 {
		qty = 1
	}

	product, err := o.catalog.Lookup(ctx, strings.TrimSpace(productID))
	if err != nil {
		return contractx.SessionInfo{}, err
	}

	s, err := o.withSession(ctx, userID, nil, func(s *sessionx.Session) {
		s.AddToCart(product.ID, qty)
	})
	if err != nil {
		return contractx.SessionInfo{}, err
	}
	return snapshot(s), nil
}

// Checkout empties the cart into a purchase event priced from the catalog.
func (o *Orchestrator) Checkout(ctx context.Context, userID string) (contractx.Receipt, error) {
	var receipt contractx.Receipt

	s, err := o.withSession(ctx, userID, func(ctx context.Context, s *sessionx.Session) error {
		if s.CartCount() == 0 {
			return fmt.Errorf("%w: cart is empty", contractx.ErrValidation)
		}
		for id, qty := range s.Cart {
			receipt.Items += qty
			if o.catalog == nil {
				continue
			}
			product, err := o.catalog.Lookup(ctx, id)
			if err != nil {
				log.Warn().Str("product_id", id).Msg("cart item missing from catalog, priced as zero")
				continue
			}
			receipt.Amount += product.Price * qty
		}
		return nil
	}, func(s *sessionx.Session) {
		s.ClearCart()
	})
	if err != nil {
		return contractx.Receipt{}, err
	}

	o.emitEvent(ctx, contractx.Event{
		Type:      contractx.EventPurchase,
		UserID:    s.ID,
		Amount:    receipt.Amount,
		Timestamp: o.now().UTC(),
	})
	receipt.SessionInfo = snapshot(s)
	return receipt, nil
}

// withSession runs one guarded read-modify-write on the identity's session:
// lease, resolve, check, mutate, fenced persist. These writes require the
// store; there is no degraded mode for them.
func (o *Orchestrator) withSession(
	ctx context.Context,
	identity string,
	check func(context.Context, *sessionx.Session) error,
	mutate func(*sessionx.Session),
) (*sessionx.Session, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return nil, brainnode.ErrInvalidIdentity
	}

	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), opBudget)
	defer cancel()

	token, err := o.continuity.AcquireLease(runCtx, identity)
	if err != nil {
		return nil, err
	}
	defer o.continuity.ReleaseLease(runCtx, identity, token)

	s, err := o.continuity.Resolve(runCtx, identity, "web")
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(runCtx, s); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(s)
	}

	if err := o.continuity.Persist(runCtx, s, token); err != nil {
		return nil, err
	}
	return s, nil
}

func (o *Orchestrator) emitEvent(ctx context.Context, event contractx.Event) {
	if o.convlog == nil {
		return
	}
	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := o.convlog.Append(appendCtx, event); err != nil {
		log.Warn().Err(err).Str("type", string(event.Type)).Msg("conversation log append failed")
	}
}

func snapshot(s *sessionx.Session) contractx.SessionInfo {
	return contractx.SessionInfo{
		ChannelsUsed:    append([]string(nil), s.ChannelsUsed...),
		ChannelSwitches: s.ChannelSwitchCount,
		CartCount:       s.CartCount(),
		HasStyleDNA:     s.StyleDNAFlag,
	}
}

// Package continuity resolves a stable identity to its one live session,
// merges channel activity into it, and serializes concurrent requests for the
// same identity behind a store-side lease.
package continuity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/aryanranjan/aria/brain/contract"
	sessionx "github.com/aryanranjan/aria/brain/session"
)

const (
	// The lease must outlive the orchestrator's whole request budget,
	// generation retries included. A shorter TTL would let a second request
	// acquire the lease mid-pipeline and race the first one's persist.
	defaultLeaseTTL = 2 * time.Minute

	defaultLeaseWait     = 2 * time.Second
	defaultLeaseInterval = 100 * time.Millisecond
)

type Manager struct {
	store sessionx.Store

	leaseTTL      time.Duration
	leaseWait     time.Duration
	leaseInterval time.Duration

	now func() time.Time
}

type Option func(*Manager)

func WithLeaseTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.leaseTTL = ttl
		}
	}
}

func WithLeaseWait(wait time.Duration) Option {
	return func(m *Manager) {
		if wait > 0 {
			m.leaseWait = wait
		}
	}
}

// WithClock fixes the clock used for session timestamps. The lease wait loop
// always runs on real time.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

func New(store sessionx.Store, opts ...Option) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	m := &Manager{
		store:         store,
		leaseTTL:      defaultLeaseTTL,
		leaseWait:     defaultLeaseWait,
		leaseInterval: defaultLeaseInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// AcquireLease takes the exclusive per-identity lease, queueing briefly behind
// a current holder. Once the wait budget is exhausted the request fails with
// ErrSessionBusy; the caller surfaces a "try again" reply, never a silent drop.
func (m *Manager) AcquireLease(ctx context.Context, identity string) (string, error) {
	waitCtx, cancel := context.WithTimeout(ctx, m.leaseWait)
	defer cancel()
	for {
		token, err := m.store.Lease(ctx, identity, m.leaseTTL)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, sessionx.ErrLeaseBusy) {
			return "", fmt.Errorf("%w: lease: %v", contractx.ErrContinuityUnavailable, err)
		}
		select {
		case <-waitCtx.Done():
			return "", contractx.ErrSessionBusy
		case <-time.After(m.leaseInterval):
		}
	}
}

// ReleaseLease is best-effort; an expired lease releases itself.
func (m *Manager) ReleaseLease(ctx context.Context, identity, token string) {
	if token == "" {
		return
	}
	if err := m.store.Release(ctx, identity, token); err != nil {
		log.Warn().Err(err).Str("identity", identity).Msg("lease release failed")
	}
}

// Resolve loads the live session for an identity, or creates a fresh one when
// the identity is unseen or its session expired. A session whose stored
// guardrail state decoded into an invalid shape is fatal for that session and
// re-initialized fresh. Store unreachability is ErrContinuityUnavailable.
func (m *Manager) Resolve(ctx context.Context, identity, channel string) (*sessionx.Session, error) {
	s, err := m.store.Get(ctx, identity)
	if err == nil {
		return s, nil
	}

	switch {
	case errors.Is(err, sessionx.ErrSessionNotFound):
		log.Info().Str("identity", identity).Str("channel", channel).Msg("new session created")
		return sessionx.New(identity, channel, m.now()), nil
	case errors.Is(err, sessionx.ErrCorruptState):
		log.Warn().Err(err).Str("identity", identity).Msg("corrupt session state, re-initializing")
		return sessionx.New(identity, channel, m.now()), nil
	case errors.Is(err, sessionx.ErrInvalidIdentity):
		return nil, fmt.Errorf("%w: %s", contractx.ErrValidation, err)
	default:
		return nil, fmt.Errorf("%w: %v", contractx.ErrContinuityUnavailable, err)
	}
}

// RecordTurn appends a turn to the session's bounded history and updates the
// channel bookkeeping. Turns are immutable once appended.
func (m *Manager) RecordTurn(s *sessionx.Session, role, content, channel string) {
	if s == nil {
		return
	}
	previous := s.LastActiveChannel
	s.AppendTurn(sessionx.Turn{
		Role:      role,
		Content:   content,
		Channel:   channel,
		Timestamp: m.now().UTC(),
	})
	if previous != "" && previous != channel {
		log.Info().
			Str("identity", s.ID).
			Str("from_channel", previous).
			Str("to_channel", channel).
			Msg("channel switch detected")
	}
}

// Persist writes the full session back. With a lease token the write is
// fenced: it lands only while the token is still live, so a holder that
// outlived its lease cannot overwrite a successor's state. ErrLeaseLost is
// returned unwrapped in that case; the caller drops its write.
func (m *Manager) Persist(ctx context.Context, s *sessionx.Session, token string) error {
	if token == "" {
		if err := m.store.Set(ctx, s); err != nil {
			return fmt.Errorf("%w: persist: %v", contractx.ErrContinuityUnavailable, err)
		}
		return nil
	}
	err := m.store.SetIfLeased(ctx, s, token)
	if err == nil {
		return nil
	}
	if errors.Is(err, sessionx.ErrLeaseLost) {
		return err
	}
	return fmt.Errorf("%w: persist: %v", contractx.ErrContinuityUnavailable, err)
}

// Package orchestrator is the Brain's coordinator: one inbound message is
// driven through continuity lookup, guardrail pre-check, prompt assembly,
// generation, output validation, and persistence, ending Replied or Failed.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	continuityx "github.com/aryanranjan/aria/brain/continuity"
	contractx "github.com/aryanranjan/aria/brain/contract"
	brainnode "github.com/aryanranjan/aria/brain/nodes"
	workerx "github.com/aryanranjan/aria/brain/worker"
)

// BusyReply is what a user sees when their session is mid-write on another
// channel and the brief lease wait ran out. The message is never dropped
// silently.
const BusyReply = "I'm just finishing up your last message. Please resend this in a moment."

// requestBudget bounds one full pipeline run, detached from the transport's
// context so an adapter disconnect cannot abort persistence mid-write.
const requestBudget = 90 * time.Second

type Orchestrator struct {
	continuity *continuityx.Manager
	generator  contractx.Generator
	convlog    contractx.ConversationLog
	workers    *workerx.Registry
	catalog    contractx.Catalog

	graphRunner compose.Runnable[brainnode.GraphInput, brainnode.GraphOutput]

	now func() time.Time
}

func New(
	continuity *continuityx.Manager,
	generator contractx.Generator,
	convlog contractx.ConversationLog,
	workers *workerx.Registry,
	catalog contractx.Catalog,
) (*Orchestrator, error) {
	if continuity == nil {
		return nil, errors.New("continuity manager is required")
	}
	if generator == nil {
		return nil, errors.New("generator is required")
	}

	o := &Orchestrator{
		continuity: continuity,
		generator:  generator,
		convlog:    convlog,
		workers:    workers,
		catalog:    catalog,
		now:        time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage processes one inbound message end to end and returns the
// validated reply with the public session snapshot.
//
// Requests for the same identity are serialized behind the store lease for
// the whole pipeline, so overlapping writes cannot interleave and lose a
// turn. Requests that cannot get the lease within the wait budget get the
// busy reply. Store unavailability degrades to single-turn mode.
func (o *Orchestrator) HandleMessage(ctx context.Context, in contractx.Inbound) (contractx.Outbound, error) {
	identity := strings.TrimSpace(in.UserID)
	if identity == "" {
		return contractx.Outbound{}, brainnode.ErrInvalidIdentity
	}

	// Detached so an adapter disconnect lets generation and persist finish;
	// the reply is simply not delivered in that case.
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), requestBudget)
	defer cancel()

	degraded := false
	token, err := o.continuity.AcquireLease(runCtx, identity)
	switch {
	case err == nil:
		defer o.continuity.ReleaseLease(runCtx, identity, token)
	case errors.Is(err, contractx.ErrSessionBusy):
		log.Info().Str("identity", identity).Msg("session busy, returning transient reply")
		return contractx.Outbound{Response: BusyReply}, nil
	case errors.Is(err, contractx.ErrContinuityUnavailable):
		degraded = true
	default:
		return contractx.Outbound{}, err
	}

	out, err := o.graphRunner.Invoke(runCtx, brainnode.GraphInput{
		Inbound:    in,
		LeaseToken: token,
		Degraded:   degraded,
	})
	if err != nil {
		return contractx.Outbound{}, err
	}
	return out.Reply, nil
}

// Package worker models the conceptual "worker agents" (recommendation,
// inventory, payment, fulfilment, loyalty, post-purchase) behind one
// polymorphic contract, so new agents can be added without touching the
// orchestrator's state machine. Most variants are currently no-op.
package worker

import (
	"context"
	"fmt"
	"strings"

	catalogx "github.com/aryanranjan/aria/brain/catalog"
	contractx "github.com/aryanranjan/aria/brain/contract"
	sessionx "github.com/aryanranjan/aria/brain/session"
)

// Contribution is the partial context fragment a worker adds to the prompt.
type Contribution struct {
	Note string
}

// Worker handles one capability for a session and intent.
type Worker interface {
	Name() string
	Handle(ctx context.Context, s *sessionx.Session, intent contractx.Intent) (Contribution, error)
}

// Registry holds the active worker set in dispatch order.
type Registry struct {
	workers []Worker
}

func NewRegistry(cat *catalogx.Memory) *Registry {
	return &Registry{
		workers: []Worker{
			&recommendationWorker{catalog: cat},
			noop{name: "inventory"},
			noop{name: "payment"},
			noop{name: "fulfilment"},
			noop{name: "loyalty"},
			noop{name: "post_purchase"},
		},
	}
}

// Contribute collects every worker's contribution for this turn. A failing
// worker is skipped; workers enrich context, they never gate the reply.
func (r *Registry) Contribute(ctx context.Context, s *sessionx.Session, intent contractx.Intent) []string {
	if r == nil {
		return nil
	}
	var notes []string
	for _, w := range r.workers {
		contribution, err := w.Handle(ctx, s, intent)
		if err != nil {
			continue
		}
		if strings.TrimSpace(contribution.Note) != "" {
			notes = append(notes, contribution.Note)
		}
	}
	return notes
}

type noop struct {
	name string
}

func (n noop) Name() string { return n.name }

func (n noop) Handle(context.Context, *sessionx.Session, contractx.Intent) (Contribution, error) {
	return Contribution{}, nil
}

// recommendationWorker surfaces a few catalog picks when the customer is
// asking about products, so the generator grounds prices in real entries.
type recommendationWorker struct {
	catalog *catalogx.Memory
}

func (w *recommendationWorker) Name() string { return "recommendation" }

func (w *recommendationWorker) Handle(_ context.Context, _ *sessionx.Session, intent contractx.Intent) (Contribution, error) {
	if w.catalog == nil || intent != contractx.IntentProductQuery {
		return Contribution{}, nil
	}

	picks := w.catalog.WithinBudget(0)
	if len(picks) > 3 {
		picks = picks[:3]
	}
	if len(picks) == 0 {
		return Contribution{}, nil
	}

	var sb strings.Builder
	sb.WriteString("## AVAILABLE PRODUCTS\n")
	for _, p := range picks {
		fmt.Fprintf(&sb, "- %s %s - around Rs.%d\n", p.Brand, p.Name, p.Price)
	}
	return Contribution{Note: sb.String()}, nil
}

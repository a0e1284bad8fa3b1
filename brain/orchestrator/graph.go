package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	brainnode "github.com/aryanranjan/aria/brain/nodes"
)

func (o *Orchestrator) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[brainnode.GraphInput, brainnode.GraphOutput], error) {
	graph := compose.NewGraph[brainnode.GraphInput, brainnode.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in brainnode.GraphInput) (*brainnode.GraphState, error) {
			return brainnode.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("resolve_session",
		compose.InvokableLambda(func(ctx context.Context, in *brainnode.GraphState) (*brainnode.GraphState, error) {
			return brainnode.ResolveSession(ctx, in, o.continuity)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node resolve_session: %w", err)
	}

	if err := graph.AddLambdaNode("classify_intent",
		compose.InvokableLambda(func(ctx context.Context, in *brainnode.GraphState) (*brainnode.GraphState, error) {
			return brainnode.ClassifyIntent(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node classify_intent: %w", err)
	}

	if err := graph.AddLambdaNode("precheck_guardrail",
		compose.InvokableLambda(func(ctx context.Context, in *brainnode.GraphState) (*brainnode.GraphState, error) {
			return brainnode.PrecheckGuardrail(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node precheck_guardrail: %w", err)
	}

	if err := graph.AddLambdaNode("contribute_workers",
		compose.InvokableLambda(func(ctx context.Context, in *brainnode.GraphState) (*brainnode.GraphState, error) {
			return brainnode.ContributeWorkers(ctx, in, o.workers)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node contribute_workers: %w", err)
	}

	if err := graph.AddLambdaNode("assemble_context",
		compose.InvokableLambda(func(ctx context.Context, in *brainnode.GraphState) (*brainnode.GraphState, error) {
			return brainnode.AssembleContext(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node assemble_context: %w", err)
	}

	if err := graph.AddLambdaNode("generate_reply",
		compose.InvokableLambda(func(ctx context.Context, in *brainnode.GraphState) (*brainnode.GraphState, error) {
			return brainnode.GenerateReply(ctx, in, o.generator)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node generate_reply: %w", err)
	}

	if err := graph.AddLambdaNode("validate_offer",
		compose.InvokableLambda(func(ctx context.Context, in *brainnode.GraphState) (*brainnode.GraphState, error) {
			return brainnode.ValidateOffer(ctx, in, o.generator)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_offer: %w", err)
	}

	if err := graph.AddLambdaNode("persist_session",
		compose.InvokableLambda(func(ctx context.Context, in *brainnode.GraphState) (*brainnode.GraphState, error) {
			return brainnode.PersistSession(ctx, in, o.continuity)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist_session: %w", err)
	}

	if err := graph.AddLambdaNode("emit_events",
		compose.InvokableLambda(func(ctx context.Context, in *brainnode.GraphState) (*brainnode.GraphState, error) {
			return brainnode.EmitEvents(ctx, in, o.convlog)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node emit_events: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *brainnode.GraphState) (brainnode.GraphOutput, error) {
			return brainnode.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "resolve_session"},
		{"resolve_session", "classify_intent"},
		{"classify_intent", "precheck_guardrail"},
		{"precheck_guardrail", "contribute_workers"},
		{"contribute_workers", "assemble_context"},
		{"assemble_context", "generate_reply"},
		{"generate_reply", "validate_offer"},
		{"validate_offer", "persist_session"},
		{"persist_session", "emit_events"},
		{"emit_events", "finalize_reply"},
		{"finalize_reply", compose.END},
	}

	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("brain.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile brain graph: %w", err)
	}
	return runner, nil
}

package brainnode

import (
	"context"
	"fmt"

	contractx "github.com/aryanranjan/aria/brain/contract"
	workerx "github.com/aryanranjan/aria/brain/worker"
)

func ContributeWorkers(ctx context.Context, in *GraphState, registry *workerx.Registry) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if registry == nil {
		return in, nil
	}
	in.WorkerNotes = registry.Contribute(ctx, in.Session, in.Intent)
	return in, nil
}

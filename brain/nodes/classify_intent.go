package brainnode

import (
	"fmt"

	contractx "github.com/aryanranjan/aria/brain/contract"
	intentx "github.com/aryanranjan/aria/brain/intent"
)

func ClassifyIntent(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	in.Intent = intentx.Classify(in.Message)
	return in, nil
}

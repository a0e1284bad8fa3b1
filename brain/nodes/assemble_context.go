package brainnode

import (
	"fmt"

	contractx "github.com/aryanranjan/aria/brain/contract"
	promptx "github.com/aryanranjan/aria/brain/prompt"
)

func AssembleContext(in *GraphState) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Prompt = promptx.Assemble(promptx.Input{
		Session:     in.Session,
		Channel:     in.Channel,
		Message:     in.Message,
		Directive:   in.Directive,
		Intent:      in.Intent,
		WorkerNotes: in.WorkerNotes,
	})
	return in, nil
}

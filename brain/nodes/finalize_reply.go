package brainnode

import (
	"fmt"
	"strings"

	contractx "github.com/aryanranjan/aria/brain/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Reply)
	if reply == "" {
		return GraphOutput{}, fmt.Errorf("%w: empty reply after validation", contractx.ErrValidation)
	}

	out := GraphOutput{
		Reply: contractx.Outbound{
			Response: reply,
		},
	}
	if in.Session != nil {
		out.Reply.SessionInfo = contractx.SessionInfo{
			ChannelsUsed:    append([]string(nil), in.Session.ChannelsUsed...),
			ChannelSwitches: in.Session.ChannelSwitchCount,
			CartCount:       in.Session.CartCount(),
			HasStyleDNA:     in.Session.StyleDNAFlag,
		}
	}
	return out, nil
}

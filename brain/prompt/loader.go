package prompt

import (
	_ "embed"
	"strings"
)

//go:embed template/policy.txt
var policyRaw string

// PolicyPreamble returns the fixed policy preamble (tone, pricing ceiling,
// forbidden gifts). This is safe to call concurrently; the embed is
// compile-time, and trimming is cheap.
func PolicyPreamble() string {
	return strings.TrimSpace(policyRaw)
}

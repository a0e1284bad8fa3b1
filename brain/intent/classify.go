// Package intent derives a coarse intent tag from an inbound message using
// lightweight pattern rules. This is deliberately simple and deterministic so
// that guardrail enforcement stays auditable; it is not an ML stage.
package intent

import (
	"regexp"
	"strings"

	contractx "github.com/aryanranjan/aria/brain/contract"
)

var (
	discountPattern = regexp.MustCompile(`(?i)\b(discount|cheaper|bargain|negotiate|lower\s+the\s+price|reduce\s+the\s+price|best\s+price|price\s+match|\d{1,3}\s*%\s*off|\d{1,3}\s+percent\s+off)\b`)
	giftPattern     = regexp.MustCompile(`(?i)\b(free|freebie|gift|complimentary|throw\s+in|on\s+the\s+house)\b`)
	abusePattern    = regexp.MustCompile(`(?i)\b(stupid|idiot|useless|scam|fraud|shut\s+up|hate\s+you|damn\s+you)\b`)
	productPattern  = regexp.MustCompile(`(?i)\b(shirt|trouser|jean|blazer|kurta|sherwani|saree|shoe|jacket|tee|t-shirt|outfit|formal|casual|ethnic|wedding|office\s+wear|recommend|looking\s+for|show\s+me|suggest)\b`)
)

// Classify maps a raw message to its intent tag. Empty or whitespace-only
// input is neutral and must not mutate any guardrail state.
//
// Precedence: abusive, then discount, then gift, then product query. A
// message that haggles and begs a freebie at once counts as a discount
// request; the free-item side is still caught by post-validation.
func Classify(message string) contractx.Intent {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return contractx.IntentNeutral
	}

	switch {
	case abusePattern.MatchString(trimmed):
		return contractx.IntentAbusive
	case discountPattern.MatchString(trimmed):
		return contractx.IntentDiscountRequest
	case giftPattern.MatchString(trimmed):
		return contractx.IntentGiftRequest
	case productPattern.MatchString(trimmed):
		return contractx.IntentProductQuery
	default:
		return contractx.IntentNeutral
	}
}

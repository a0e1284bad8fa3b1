// Package offer extracts the concrete offer a generated reply makes, so the
// guardrail engine can validate it before the text reaches the user.
package offer

import (
	"regexp"
	"strconv"
	"strings"

	guardrailx "github.com/aryanranjan/aria/brain/guardrail"
)

// A bare percentage is not an offer ("100% cotton"); the number must be tied
// to a discount cue on either side.
var (
	percentPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d{1,3})\s*(?:%|percent)\s*(?:off|discount|reduction|markdown)`),
		regexp.MustCompile(`(?i)(?:discount|offer|markdown|reduction)\s+of\s+(\d{1,3})\s*(?:%|percent)`),
		regexp.MustCompile(`(?i)flat\s+(\d{1,3})\s*(?:%|percent)`),
		regexp.MustCompile(`(?i)(?:save|knock\s+off|take\s+off)\s+(\d{1,3})\s*(?:%|percent)`),
	}

	// Words following a free/complimentary cue name the item being given away.
	freeFollow = regexp.MustCompile(`(?i)\b(?:free|complimentary|gifting\s+you|as\s+a\s+gift)\b((?:\s+[a-zA-Z]+){1,4})`)
	// Words preceding "for free" / "on the house" name the item too.
	freeLead = regexp.MustCompile(`(?i)((?:[a-zA-Z]+\s+){1,3})(?:for\s+free|on\s+the\s+house|free\s+of\s+charge)`)
)

// Scan inspects generated text for a numeric discount or a free-item offer.
// A reply with no offer scans to the zero Offer, which every guardrail state
// allows.
func Scan(text string) guardrailx.Offer {
	var out guardrailx.Offer
	if strings.TrimSpace(text) == "" {
		return out
	}

	for _, pattern := range percentPatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			pct, err := strconv.Atoi(m[1])
			if err != nil || pct > 100 {
				continue
			}
			if pct > out.DiscountPercent {
				out.DiscountPercent = pct
			}
		}
	}

	seen := make(map[string]bool)
	collect := func(fragment string) {
		for _, word := range strings.Fields(fragment) {
			word = strings.ToLower(strings.Trim(word, ".,!?:;"))
			if word == "" || seen[word] {
				continue
			}
			seen[word] = true
			out.FreeItems = append(out.FreeItems, word)
		}
	}
	for _, m := range freeFollow.FindAllStringSubmatch(text, -1) {
		collect(m[1])
	}
	for _, m := range freeLead.FindAllStringSubmatch(text, -1) {
		collect(m[1])
	}

	return out
}

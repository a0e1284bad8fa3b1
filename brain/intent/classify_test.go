package intent

import (
	"testing"

	contractx "github.com/aryanranjan/aria/brain/contract"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		want    contractx.Intent
	}{
		{"empty", "", contractx.IntentNeutral},
		{"whitespace only", "   \t  ", contractx.IntentNeutral},
		{"greeting", "hello there", contractx.IntentNeutral},
		{"percent off", "give me 40% off", contractx.IntentDiscountRequest},
		{"bare discount", "discount?", contractx.IntentDiscountRequest},
		{"haggling", "can you lower the price a bit", contractx.IntentDiscountRequest},
		{"best price", "what's your best price", contractx.IntentDiscountRequest},
		{"free item", "throw in a free belt please", contractx.IntentGiftRequest},
		{"complimentary", "any complimentary accessories?", contractx.IntentGiftRequest},
		{"abuse", "this is a scam and you are useless", contractx.IntentAbusive},
		{"product query", "I'm looking for a formal shirt for a wedding", contractx.IntentProductQuery},
		{"recommendation ask", "recommend something under 3000", contractx.IntentProductQuery},
		{"discount wins over gift", "give me a discount and a free tie", contractx.IntentDiscountRequest},
		{"abuse wins over discount", "you idiot, give me a discount", contractx.IntentAbusive},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Classify(tt.message); got != tt.want {
				t.Fatalf("Classify(%q) = %q, want %q", tt.message, got, tt.want)
			}
		})
	}
}

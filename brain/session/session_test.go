package session

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func testTurn(role, content, channel string, at time.Time) Turn {
	return Turn{Role: role, Content: content, Channel: channel, Timestamp: at}
}

func TestAppendTurnCountsChannelSwitches(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := New("user-1", "web", now)

	s.AppendTurn(testTurn(RoleUser, "hi", "web", now))
	s.AppendTurn(testTurn(RoleAssistant, "hello!", "web", now))
	if s.ChannelSwitchCount != 0 {
		t.Fatalf("ChannelSwitchCount = %d, want 0", s.ChannelSwitchCount)
	}

	s.AppendTurn(testTurn(RoleUser, "still me", "whatsapp", now.Add(time.Minute)))
	if s.ChannelSwitchCount != 1 {
		t.Fatalf("ChannelSwitchCount = %d, want 1", s.ChannelSwitchCount)
	}
	s.AppendTurn(testTurn(RoleAssistant, "welcome back", "whatsapp", now.Add(time.Minute)))
	if s.ChannelSwitchCount != 1 {
		t.Fatalf("ChannelSwitchCount = %d after same-channel turn, want 1", s.ChannelSwitchCount)
	}

	want := []string{"web", "whatsapp"}
	if !reflect.DeepEqual(s.ChannelsUsed, want) {
		t.Fatalf("ChannelsUsed = %v, want %v", s.ChannelsUsed, want)
	}
}

func TestAppendTurnEvictsOldestAtCap(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := New("user-1", "web", now)

	for i := 0; i < HistoryCap+7; i++ {
		s.AppendTurn(testTurn(RoleUser, "msg", "web", now.Add(time.Duration(i)*time.Second)))
	}

	if len(s.History) != HistoryCap {
		t.Fatalf("history length = %d, want %d", len(s.History), HistoryCap)
	}
	// Oldest seven were evicted; the first surviving turn is turn 7.
	wantOldest := now.Add(7 * time.Second)
	if !s.History[0].Timestamp.Equal(wantOldest) {
		t.Fatalf("oldest surviving turn at %v, want %v", s.History[0].Timestamp, wantOldest)
	}
}

func TestRecentHistoryReturnsWindowOldestFirst(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := New("user-1", "web", now)
	for i := 0; i < 5; i++ {
		s.AppendTurn(testTurn(RoleUser, string(rune('a'+i)), "web", now))
	}

	window := s.RecentHistory(3)
	if len(window) != 3 {
		t.Fatalf("window length = %d, want 3", len(window))
	}
	if window[0].Content != "c" || window[2].Content != "e" {
		t.Fatalf("window = [%s..%s], want [c..e]", window[0].Content, window[2].Content)
	}
}

func TestCartNeverGoesNegative(t *testing.T) {
	t.Parallel()

	s := New("user-1", "web", time.Now())
	s.AddToCart("lp-formal-shirt", 2)
	s.AddToCart("lp-formal-shirt", -5)
	s.AddToCart("", 1)

	if got := s.CartCount(); got != 2 {
		t.Fatalf("CartCount() = %d, want 2", got)
	}

	s.ClearCart()
	if got := s.CartCount(); got != 0 {
		t.Fatalf("CartCount() after clear = %d, want 0", got)
	}
}

func TestSessionRoundTripsThroughJSON(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	s := New("user-1", "web", now)
	s.AppendTurn(testTurn(RoleUser, "hi", "web", now))
	s.AppendTurn(testTurn(RoleAssistant, "hello!", "web", now))
	s.AppendTurn(testTurn(RoleUser, "again", "whatsapp", now.Add(time.Minute)))
	s.AddToCart("vh-slim-blazer", 1)
	s.MarkStyleDNA()
	s.Guardrail.DiscountAttempts = 1

	payload, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got Session
	if err := json.Unmarshal(payload, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// Every field persists; nothing is intentionally excluded.
	if !reflect.DeepEqual(*s, got) {
		t.Fatalf("round-trip mismatch:\n got %+v\nwant %+v", got, *s)
	}
}

func TestValidateRejectsCorruptGuardrail(t *testing.T) {
	t.Parallel()

	s := New("user-1", "web", time.Now())
	s.Guardrail.DiscountAttempts = -3
	if err := s.Validate(); err == nil {
		t.Fatal("Validate() = nil for corrupt guardrail state, want error")
	}
}

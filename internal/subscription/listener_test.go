package subscription

import (
	"regexp"
	"testing"
)

func mustListener(t *testing.T, id, channel string, mention bool, pattern string) Listener {
	t.Helper()
	return Listener{
		SubscriptionID: id,
		Channel:        channel,
		Mention:        mention,
		Pattern:        regexp.MustCompile(pattern),
	}
}

func TestListenerMatches(t *testing.T) {
	tests := map[string]struct {
		listener Listener
		event    Event
		want     bool
	}{
		"channel listener matches plain message": {
			listener: mustListener(t, "s1", "C1", false, "deploy"),
			event:    Event{Type: "message", Channel: "C1", Text: "deploy now", Ts: "1.0"},
			want:     true,
		},
		"channel listener searches anywhere in text": {
			listener: mustListener(t, "s1", "C1", false, "^deploy$"),
			event:    Event{Type: "message", Channel: "C1", Text: "please deploy now", Ts: "1.1"},
			want:     false,
		},
		"subtype disqualifies message events": {
			listener: mustListener(t, "s1", "C1", false, "deploy"),
			event:    Event{Type: "message", SubType: "message_changed", Channel: "C1", Text: "deploy now", Ts: "1.2"},
			want:     false,
		},
		"channel mismatch": {
			listener: mustListener(t, "s1", "C1", false, "deploy"),
			event:    Event{Type: "message", Channel: "C2", Text: "deploy now", Ts: "1.3"},
			want:     false,
		},
		"channel listener ignores app mentions": {
			listener: mustListener(t, "s1", "C1", false, "deploy"),
			event:    Event{Type: "app_mention", Channel: "C1", Text: "deploy now", Ts: "1.4"},
			want:     false,
		},
		"mention listener matches any channel": {
			listener: mustListener(t, "s2", "", true, "help"),
			event:    Event{Type: "app_mention", Channel: "C9", Text: "need help please", Ts: "1.5"},
			want:     true,
		},
		"mention listener ignores plain messages": {
			listener: mustListener(t, "s2", "", true, "help"),
			event:    Event{Type: "message", Channel: "C9", Text: "need help please", Ts: "1.6"},
			want:     false,
		},
		"mention listener requires pattern match": {
			listener: mustListener(t, "s2", "", true, "help"),
			event:    Event{Type: "app_mention", Channel: "C9", Text: "good morning", Ts: "1.7"},
			want:     false,
		},
		"unknown event types never match": {
			listener: mustListener(t, "s2", "", true, ".*"),
			event:    Event{Type: "reaction_added", Channel: "C9", Text: "anything", Ts: "1.8"},
			want:     false,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := tt.listener.Matches(tt.event); got != tt.want {
				t.Fatalf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRegistryFirstMatchWins(t *testing.T) {
	r := NewRegistry()
	r.Add(mustListener(t, "first", "C1", false, "deploy"))
	r.Add(mustListener(t, "second", "C1", false, "deploy"))

	l := r.FindMatch(Event{Type: "message", Channel: "C1", Text: "deploy now", Ts: "2.0"})
	if l == nil {
		t.Fatal("expected a match")
	}
	if l.SubscriptionID != "first" {
		t.Fatalf("expected first registered listener to win, got %q", l.SubscriptionID)
	}
}

func TestRegistryFindMatchNoListeners(t *testing.T) {
	r := NewRegistry()
	if l := r.FindMatch(Event{Type: "message", Channel: "C1", Text: "deploy", Ts: "2.1"}); l != nil {
		t.Fatalf("expected no match, got %q", l.SubscriptionID)
	}
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry()
	r.Add(mustListener(t, "dup", "C1", false, "a"))
	r.Add(mustListener(t, "dup", "C2", false, "b"))
	r.Add(mustListener(t, "other", "C3", false, "c"))

	if !r.Remove("dup") {
		t.Fatal("expected removal of first duplicate")
	}
	if r.Len() != 2 {
		t.Fatalf("expected 2 listeners after removal, got %d", r.Len())
	}

	// The second duplicate must survive and still be matchable.
	l := r.FindMatch(Event{Type: "message", Channel: "C2", Text: "b", Ts: "2.2"})
	if l == nil || l.SubscriptionID != "dup" {
		t.Fatalf("expected surviving duplicate to match, got %+v", l)
	}

	if r.Remove("missing") {
		t.Fatal("removing an unknown subscription should report false")
	}
	if r.Len() != 2 {
		t.Fatalf("failed removal must leave the registry unchanged, got %d listeners", r.Len())
	}
}

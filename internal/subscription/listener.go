package subscription

import "regexp"

// Listener is a registered pattern subscription. A listener is either
// channel-scoped (Channel set, Mention false) or mention-scoped (Mention
// true, Channel empty); the two variants never mix.
type Listener struct {
	SubscriptionID string
	Channel        string
	Mention        bool
	Pattern        *regexp.Regexp
}

// Matches reports whether the listener predicate holds for the event.
// Pattern matching is a regexp search anywhere in the text, not a
// full-string match. A non-empty subtype disqualifies message events;
// that filters out edits, bot messages and similar.
func (l *Listener) Matches(ev Event) bool {
	if l.Mention {
		return ev.Type == EventTypeAppMention && l.Pattern.MatchString(ev.Text)
	}
	return ev.Type == EventTypeMessage &&
		ev.SubType == "" &&
		ev.Channel == l.Channel &&
		l.Pattern.MatchString(ev.Text)
}

// Registry holds the active listeners in registration order. It performs no
// synchronization of its own; the owning Service serializes access.
type Registry struct {
	listeners []Listener
}

// NewRegistry returns an empty listener registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a listener. Duplicate subscription IDs are not deduplicated;
// Remove drops only the first occurrence.
func (r *Registry) Add(l Listener) {
	r.listeners = append(r.listeners, l)
}

// Remove deletes the first listener (in registration order) with the given
// subscription ID and reports whether a removal occurred.
func (r *Registry) Remove(subscriptionID string) bool {
	for i := range r.listeners {
		if r.listeners[i].SubscriptionID == subscriptionID {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// FindMatch scans listeners in registration order and returns the first one
// whose predicate matches, or nil. First-match-wins is the tie-break callers
// with overlapping patterns rely on.
func (r *Registry) FindMatch(ev Event) *Listener {
	for i := range r.listeners {
		if r.listeners[i].Matches(ev) {
			return &r.listeners[i]
		}
	}
	return nil
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	return len(r.listeners)
}

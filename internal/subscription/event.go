package subscription

// Event types delivered by the Slack Events API that the bridge matches on.
const (
	EventTypeMessage    = "message"
	EventTypeAppMention = "app_mention"
)

// Event is the closed representation of an inbound chat event. The Ts
// (Slack message timestamp) doubles as the event identifier for retention
// lookups, so it must be unique per event.
type Event struct {
	Type    string  `json:"type"`
	SubType string  `json:"subtype,omitempty"`
	Channel string  `json:"channel"`
	User    string  `json:"user"`
	Text    string  `json:"text"`
	Ts      string  `json:"ts"`
	Edited  *Edited `json:"edited,omitempty"`
}

// Edited carries the edit metadata Slack attaches to changed messages.
// It is preserved in the forwarded payload but never consulted by matching.
type Edited struct {
	User string `json:"user"`
	Ts   string `json:"ts"`
}

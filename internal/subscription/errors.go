package subscription

import "errors"

var (
	// ErrChannelNotFound is returned when a channel or user name cannot be
	// resolved against the Slack directory.
	ErrChannelNotFound = errors.New("subscription: channel not found")

	// ErrEventNotFound is returned by Reply when the referenced event is
	// not retained (never matched, already closed, or evicted).
	ErrEventNotFound = errors.New("subscription: event not found")
)

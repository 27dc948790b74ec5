package hub

import "errors"

// Sentinel errors for event classification. Events that fail with one
// of these are dropped without touching room state and without any
// broadcast; the offending connection stays open.
var (
	// ErrMissingRoom is returned when an event carries no room key.
	ErrMissingRoom = errors.New("hub: missing room key")

	// ErrMissingElementID is returned when a mutate event carries an
	// element without an ID.
	ErrMissingElementID = errors.New("hub: missing element id")

	// ErrClosed is returned when an event arrives after the
	// coordinator has been shut down.
	ErrClosed = errors.New("hub: coordinator closed")
)

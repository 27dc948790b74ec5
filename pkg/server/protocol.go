package server

import (
	"encoding/json"
	"errors"

	"github.com/boardhub/boardhub/pkg/board"
)

// Inbound event types accepted over the websocket.
const (
	eventJoin        = "join"
	eventMutate      = "mutate"
	eventClearBoard  = "clearBoard"
	eventCursorMove  = "cursorMove"
	eventCursorLeave = "cursorLeave"
)

var (
	// ErrUnknownEvent classifies an inbound envelope naming an event
	// type the server does not handle. The event is dropped; the
	// connection stays open.
	ErrUnknownEvent = errors.New("server: unknown event type")

	// ErrQueueFull classifies the disconnect of a consumer whose
	// outbound queue filled up.
	ErrQueueFull = errors.New("server: outbound queue full")
)

// envelope is the wire framing in both directions: a type tag plus a
// type-specific payload. Outbound envelopes are built from
// hub.Outbound, which has the same shape.
type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type joinPayload struct {
	Room string `json:"room"`
	Name string `json:"name"`
}

type mutatePayload struct {
	Room    string        `json:"room"`
	Element board.Element `json:"element"`
}

type roomPayload struct {
	Room string `json:"room"`
}

type cursorPayload struct {
	Room string  `json:"room"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

package hub

import "github.com/boardhub/boardhub/pkg/board"

// Outbound event types emitted by the coordinator.
const (
	EventInitialState   = "initialState"
	EventElementUpdated = "elementUpdated"
	EventBoardCleared   = "boardCleared"
	EventPresenceList   = "presenceList"
	EventCursorUpdated  = "cursorUpdated"
	EventCursorHidden   = "cursorHidden"
)

// Outbound is one server-to-client event. The transport marshals the
// whole envelope; the coordinator only decides who receives it and in
// what order.
type Outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// InitialState is the join reply: the room's full element snapshot.
type InitialState struct {
	Elements []board.Element `json:"elements"`
}

// ElementUpdated carries one upserted element to the rest of the room.
type ElementUpdated struct {
	Element board.Element `json:"element"`
}

// PresenceList is the full member list of a room, sent to the whole
// room whenever membership changes.
type PresenceList struct {
	Users []board.User `json:"users"`
}

// CursorUpdated carries another connection's pointer position.
type CursorUpdated struct {
	ConnID string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// CursorHidden tells the room to stop rendering a connection's cursor.
type CursorHidden struct {
	ConnID string `json:"id"`
}

// Sender is the coordinator's view of one connected client. Send must
// never block event processing: implementations queue the event and
// deal with slow consumers themselves (the websocket transport drops
// the connection when its outbound queue fills).
type Sender interface {
	// ID returns the transport-assigned connection identifier,
	// unique for the lifetime of the connection.
	ID() string

	// Send queues an event for delivery. Delivery is fire-and-forget:
	// no acknowledgement, at-most-once.
	Send(ev Outbound)
}

package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/boardhub/boardhub/pkg/hub"
)

// conn adapts one websocket connection to the coordinator's Sender
// contract. A read pump decodes inbound envelopes and routes them to
// the coordinator; a write pump drains the outbound queue and keeps
// the connection alive with pings.
type conn struct {
	id     string
	ws     *websocket.Conn
	coord  *hub.Coordinator
	logger *slog.Logger

	send chan hub.Outbound
	done chan struct{}

	closeOnce sync.Once

	readTimeout  time.Duration
	writeTimeout time.Duration
	pingInterval time.Duration

	onClose func(*conn)
}

func newConn(id string, ws *websocket.Conn, coord *hub.Coordinator, opts *Options, logger *slog.Logger) *conn {
	return &conn{
		id:           id,
		ws:           ws,
		coord:        coord,
		logger:       logger.With("conn_id", id),
		send:         make(chan hub.Outbound, opts.SendQueueSize),
		done:         make(chan struct{}),
		readTimeout:  opts.ReadTimeout,
		writeTimeout: opts.WriteTimeout,
		pingInterval: opts.PingInterval,
	}
}

// ID implements hub.Sender.
func (c *conn) ID() string { return c.id }

// Send implements hub.Sender. It never blocks: delivery is
// fire-and-forget, and a consumer that falls a full queue behind is
// disconnected rather than allowed to stall the room.
func (c *conn) Send(ev hub.Outbound) {
	select {
	case c.send <- ev:
	case <-c.done:
	default:
		c.logger.Warn("closing slow consumer", "reason", ErrQueueFull)
		c.close()
	}
}

// close shuts the connection down exactly once. The read pump notices
// the closed socket and performs coordinator cleanup.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
		if c.onClose != nil {
			c.onClose(c)
		}
	})
}

// readPump reads envelopes until the connection dies, then reports the
// disconnect to the coordinator. The transport's liveness mechanism
// (read deadline refreshed by frames and pongs) turns a silently dead
// peer into an ordinary disconnect here.
func (c *conn) readPump() {
	defer func() {
		c.close()
		c.coord.Disconnect(context.Background(), c)
	}()

	c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			return
		}
		c.ws.SetReadDeadline(time.Now().Add(c.readTimeout))

		c.dispatch(data)
	}
}

// dispatch decodes one inbound envelope and routes it. Malformed
// payloads are dropped without touching room state; a panic from a
// poisoned payload is contained to this event.
func (c *conn) dispatch(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("event handler panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.logger.Warn("malformed envelope", "error", err)
		return
	}

	ctx := context.Background()

	switch env.Type {
	case eventJoin:
		var p joinPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.logger.Warn("malformed join payload", "error", err)
			return
		}
		c.coord.Join(ctx, c, p.Room, p.Name)

	case eventMutate:
		var p mutatePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.logger.Warn("malformed mutate payload", "error", err)
			return
		}
		c.coord.Mutate(ctx, c, p.Room, p.Element)

	case eventClearBoard:
		var p roomPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.logger.Warn("malformed clear payload", "error", err)
			return
		}
		c.coord.ClearBoard(ctx, c, p.Room)

	case eventCursorMove:
		var p cursorPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.logger.Warn("malformed cursor payload", "error", err)
			return
		}
		c.coord.CursorMove(ctx, c, p.Room, p.X, p.Y)

	case eventCursorLeave:
		var p roomPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			c.logger.Warn("malformed cursor payload", "error", err)
			return
		}
		c.coord.CursorLeave(ctx, c, p.Room)

	default:
		c.logger.Warn("event dropped", "event", env.Type, "reason", ErrUnknownEvent)
	}
}

// writePump serializes outbound events onto the socket and pings the
// peer on an interval so its liveness mechanism keeps the connection
// open through idle periods.
func (c *conn) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case ev := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteJSON(ev); err != nil {
				c.logger.Error("write error", "error", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			return
		}
	}
}

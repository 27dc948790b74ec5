// Package hub contains the session coordinator: the single in-process
// authority that owns every room's document and presence state, routes
// inbound connection events to the right room, and fans broadcasts back
// out to the room's members.
package hub

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/boardhub/boardhub/pkg/board"
)

// Config configures a Coordinator.
type Config struct {
	// Palette overrides the color palette handed to joining users.
	// Empty means board.DefaultPalette.
	Palette []string

	// RoomGracePeriod is how long a room with zero presence is kept
	// before the sweeper removes it. Zero means DefaultRoomGracePeriod.
	RoomGracePeriod time.Duration

	// SweepInterval is how often the idle-room sweeper runs.
	// Zero means DefaultSweepInterval.
	SweepInterval time.Duration

	// Metrics receives coordinator metrics. Nil disables recording.
	Metrics *Metrics

	// Logger is the structured logger. Nil means slog.Default().
	Logger *slog.Logger
}

// Sweeper defaults.
const (
	DefaultRoomGracePeriod = 10 * time.Minute
	DefaultSweepInterval   = time.Minute
)

// Coordinator owns the room registry. It is safe for concurrent use:
// the registry map is guarded by its own lock, and each room's
// element store, roster, and cursor map are guarded by that room's
// mutex, so all events touching one room are strictly serialized and
// every member observes broadcasts in processing order.
type Coordinator struct {
	mu         sync.RWMutex
	rooms      map[string]*room
	membership map[string]map[string]struct{} // conn ID -> room keys
	closed     bool

	palette     []string
	gracePeriod time.Duration
	sweepEvery  time.Duration

	metrics *Metrics
	logger  *slog.Logger
	tracer  trace.Tracer

	done        chan struct{}
	sweeperDone chan struct{}
}

// room bundles one board's state behind a single mutual-exclusion
// domain. Broadcast sends happen while the mutex is held; Sender.Send
// never blocks, so this is what gives each member a per-room FIFO view
// of the event stream.
type room struct {
	key string

	mu       sync.Mutex
	elements *board.Store
	roster   *board.Roster
	cursors  *board.Cursors
	members  map[string]Sender

	lastActivity time.Time
	emptySince   time.Time // zero while the room has members
	expired      bool      // set by the sweeper; the room is dead
}

// New creates a Coordinator and starts its idle-room sweeper.
func New(config *Config) *Coordinator {
	if config == nil {
		config = &Config{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	grace := config.RoomGracePeriod
	if grace <= 0 {
		grace = DefaultRoomGracePeriod
	}
	sweep := config.SweepInterval
	if sweep <= 0 {
		sweep = DefaultSweepInterval
	}

	c := &Coordinator{
		rooms:       make(map[string]*room),
		membership:  make(map[string]map[string]struct{}),
		palette:     config.Palette,
		gracePeriod: grace,
		sweepEvery:  sweep,
		metrics:     config.Metrics,
		logger:      logger.With("component", "coordinator"),
		tracer:      otel.Tracer("boardhub/hub"),
		done:        make(chan struct{}),
		sweeperDone: make(chan struct{}),
	}

	go c.sweepLoop()

	return c
}

// Close stops the sweeper and rejects further events. Connections are
// owned by the transport and are closed there.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.done)
	<-c.sweeperDone
}

// Join registers the connection in the room, creating the room on
// first join. The joiner alone receives the current element snapshot;
// the whole room, joiner included, receives the updated presence list.
func (c *Coordinator) Join(ctx context.Context, conn Sender, roomKey, name string) error {
	_, span := c.startSpan(ctx, "board.join", roomKey, conn.ID())
	defer span.End()
	start := time.Now()

	if roomKey == "" {
		return c.drop(span, "join", ErrMissingRoom)
	}

	c.trackMembership(conn.ID(), roomKey)

	r, err := c.lockRoom(roomKey)
	if err != nil {
		return c.drop(span, "join", err)
	}
	user := r.roster.Join(conn.ID(), name)
	r.members[conn.ID()] = conn
	r.lastActivity = time.Now()
	r.emptySince = time.Time{}

	conn.Send(Outbound{
		Type:    EventInitialState,
		Payload: InitialState{Elements: r.elements.Snapshot()},
	})
	c.broadcastLocked(r, "", Outbound{
		Type:    EventPresenceList,
		Payload: PresenceList{Users: r.roster.List()},
	})
	r.mu.Unlock()

	if c.metrics != nil {
		c.metrics.activeMembers.Inc()
	}
	c.observe("join", start)

	c.logger.Info("user joined",
		"room", roomKey,
		"conn_id", conn.ID(),
		"name", name,
		"color", user.Color)

	return nil
}

// Mutate upserts the element into the room's store and forwards it to
// every member except the sender, which already holds the
// authoritative local copy of its own edit.
func (c *Coordinator) Mutate(ctx context.Context, conn Sender, roomKey string, el board.Element) error {
	_, span := c.startSpan(ctx, "board.mutate", roomKey, conn.ID())
	defer span.End()
	start := time.Now()

	if roomKey == "" {
		return c.drop(span, "mutate", ErrMissingRoom)
	}
	if el.ID == "" {
		return c.drop(span, "mutate", ErrMissingElementID)
	}

	// An unknown room is created implicitly; a mutate racing a first
	// join must not be an error.
	r, err := c.lockRoom(roomKey)
	if err != nil {
		return c.drop(span, "mutate", err)
	}
	r.elements.Upsert(el)
	r.lastActivity = time.Now()
	c.broadcastLocked(r, conn.ID(), Outbound{
		Type:    EventElementUpdated,
		Payload: ElementUpdated{Element: el},
	})
	r.mu.Unlock()

	c.observe("mutate", start)
	return nil
}

// ClearBoard empties the room's element store. Unlike Mutate, the
// clear signal goes to the entire room including the sender: a clear
// invalidates state the sender is itself displaying.
func (c *Coordinator) ClearBoard(ctx context.Context, conn Sender, roomKey string) error {
	_, span := c.startSpan(ctx, "board.clear", roomKey, conn.ID())
	defer span.End()
	start := time.Now()

	if roomKey == "" {
		return c.drop(span, "clearBoard", ErrMissingRoom)
	}

	r, err := c.lockRoom(roomKey)
	if err != nil {
		return c.drop(span, "clearBoard", err)
	}
	r.elements.Clear()
	r.lastActivity = time.Now()
	c.broadcastLocked(r, "", Outbound{Type: EventBoardCleared})
	r.mu.Unlock()

	c.observe("clearBoard", start)

	c.logger.Info("board cleared", "room", roomKey, "conn_id", conn.ID())
	return nil
}

// CursorMove records the sender's pointer position and forwards it to
// every other member.
func (c *Coordinator) CursorMove(ctx context.Context, conn Sender, roomKey string, x, y float64) error {
	_, span := c.startSpan(ctx, "board.cursor_move", roomKey, conn.ID())
	defer span.End()
	start := time.Now()

	if roomKey == "" {
		return c.drop(span, "cursorMove", ErrMissingRoom)
	}

	r, err := c.lockRoom(roomKey)
	if err != nil {
		return c.drop(span, "cursorMove", err)
	}
	r.cursors.Update(conn.ID(), x, y)
	r.lastActivity = time.Now()
	c.broadcastLocked(r, conn.ID(), Outbound{
		Type:    EventCursorUpdated,
		Payload: CursorUpdated{ConnID: conn.ID(), X: x, Y: y},
	})
	r.mu.Unlock()

	c.observe("cursorMove", start)
	return nil
}

// CursorLeave hides the sender's cursor for every other member.
func (c *Coordinator) CursorLeave(ctx context.Context, conn Sender, roomKey string) error {
	_, span := c.startSpan(ctx, "board.cursor_leave", roomKey, conn.ID())
	defer span.End()
	start := time.Now()

	if roomKey == "" {
		return c.drop(span, "cursorLeave", ErrMissingRoom)
	}

	r, err := c.lockRoom(roomKey)
	if err != nil {
		return c.drop(span, "cursorLeave", err)
	}
	r.cursors.Remove(conn.ID())
	r.lastActivity = time.Now()
	c.broadcastLocked(r, conn.ID(), Outbound{
		Type:    EventCursorHidden,
		Payload: CursorHidden{ConnID: conn.ID()},
	})
	r.mu.Unlock()

	c.observe("cursorLeave", start)
	return nil
}

// Disconnect removes the connection from every room it joined,
// broadcasting the updated presence list to each affected room. Called
// by the transport when the connection closes for any reason.
func (c *Coordinator) Disconnect(ctx context.Context, conn Sender) {
	_, span := c.startSpan(ctx, "board.disconnect", "", conn.ID())
	defer span.End()
	start := time.Now()

	c.mu.Lock()
	keys := c.membership[conn.ID()]
	delete(c.membership, conn.ID())
	rooms := make([]*room, 0, len(keys))
	for key := range keys {
		if r, ok := c.rooms[key]; ok {
			rooms = append(rooms, r)
		}
	}
	c.mu.Unlock()

	now := time.Now()
	for _, r := range rooms {
		r.mu.Lock()
		r.roster.Leave(conn.ID())
		r.cursors.Remove(conn.ID())
		delete(r.members, conn.ID())
		r.lastActivity = now
		if len(r.members) == 0 {
			r.emptySince = now
		}
		c.broadcastLocked(r, "", Outbound{
			Type:    EventPresenceList,
			Payload: PresenceList{Users: r.roster.List()},
		})
		r.mu.Unlock()

		if c.metrics != nil {
			c.metrics.activeMembers.Dec()
		}
	}

	c.observe("disconnect", start)

	if len(rooms) > 0 {
		c.logger.Info("connection left",
			"conn_id", conn.ID(),
			"rooms", len(rooms))
	}
}

// RoomInfo describes one active room for the read-only listing used by
// the landing page.
type RoomInfo struct {
	Key          string    `json:"key"`
	Members      int       `json:"members"`
	MemberNames  []string  `json:"memberNames"`
	LastActivity time.Time `json:"lastActivity"`
}

// Rooms enumerates rooms with nonzero presence, sorted by key. It is
// side-effect free.
func (c *Coordinator) Rooms() []RoomInfo {
	c.mu.RLock()
	rooms := make([]*room, 0, len(c.rooms))
	for _, r := range c.rooms {
		rooms = append(rooms, r)
	}
	c.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, r := range rooms {
		r.mu.Lock()
		if len(r.members) > 0 {
			users := r.roster.List()
			names := make([]string, len(users))
			for i, u := range users {
				names[i] = u.Name
			}
			infos = append(infos, RoomInfo{
				Key:          r.key,
				Members:      len(r.members),
				MemberNames:  names,
				LastActivity: r.lastActivity,
			})
		}
		r.mu.Unlock()
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos
}

// RoomCount returns the number of rooms currently held in memory,
// including empty rooms awaiting the sweeper.
func (c *Coordinator) RoomCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rooms)
}

// broadcastLocked fans ev out to every member except excludeID. The
// caller holds r.mu; Sender.Send never blocks, so holding the room
// mutex across the fan-out is what preserves per-recipient ordering.
func (c *Coordinator) broadcastLocked(r *room, excludeID string, ev Outbound) {
	for id, member := range r.members {
		if id == excludeID {
			continue
		}
		member.Send(ev)
	}
	if c.metrics != nil {
		c.metrics.broadcasts.WithLabelValues(ev.Type).Inc()
	}
}

// lockRoom returns the live room for key with r.mu held, creating the
// room lazily. The expired check happens under the same lock the caller
// mutates under: a room the sweeper expires between lookup and lock is
// retried, so no event ever lands in a room already removed from the
// registry. The sweeper only marks a room expired while deleting it
// from c.rooms in the same critical section, so a retry always observes
// either a live room or a missing key.
func (c *Coordinator) lockRoom(key string) (*room, error) {
	for {
		c.mu.RLock()
		if c.closed {
			c.mu.RUnlock()
			return nil, ErrClosed
		}
		r, ok := c.rooms[key]
		c.mu.RUnlock()

		if !ok {
			r = c.createRoom(key)
			if r == nil {
				return nil, ErrClosed
			}
		}

		r.mu.Lock()
		if !r.expired {
			return r, nil
		}
		r.mu.Unlock()
	}
}

func (c *Coordinator) createRoom(key string) *room {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	if r, ok := c.rooms[key]; ok {
		return r
	}

	r := &room{
		key:          key,
		elements:     board.NewStore(),
		roster:       board.NewRoster(c.palette),
		cursors:      board.NewCursors(),
		members:      make(map[string]Sender),
		lastActivity: time.Now(),
		emptySince:   time.Now(),
	}
	c.rooms[key] = r

	if c.metrics != nil {
		c.metrics.activeRooms.Set(float64(len(c.rooms)))
	}
	c.logger.Info("room created", "room", key)

	return r
}

func (c *Coordinator) trackMembership(connID, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	keys, ok := c.membership[connID]
	if !ok {
		keys = make(map[string]struct{})
		c.membership[connID] = keys
	}
	keys[key] = struct{}{}
}

// sweepLoop periodically removes rooms that have had zero presence for
// longer than the grace period. Rooms with members are never expired.
func (c *Coordinator) sweepLoop() {
	defer close(c.sweeperDone)

	ticker := time.NewTicker(c.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweepIdleRooms(time.Now())
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) sweepIdleRooms(now time.Time) {
	c.mu.Lock()

	var expired []string
	for key, r := range c.rooms {
		r.mu.Lock()
		if len(r.members) == 0 && !r.emptySince.IsZero() &&
			now.Sub(r.emptySince) > c.gracePeriod {
			r.expired = true
			expired = append(expired, key)
		}
		r.mu.Unlock()
	}
	for _, key := range expired {
		delete(c.rooms, key)
	}
	remaining := len(c.rooms)

	if c.metrics != nil {
		c.metrics.activeRooms.Set(float64(remaining))
	}
	c.mu.Unlock()

	if len(expired) > 0 {
		if c.metrics != nil {
			c.metrics.roomsExpired.Add(float64(len(expired)))
		}
		c.logger.Info("expired idle rooms",
			"count", len(expired),
			"remaining", remaining)
	}
}

func (c *Coordinator) startSpan(ctx context.Context, name, roomKey, connID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("board.conn_id", connID),
	}
	if roomKey != "" {
		attrs = append(attrs, attribute.String("board.room", roomKey))
	}
	return c.tracer.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...))
}

// drop records a rejected event and returns the classification error.
// Dropped events never mutate room state and never broadcast.
func (c *Coordinator) drop(span trace.Span, eventType string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if c.metrics != nil {
		c.metrics.eventsTotal.WithLabelValues(eventType, "dropped").Inc()
		c.metrics.eventsDropped.WithLabelValues(err.Error()).Inc()
	}
	c.logger.Warn("event dropped", "event", eventType, "reason", err)
	return err
}

// observe records a successfully processed event. Dropped events are
// recorded by drop instead.
func (c *Coordinator) observe(eventType string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.eventsTotal.WithLabelValues(eventType, "ok").Inc()
	c.metrics.eventDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
}

package board

// Cursors tracks the last-known pointer position per connection in one
// room. Positions are ephemeral presence metadata: overwritten on every
// update, dropped on leave or disconnect, and never part of the
// document. A connection with no recorded cursor is simply invisible.
type Cursors struct {
	positions map[string]Point
}

// NewCursors creates an empty cursor map.
func NewCursors() *Cursors {
	return &Cursors{
		positions: make(map[string]Point),
	}
}

// Update records the connection's position, replacing any prior one.
func (c *Cursors) Update(connID string, x, y float64) {
	c.positions[connID] = Point{X: x, Y: y}
}

// Remove drops the connection's position. No-op if absent.
func (c *Cursors) Remove(connID string) {
	delete(c.positions, connID)
}

// Get returns the connection's last-known position.
func (c *Cursors) Get(connID string) (Point, bool) {
	p, ok := c.positions[connID]
	return p, ok
}

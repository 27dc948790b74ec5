package board

import "testing"

func TestCursorsUpdateOverwrites(t *testing.T) {
	c := NewCursors()
	c.Update("c1", 10, 20)
	c.Update("c1", 30, 40)

	p, ok := c.Get("c1")
	if !ok {
		t.Fatal("cursor missing after update")
	}
	if p.X != 30 || p.Y != 40 {
		t.Errorf("position = (%v, %v), want (30, 40)", p.X, p.Y)
	}
}

func TestCursorsRemove(t *testing.T) {
	c := NewCursors()
	c.Update("c1", 1, 2)
	c.Remove("c1")

	if _, ok := c.Get("c1"); ok {
		t.Error("cursor still present after remove")
	}

	// Removing an unknown connection is not an error.
	c.Remove("ghost")
}

func TestCursorsAbsentIsInvisible(t *testing.T) {
	c := NewCursors()
	if _, ok := c.Get("never-moved"); ok {
		t.Error("unexpected cursor for connection that never moved")
	}
}

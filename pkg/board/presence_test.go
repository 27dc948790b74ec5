package board

import (
	"slices"
	"testing"
)

func TestRosterJoinOrder(t *testing.T) {
	r := NewRoster(nil)
	r.Join("c1", "ana")
	r.Join("c2", "ben")
	r.Join("c3", "cho")

	users := r.List()
	if len(users) != 3 {
		t.Fatalf("Len = %d, want 3", len(users))
	}
	for i, want := range []string{"c1", "c2", "c3"} {
		if users[i].ConnID != want {
			t.Errorf("users[%d].ConnID = %s, want %s", i, users[i].ConnID, want)
		}
	}
}

func TestRosterLeaveCompacts(t *testing.T) {
	r := NewRoster(nil)
	r.Join("c1", "ana")
	r.Join("c2", "ben")
	r.Join("c3", "cho")

	r.Leave("c2")

	users := r.List()
	if len(users) != 2 {
		t.Fatalf("Len = %d after leave, want 2", len(users))
	}
	if users[0].ConnID != "c1" || users[1].ConnID != "c3" {
		t.Errorf("order after leave = [%s %s], want [c1 c3]",
			users[0].ConnID, users[1].ConnID)
	}
}

func TestRosterLeaveIdempotent(t *testing.T) {
	r := NewRoster(nil)
	r.Join("c1", "ana")

	r.Leave("nope")
	r.Leave("c1")
	r.Leave("c1")

	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestRosterColorFromPalette(t *testing.T) {
	palette := []string{"#111111", "#222222"}
	r := NewRoster(palette)

	for i := 0; i < 50; i++ {
		u := r.Join("c", "x")
		if !slices.Contains(palette, u.Color) {
			t.Fatalf("color %q not in palette", u.Color)
		}
		r.Leave("c")
	}
}

func TestRosterNamesNotDeduplicated(t *testing.T) {
	r := NewRoster(nil)
	r.Join("c1", "twin")
	r.Join("c2", "twin")

	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2 entries sharing a name", r.Len())
	}
}

func TestRosterListIsCopy(t *testing.T) {
	r := NewRoster(nil)
	r.Join("c1", "ana")

	users := r.List()
	r.Leave("c1")

	if len(users) != 1 {
		t.Error("list snapshot mutated by later leave")
	}
}

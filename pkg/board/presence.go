package board

import "math/rand/v2"

// DefaultPalette is the fixed set of colors handed out to joining
// users. A color is picked uniformly at random per join with no
// collision avoidance: two users may share a color, and a user that
// reconnects draws again.
var DefaultPalette = []string{
	"#e6194b", // red
	"#3cb44b", // green
	"#4363d8", // blue
	"#f58231", // orange
	"#911eb4", // purple
	"#42d4f4", // cyan
	"#f032e6", // magenta
	"#ffe119", // yellow
}

// User is one presence entry in a room. It is keyed by the transport's
// connection ID, which lives only as long as the connection itself.
type User struct {
	ConnID string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
}

// Roster is the presence registry for one room. Users are listed in
// join order; a leave compacts the list without reordering the
// remaining entries. Display names are free text and not deduplicated.
type Roster struct {
	users   []User
	palette []string
}

// NewRoster creates an empty roster drawing colors from palette.
// A nil or empty palette falls back to DefaultPalette.
func NewRoster(palette []string) *Roster {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &Roster{palette: palette}
}

// Join appends a presence entry for the connection and returns it.
// The color is an independent uniform pick from the palette.
func (r *Roster) Join(connID, name string) User {
	u := User{
		ConnID: connID,
		Name:   name,
		Color:  r.palette[rand.IntN(len(r.palette))],
	}
	r.users = append(r.users, u)
	return u
}

// Leave removes the entry for the connection. It is a no-op if the
// connection never joined or already left.
func (r *Roster) Leave(connID string) {
	for i, u := range r.users {
		if u.ConnID == connID {
			r.users = append(r.users[:i], r.users[i+1:]...)
			return
		}
	}
}

// List returns the current members in join order. The returned slice
// is a copy.
func (r *Roster) List() []User {
	out := make([]User, len(r.users))
	copy(out, r.users)
	return out
}

// Len returns the number of members.
func (r *Roster) Len() int {
	return len(r.users)
}

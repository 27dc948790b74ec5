package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/boardhub/boardhub/pkg/board"
	"github.com/boardhub/boardhub/pkg/hub"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	coord := hub.New(&hub.Config{Logger: testLogger()})
	t.Cleanup(coord.Close)

	s := New(coord, Options{Logger: testLogger()})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func wsURL(t *testing.T, baseURL string) string {
	t.Helper()
	if !strings.HasPrefix(baseURL, "http") {
		t.Fatalf("unexpected base URL: %q", baseURL)
	}
	return "ws" + strings.TrimPrefix(baseURL, "http") + "/ws"
}

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(t, ts.URL), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func sendEvent(t *testing.T, ws *websocket.Conn, eventType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := ws.WriteJSON(envelope{Type: eventType, Payload: raw}); err != nil {
		t.Fatalf("write %s: %v", eventType, err)
	}
}

func readEnvelope(t *testing.T, ws *websocket.Conn) envelope {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env envelope
	if err := ws.ReadJSON(&env); err != nil {
		t.Fatalf("read envelope: %v", err)
	}
	return env
}

// waitForEvent reads until an envelope of the wanted type arrives,
// skipping unrelated broadcasts.
func waitForEvent(t *testing.T, ws *websocket.Conn, eventType string) envelope {
	t.Helper()
	for i := 0; i < 20; i++ {
		env := readEnvelope(t, ws)
		if env.Type == eventType {
			return env
		}
	}
	t.Fatalf("no %s event received", eventType)
	return envelope{}
}

func decodePayload[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(env.Payload, &out); err != nil {
		t.Fatalf("decode %s payload: %v", env.Type, err)
	}
	return out
}

func join(t *testing.T, ws *websocket.Conn, room, name string) []board.Element {
	t.Helper()
	sendEvent(t, ws, eventJoin, joinPayload{Room: room, Name: name})
	init := waitForEvent(t, ws, hub.EventInitialState)
	return decodePayload[hub.InitialState](t, init).Elements
}

func TestEndToEndMutateFlow(t *testing.T) {
	ts := newTestServer(t)

	a := dialWS(t, ts)
	if snap := join(t, a, "r1", "ana"); len(snap) != 0 {
		t.Fatalf("initial snapshot = %+v, want empty", snap)
	}
	waitForEvent(t, a, hub.EventPresenceList)

	b := dialWS(t, ts)
	join(t, b, "r1", "ben")
	waitForEvent(t, b, hub.EventPresenceList)

	// A's join-order presence view now includes B.
	users := decodePayload[hub.PresenceList](t, waitForEvent(t, a, hub.EventPresenceList)).Users
	if len(users) != 2 || users[0].Name != "ana" || users[1].Name != "ben" {
		t.Fatalf("presence = %+v, want [ana ben]", users)
	}

	el := board.Element{ID: "e1", Kind: board.KindRect, X: 0, Y: 0, Width: 10, Height: 10}
	sendEvent(t, a, eventMutate, mutatePayload{Room: "r1", Element: el})

	got := decodePayload[hub.ElementUpdated](t, waitForEvent(t, b, hub.EventElementUpdated)).Element
	if got.ID != "e1" || got.Kind != board.KindRect || got.Width != 10 || got.Height != 10 {
		t.Errorf("element = %+v, want %+v", got, el)
	}

	// A later joiner receives the element in its snapshot.
	c := dialWS(t, ts)
	snap := join(t, c, "r1", "cho")
	if len(snap) != 1 || snap[0].ID != "e1" {
		t.Fatalf("joiner snapshot = %+v, want [e1]", snap)
	}

	// Clear reaches everyone, sender included, and empties the board.
	sendEvent(t, a, eventClearBoard, roomPayload{Room: "r1"})
	waitForEvent(t, a, hub.EventBoardCleared)
	waitForEvent(t, b, hub.EventBoardCleared)
	waitForEvent(t, c, hub.EventBoardCleared)

	d := dialWS(t, ts)
	if snap := join(t, d, "r1", "dia"); len(snap) != 0 {
		t.Errorf("snapshot after clear = %+v, want empty", snap)
	}
}

func TestSenderExclusionOnMutate(t *testing.T) {
	ts := newTestServer(t)

	a := dialWS(t, ts)
	join(t, a, "r1", "ana")
	b := dialWS(t, ts)
	join(t, b, "r1", "ben")

	sendEvent(t, a, eventMutate, mutatePayload{
		Room:    "r1",
		Element: board.Element{ID: "e1", Kind: board.KindCircle, Radius: 4},
	})
	// A marker event the sender does receive; if the elementUpdated
	// echo had been sent to A it would arrive first.
	sendEvent(t, a, eventClearBoard, roomPayload{Room: "r1"})

	var seen []string
	for {
		env := readEnvelope(t, a)
		seen = append(seen, env.Type)
		if env.Type == hub.EventBoardCleared {
			break
		}
		if len(seen) > 10 {
			t.Fatal("boardCleared never arrived")
		}
	}
	for _, typ := range seen {
		if typ == hub.EventElementUpdated {
			t.Errorf("sender received its own elementUpdated echo (events: %v)", seen)
		}
	}
}

func TestCursorFlow(t *testing.T) {
	ts := newTestServer(t)

	a := dialWS(t, ts)
	join(t, a, "r1", "ana")
	b := dialWS(t, ts)
	join(t, b, "r1", "ben")

	sendEvent(t, a, eventCursorMove, cursorPayload{Room: "r1", X: 5, Y: 7})
	cu := decodePayload[hub.CursorUpdated](t, waitForEvent(t, b, hub.EventCursorUpdated))
	if cu.X != 5 || cu.Y != 7 || cu.ConnID == "" {
		t.Errorf("cursor update = %+v, want (5, 7) with conn id", cu)
	}

	sendEvent(t, a, eventCursorLeave, roomPayload{Room: "r1"})
	ch := decodePayload[hub.CursorHidden](t, waitForEvent(t, b, hub.EventCursorHidden))
	if ch.ConnID != cu.ConnID {
		t.Errorf("hidden conn = %q, want %q", ch.ConnID, cu.ConnID)
	}
}

func TestMalformedEventsAreDropped(t *testing.T) {
	ts := newTestServer(t)

	a := dialWS(t, ts)
	join(t, a, "r1", "ana")
	b := dialWS(t, ts)
	join(t, b, "r1", "ben")

	// None of these may mutate state or kill the connection.
	if err := a.WriteMessage(websocket.TextMessage, []byte("not json at all")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	sendEvent(t, a, eventMutate, mutatePayload{Room: "r1"})                  // missing element id
	sendEvent(t, a, eventMutate, mutatePayload{Element: rectElement("e1")}) // missing room
	sendEvent(t, a, "teleport", roomPayload{Room: "r1"})                    // unknown type

	// The connection is still alive: a valid mutate goes through, and
	// its arrival at B proves everything before it was processed.
	sendEvent(t, a, eventMutate, mutatePayload{Room: "r1", Element: rectElement("e9")})
	got := decodePayload[hub.ElementUpdated](t, waitForEvent(t, b, hub.EventElementUpdated)).Element
	if got.ID != "e9" {
		t.Fatalf("broadcast element = %+v, want e9", got)
	}

	c := dialWS(t, ts)
	snap := join(t, c, "r1", "cho")
	if len(snap) != 1 || snap[0].ID != "e9" {
		t.Errorf("snapshot = %+v, want only [e9]", snap)
	}
}

func rectElement(id string) board.Element {
	return board.Element{ID: id, Kind: board.KindRect, Width: 1, Height: 1}
}

func TestDisconnectUpdatesPresence(t *testing.T) {
	ts := newTestServer(t)

	a := dialWS(t, ts)
	join(t, a, "r1", "ana")
	b := dialWS(t, ts)
	join(t, b, "r1", "ben")

	// Drain A up to the two-member presence list.
	for {
		env := waitForEvent(t, a, hub.EventPresenceList)
		if len(decodePayload[hub.PresenceList](t, env).Users) == 2 {
			break
		}
	}

	b.Close()

	env := waitForEvent(t, a, hub.EventPresenceList)
	users := decodePayload[hub.PresenceList](t, env).Users
	if len(users) != 1 || users[0].Name != "ana" {
		t.Errorf("presence after disconnect = %+v, want [ana]", users)
	}
}

func TestRoomsAPI(t *testing.T) {
	ts := newTestServer(t)

	a := dialWS(t, ts)
	join(t, a, "r1", "ana")
	b := dialWS(t, ts)
	join(t, b, "r1", "ben")

	resp, err := http.Get(ts.URL + "/api/rooms")
	if err != nil {
		t.Fatalf("GET /api/rooms: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}

	var infos []hub.RoomInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("decode rooms: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("rooms = %+v, want 1 entry", infos)
	}
	if infos[0].Key != "r1" || infos[0].Members != 2 {
		t.Errorf("room = %+v, want r1 with 2 members", infos[0])
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStaticDirServed(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/index.html", []byte("<html>board</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	coord := hub.New(&hub.Config{Logger: testLogger()})
	t.Cleanup(coord.Close)
	s := New(coord, Options{Logger: testLogger(), StaticDir: dir})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

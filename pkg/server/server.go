// Package server is the transport adapter: it terminates websocket
// connections, frames events as JSON envelopes, and exposes the
// read-only HTTP surface (room listing, health, metrics, static
// client files) around the coordinator.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boardhub/boardhub/pkg/hub"
)

// Options configures the transport.
type Options struct {
	// Addr is the listen address for ListenAndServe.
	Addr string

	// AllowedOrigins restricts websocket upgrades by Origin header.
	// Empty means same-origin only; "*" allows any origin.
	AllowedOrigins []string

	// StaticDir, if set, is served at / for the client bundle.
	StaticDir string

	// ReadTimeout is the websocket read deadline.
	ReadTimeout time.Duration

	// WriteTimeout bounds each websocket write.
	WriteTimeout time.Duration

	// PingInterval is how often each connection is pinged.
	PingInterval time.Duration

	// SendQueueSize is the per-connection outbound queue length.
	SendQueueSize int

	// Logger is the structured logger. Nil means slog.Default().
	Logger *slog.Logger
}

func (o *Options) fillDefaults() {
	if o.Addr == "" {
		o.Addr = ":8080"
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = 60 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = 256
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Server owns the HTTP listener and the set of live websocket
// connections. Room state lives in the coordinator; the server only
// shuttles events between sockets and the coordinator.
type Server struct {
	coord    *hub.Coordinator
	opts     Options
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.Mutex
	conns map[string]*conn

	httpServer *http.Server
}

// New creates a Server around the coordinator.
func New(coord *hub.Coordinator, opts Options) *Server {
	opts.fillDefaults()
	logger := opts.Logger.With("component", "server")

	return &Server{
		coord: coord,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
		logger: logger,
		conns:  make(map[string]*conn),
	}
}

// originChecker builds the upgrader's origin policy. A nil return
// keeps gorilla's default same-origin check.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

// Handler returns the HTTP handler for mounting in external routers
// or an httptest server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	r.Get("/ws", s.handleWS)
	r.Get("/api/rooms", s.handleRooms)
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	if s.opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.opts.StaticDir)))
	}

	return r
}

// handleWS upgrades the request and starts the connection's pumps.
// The connection ID assigned here is the user's identity for the
// lifetime of the socket.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Warn("websocket upgrade failed",
			"remote", r.RemoteAddr,
			"error", err)
		return
	}

	c := newConn(uuid.NewString(), ws, s.coord, &s.opts, s.logger)
	c.onClose = s.untrack

	s.mu.Lock()
	s.conns[c.id] = c
	count := len(s.conns)
	s.mu.Unlock()

	s.logger.Info("connection opened",
		"conn_id", c.id,
		"remote", r.RemoteAddr,
		"active_connections", count)

	go c.writePump()
	go c.readPump()
}

func (s *Server) untrack(c *conn) {
	s.mu.Lock()
	delete(s.conns, c.id)
	count := len(s.conns)
	s.mu.Unlock()

	s.logger.Info("connection closed",
		"conn_id", c.id,
		"active_connections", count)
}

// handleRooms serves the landing page's room listing: active rooms
// with member counts, names, and last activity. Read-only.
func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.coord.Rooms()); err != nil {
		s.logger.Error("rooms encode error", "error", err)
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ListenAndServe serves until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("listening", "addr", s.opts.Addr)

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops accepting requests, closes every websocket
// connection, and waits for the HTTP server to drain within ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	conns := make([]*conn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.close()
	}

	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	s.logger.Info("server shutdown", "closed_connections", len(conns))
	return nil
}

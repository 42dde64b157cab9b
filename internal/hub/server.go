package hub

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"livetext/internal/logging"
)

// ServerOptions configures the broadcast Server.
type ServerOptions struct {
	// CheckOrigin defaults to NewCheckOrigin("") when nil.
	CheckOrigin func(r *http.Request) bool
	// WriteTimeout bounds each send; zero disables the deadline.
	WriteTimeout time.Duration
	Clock        clockwork.Clock
}

// Server accepts broadcast connections and keeps them registered in a
// ClientManager until they close. It never pings and never times out idle
// clients: the operator may stay silent for any length of time.
type Server struct {
	echo         *echo.Echo
	clients      *ClientManager
	upgrader     websocket.Upgrader
	clock        clockwork.Clock
	writeTimeout time.Duration

	// set by Shutdown; connections upgraded afterwards are dropped
	closing atomic.Bool
}

func NewServer(clients *ClientManager, opts ServerOptions) *Server {
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = NewCheckOrigin("")
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:         e,
		clients:      clients,
		upgrader:     websocket.Upgrader{CheckOrigin: checkOrigin},
		clock:        clock,
		writeTimeout: opts.WriteTimeout,
	}

	e.Use(middleware.Recover())
	e.Any("/", s.handleConnect)
	e.Any("/*", s.handleConnect)

	return s
}

// handleConnect upgrades the request and holds the connection registered
// until the transport closes, whatever the cause.
func (s *Server) handleConnect(c echo.Context) error {
	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written an error response
		slog.Debug("WebSocket upgrade failed", "remote_addr", c.Request().RemoteAddr, "error", err)
		return nil
	}

	client := newClient(uuid.NewString(), conn, s.clock.Now(), s.writeTimeout)
	log := logging.WithClient(client.ID())

	s.clients.register(client)
	defer func() {
		client.Close()
		s.clients.unregister(client)
		log.Info("Browser disconnected",
			"connected_for", s.clock.Since(client.ConnectedAt()).Round(time.Millisecond),
			"clients", s.clients.Len(),
		)
	}()

	// checked after register: either CloseAll's snapshot holds this client
	// or the flag is already visible here
	if s.closing.Load() {
		return nil
	}
	log.Info("Browser connected", "remote_addr", conn.RemoteAddr().String(), "clients", s.clients.Len())

	if err := client.waitClosed(); err != nil && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		log.Debug("Connection closed unexpectedly", "error", err)
	}
	return nil
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

// Serve blocks accepting connections from ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	slog.Info("Broadcast server started", "addr", ln.Addr().String())
	s.echo.Listener = ln
	if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("broadcast server failed: %w", err)
	}
	return nil
}

// Shutdown stops accepting new connections and drops every open one.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closing.Store(true)
	err := s.echo.Shutdown(ctx)
	s.clients.CloseAll()
	if err != nil {
		return fmt.Errorf("failed to shutdown broadcast server: %w", err)
	}
	return nil
}

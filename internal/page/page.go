package page

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// LostNotice replaces the page text once the broadcast socket closes.
const LostNotice = "Connection lost. Please restart the server and refresh the page."

//go:embed templates/*.html
var templateFiles embed.FS

type pageData struct {
	SocketURL  string
	LostNotice string
}

// Server answers every request with the same rendered page.
type Server struct {
	echo *echo.Echo
	body []byte
}

// NewServer renders the page for socketURL once and wires a catch-all route.
func NewServer(socketURL string) (*Server, error) {
	body, err := render(socketURL)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{echo: e, body: body}
	srv.registerRoutes()

	return srv, nil
}

func render(socketURL string) ([]byte, error) {
	tmpl, err := template.ParseFS(templateFiles, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, pageData{SocketURL: socketURL, LostNotice: LostNotice}); err != nil {
		return nil, fmt.Errorf("failed to render page: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Server) registerRoutes() {
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("Page request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))

	s.echo.Any("/", s.handlePage)
	s.echo.Any("/*", s.handlePage)
}

func (s *Server) handlePage(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, s.body)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Serve blocks serving requests from ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	slog.Info("HTTP server started", "url", "http://"+ln.Addr().String()+"/")
	s.echo.Listener = ln
	if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("page server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown page server: %w", err)
	}
	return nil
}

package hub

import (
	"log/slog"
	"net/http"
	"net/url"
)

// NewCheckOrigin returns a CheckOrigin function for the broadcast upgrader.
// It allows empty origins (non-browser clients), localhost origins, and
// origins on pageHost, the host the page is served from.
func NewCheckOrigin(pageHost string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil {
			slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
			return false
		}

		host := u.Hostname()
		if isLocalhost(host) || (pageHost != "" && host == pageHost) {
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func isLocalhost(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// upgrader creates a WebSocket upgrader with origin checking from config
func (s *DraftsServer) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin validates the Origin header against configured allowed origins
func (s *DraftsServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Allow requests with no origin header (e.g., CLI clients, testing)
	if origin == "" {
		return true
	}

	// Without configuration, accept localhost only
	if len(s.config.AllowedOrigins) == 0 {
		return strings.HasPrefix(origin, "http://localhost") ||
			strings.HasPrefix(origin, "https://localhost")
	}

	// Prefix matching allows any port number
	for _, allowed := range s.config.AllowedOrigins {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

package server

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/hmdraft/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Handler returns the routed HTTP handler.
func (s *DraftsServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.HandleHealth)
	mux.HandleFunc("GET /api/drafts", s.HandleListDrafts)
	mux.HandleFunc("POST /api/drafts", s.HandleCreateDraft)
	mux.HandleFunc("GET /api/drafts/{id}", s.HandleGetDraft)
	mux.HandleFunc("DELETE /api/drafts/{id}", s.HandleDeleteDraft)
	mux.HandleFunc("POST /api/drafts/{id}/changes", s.HandleUpdateDraft)
	mux.HandleFunc("GET /ws/events", s.HandleEvents)
	return s.requestIDMiddleware(s.corsMiddleware(mux))
}

// corsMiddleware adds CORS headers to HTTP responses using configured allowed origins.
// Uses the same origin validation as WebSocket connections (server.allowed_origins config)
func (s *DraftsServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestIDMiddleware tags each request with an id, reusing the caller's.
func (s *DraftsServer) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithRequestID(r.Context(), id)))
	})
}

func (s *DraftsServer) requestLogger(r *http.Request) *zap.SugaredLogger {
	return logger.LoggerFromContext(r.Context(), s.logger).With(
		logger.FieldMethod, r.Method,
		logger.FieldPath, r.URL.Path,
	)
}

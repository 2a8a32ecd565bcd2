// Package server is the daemon's HTTP surface: health, a JSON drafts API and
// a websocket stream of draft change events.
package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/teranos/hmdraft/draftstore"
	"github.com/teranos/hmdraft/logger"
)

// Config holds the server settings taken from am.ServerConfig.
type Config struct {
	// AllowedOrigins are origin prefixes accepted for CORS and websockets.
	// Requests without an Origin header are always accepted.
	AllowedOrigins []string
}

// DraftsServer serves the drafts store over HTTP.
type DraftsServer struct {
	store  *draftstore.Store
	config Config
	logger *zap.SugaredLogger

	clients map[*Client]bool
	mu      sync.RWMutex

	httpServer *http.Server
	unwatch    func()

	// Lifecycle management
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	broadcastDrops atomic.Int64
	state          atomic.Int32
}

// New creates a server for store. Draft changes committed to store are
// broadcast to /ws/events subscribers until Stop.
func New(store *draftstore.Store, cfg Config, log *zap.SugaredLogger) *DraftsServer {
	ctx, cancel := context.WithCancel(context.Background())
	s := &DraftsServer{
		store:   store,
		config:  cfg,
		logger:  logger.OrNop(log),
		clients: make(map[*Client]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
	s.unwatch = store.Watch(s.handleStoreEvent)
	return s
}

func (s *DraftsServer) handleStoreEvent(ev draftstore.Event) {
	sent := s.broadcastMessage(EventMessage{
		Type:       ev.Type,
		DocumentID: ev.DocumentID,
		Timestamp:  ev.Time.Unix(),
	})
	s.logger.Debugw("Draft event broadcast",
		"type", ev.Type,
		logger.FieldDocumentID, shortID(ev.DocumentID),
		"clients", sent,
	)
}

// broadcastMessage sends a message to all connected clients.
// Returns the number of clients that accepted the message (channel not full).
func (s *DraftsServer) broadcastMessage(msg interface{}) int {
	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		select {
		case client.sendMsg <- msg:
			sent++
		default:
			s.broadcastDrops.Add(1)
		}
	}
	return sent
}

// ClientCount is the number of connected event subscribers.
func (s *DraftsServer) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *DraftsServer) registerClient(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clients) >= MaxClients {
		return false
	}
	s.clients[c] = true
	return true
}

func (s *DraftsServer) unregisterClient(c *Client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	total := len(s.clients)
	s.mu.Unlock()

	if ok {
		c.close()
		s.logger.Infow("Client disconnected", "client_id", c.id, "total_clients", total)
	}
}

package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/teranos/hmdraft/errors"
	"github.com/teranos/hmdraft/logger"
)

// getState returns the current server state
func (s *DraftsServer) getState() ServerState {
	return ServerState(s.state.Load())
}

// setState atomically updates the server state
func (s *DraftsServer) setState(newState ServerState) {
	s.state.Store(int32(newState))
	s.logger.Infow("Server state changed", "new_state", newState.String())
}

// Serve serves HTTP on lis until Stop.
func (s *DraftsServer) Serve(lis net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.ctx },
	}

	s.logger.Infow("HTTP server listening", logger.FieldAddress, lis.Addr().String())
	if err := s.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

// Stop stops broadcasting, closes subscriber connections and shuts the HTTP
// server down within ctx.
func (s *DraftsServer) Stop(ctx context.Context) error {
	if s.getState() == ServerStateStopped {
		return nil
	}
	s.setState(ServerStateDraining)
	s.unwatch()

	var shutdownErr error
	if s.httpServer != nil {
		shutdownErr = s.httpServer.Shutdown(ctx)
	}

	// Cancelling the context sends a close frame from every write pump
	s.cancel()

	s.mu.Lock()
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Infow("All client goroutines stopped")
	case <-ctx.Done():
		s.logger.Warnw("Client shutdown cut short", logger.FieldError, ctx.Err())
	case <-time.After(ShutdownTimeout):
		s.logger.Warnw("Client shutdown timed out", "timeout", ShutdownTimeout)
	}
	for _, c := range clients {
		c.close()
	}

	s.setState(ServerStateStopped)
	s.logger.Infow("Server shutdown complete", "broadcast_drops", s.broadcastDrops.Load())
	return errors.Wrap(shutdownErr, "http shutdown")
}

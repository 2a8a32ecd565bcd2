package server

import (
	"time"

	"github.com/teranos/hmdraft/docmodel"
)

// Server limits
const (
	// MaxClients is the maximum number of concurrent event subscribers
	MaxClients = 100
	// MaxClientMessageQueueSize is the size of per-client message queues
	MaxClientMessageQueueSize = 256
	// ShutdownTimeout bounds how long Stop waits for client goroutines
	ShutdownTimeout = 10 * time.Second
)

// ServerState is the daemon lifecycle state.
type ServerState int32

const (
	ServerStateRunning  ServerState = iota // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

func (s ServerState) String() string {
	switch s {
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// EventMessage is pushed to /ws/events subscribers when a draft changes.
type EventMessage struct {
	Type       string `json:"type"`
	DocumentID string `json:"document_id"`
	Timestamp  int64  `json:"timestamp"`
}

// VersionMessage is the first message every subscriber receives.
type VersionMessage struct {
	Type       string `json:"type"`
	Version    string `json:"version"`
	APIVersion string `json:"api_version"`
	Commit     string `json:"commit"`
}

// UpdateRequest is the body of POST /api/drafts/{id}/changes.
type UpdateRequest struct {
	Changes []docmodel.DocumentChange `json:"changes"`
}

package server

// HTTP handlers:
// - Health checks (HandleHealth)
// - Drafts API (HandleListDrafts, HandleCreateDraft, HandleGetDraft,
//   HandleUpdateDraft, HandleDeleteDraft)
// - Draft event stream (HandleEvents)

import (
	"fmt"
	"net/http"
	"time"

	"github.com/teranos/hmdraft/docmodel"
	"github.com/teranos/hmdraft/draft"
	"github.com/teranos/hmdraft/draftstore"
	"github.com/teranos/hmdraft/logger"
	"github.com/teranos/hmdraft/version"
)

// HandleHealth serves health check endpoint with version info
func (s *DraftsServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.Get()

	health := map[string]interface{}{
		"status":      "ok",
		"state":       s.getState().String(),
		"version":     versionInfo.Version,
		"api_version": versionInfo.APIVersion,
		"commit":      versionInfo.CommitHash,
		"build_time":  versionInfo.BuildTime,
		"clients":     s.ClientCount(),
	}

	writeJSON(w, http.StatusOK, health)
}

// HandleListDrafts lists drafts, most recently updated first
func (s *DraftsServer) HandleListDrafts(w http.ResponseWriter, r *http.Request) {
	drafts, err := s.store.ListDrafts(r.Context())
	if err != nil {
		s.requestLogger(r).Errorw("Failed to list drafts", logger.FieldError, err)
		writeDomainError(w, err)
		return
	}
	if drafts == nil {
		drafts = []draftstore.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"drafts": drafts})
}

// HandleCreateDraft creates an empty draft
func (s *DraftsServer) HandleCreateDraft(w http.ResponseWriter, r *http.Request) {
	var opts draft.CreateOptions
	if err := readJSON(w, r, &opts); err != nil {
		return
	}
	doc, err := s.store.CreateDraft(r.Context(), opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// HandleGetDraft returns one draft in its nested form
func (s *DraftsServer) HandleGetDraft(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.GetDraft(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// HandleUpdateDraft applies an ordered change-list
func (s *DraftsServer) HandleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req UpdateRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}

	start := time.Now()
	doc, err := s.store.UpdateDraft(r.Context(), id, req.Changes)
	if err != nil {
		s.requestLogger(r).Infow("Draft update rejected",
			logger.FieldDocumentID, shortID(id),
			logger.FieldChangeCount, len(req.Changes),
			logger.FieldError, err,
		)
		writeDomainError(w, err)
		return
	}

	counts := docmodel.CountByKind(req.Changes)
	s.requestLogger(r).Debugw("Draft updated over HTTP",
		logger.FieldDocumentID, shortID(id),
		logger.FieldChangeCount, len(req.Changes),
		logger.FieldDeleteCount, counts[docmodel.KindDeleteBlock],
		logger.FieldDurationMS, time.Since(start).Milliseconds(),
	)
	writeJSON(w, http.StatusOK, doc)
}

// HandleDeleteDraft removes a draft
func (s *DraftsServer) HandleDeleteDraft(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDraft(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEvents upgrades to a websocket and streams draft change events
func (s *DraftsServer) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if s.getState() != ServerStateRunning {
		writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}

	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.requestLogger(r).Warnw("WebSocket upgrade failed", logger.FieldError, err)
		return
	}

	client := &Client{
		server:  s,
		conn:    conn,
		sendMsg: make(chan interface{}, MaxClientMessageQueueSize),
		done:    make(chan struct{}),
		id:      fmt.Sprintf("%s_%d", r.RemoteAddr, time.Now().UnixNano()),
	}
	if !s.registerClient(client) {
		s.logger.Warnw("Max clients reached, rejecting connection",
			"client_id", client.id,
			"max_clients", MaxClients,
		)
		client.close()
		return
	}

	// Queued before the pumps start, so it is always the first message
	info := version.Get()
	client.sendMsg <- VersionMessage{
		Type:       "version",
		Version:    info.Version,
		APIVersion: info.APIVersion,
		Commit:     info.CommitHash,
	}

	s.logger.Infow("Client connected", "client_id", client.id, "total_clients", s.ClientCount())

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		client.writePump()
	}()
	go func() {
		defer s.wg.Done()
		client.readPump()
	}()
}

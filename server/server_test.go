package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/hmdraft/docmodel"
	"github.com/teranos/hmdraft/draftstore"
	"github.com/teranos/hmdraft/errors"
	hmtest "github.com/teranos/hmdraft/internal/testing"
	"github.com/teranos/hmdraft/version"
)

func newTestServer(t *testing.T, cfg Config) (*DraftsServer, *httptest.Server) {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	store := draftstore.New(hmtest.CreateTestDB(t), log)
	s := New(store, cfg, log)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.Stop(ctx)
		ts.Close()
	})
	return s, ts
}

func doJSON(t *testing.T, method, url string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestHandleHealth(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	var health map[string]interface{}
	resp := doJSON(t, http.MethodGet, ts.URL+"/health", nil, &health)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "running", health["state"])
	assert.Equal(t, version.APIVersion, health["api_version"])
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "req-42", resp.Header.Get(RequestIDHeader))
}

func TestDraftsAPI(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	var created docmodel.Document
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/drafts", map[string]string{"title": "HTTP draft"}, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.NotEmpty(t, created.ID)

	var updated docmodel.Document
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/drafts/"+created.ID+"/changes", UpdateRequest{
		Changes: []docmodel.DocumentChange{
			docmodel.NewMoveBlock("a", "", ""),
			docmodel.NewReplaceBlock(&docmodel.Block{ID: "a", Type: "paragraph", Text: "body"}),
		},
	}, &updated)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, updated.Children, 1)

	var got docmodel.Document
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/drafts/"+created.ID, nil, &got)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "body", got.Children[0].Block.Text)

	var list struct {
		Drafts []draftstore.Summary `json:"drafts"`
	}
	doJSON(t, http.MethodGet, ts.URL+"/api/drafts", nil, &list)
	require.Len(t, list.Drafts, 1)
	assert.Equal(t, "HTTP draft", list.Drafts[0].Title)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/drafts/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	doJSON(t, http.MethodGet, ts.URL+"/api/drafts", nil, &list)
	assert.Empty(t, list.Drafts)
}

func TestDraftsAPI_ErrorStatus(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	var created docmodel.Document
	doJSON(t, http.MethodPost, ts.URL+"/api/drafts", map[string]string{"existingDocumentId": "doc-1"}, &created)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"missing draft", http.MethodGet, "/api/drafts/nope", nil, http.StatusNotFound},
		{"duplicate draft", http.MethodPost, "/api/drafts", map[string]string{"existingDocumentId": "doc-1"}, http.StatusConflict},
		{"empty change-list", http.MethodPost, "/api/drafts/doc-1/changes", UpdateRequest{}, http.StatusBadRequest},
		{"invalid change", http.MethodPost, "/api/drafts/doc-1/changes", UpdateRequest{
			Changes: []docmodel.DocumentChange{docmodel.NewReplaceBlock(&docmodel.Block{ID: "ghost"})},
		}, http.StatusUnprocessableEntity},
		{"delete missing", http.MethodDelete, "/api/drafts/nope", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			resp := doJSON(t, tt.method, ts.URL+tt.path, tt.body, &body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestDraftsAPI_MalformedBody(t *testing.T) {
	_, ts := newTestServer(t, Config{})

	resp, err := http.Post(ts.URL+"/api/drafts", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, httpStatus(errors.New("disk full")))
	assert.Equal(t, http.StatusNotFound, httpStatus(errors.NewNotFoundError("x")))
}

func dialEvents(t *testing.T, ts *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/events"
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestEvents_BroadcastsDraftChanges(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	conn := dialEvents(t, ts, nil)

	hello := readMessage(t, conn)
	assert.Equal(t, "version", hello["type"])
	assert.Equal(t, version.APIVersion, hello["api_version"])
	assert.Equal(t, 1, s.ClientCount())

	var created docmodel.Document
	doJSON(t, http.MethodPost, ts.URL+"/api/drafts", map[string]string{"existingDocumentId": "doc-1"}, &created)
	doJSON(t, http.MethodPost, ts.URL+"/api/drafts/doc-1/changes", UpdateRequest{
		Changes: []docmodel.DocumentChange{docmodel.NewSetTitle("t")},
	}, nil)
	doJSON(t, http.MethodDelete, ts.URL+"/api/drafts/doc-1", nil, nil)

	for _, want := range []string{draftstore.EventDraftCreated, draftstore.EventDraftUpdated, draftstore.EventDraftDeleted} {
		msg := readMessage(t, conn)
		assert.Equal(t, want, msg["type"])
		assert.Equal(t, "doc-1", msg["document_id"])
	}
}

func TestEvents_ClientDisconnect(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	conn := dialEvents(t, ts, nil)
	readMessage(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")))
	conn.Close()

	require.Eventually(t, func() bool { return s.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestEvents_RejectsForeignOrigin(t *testing.T) {
	_, ts := newTestServer(t, Config{AllowedOrigins: []string{"http://localhost"}})

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example"}})
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn := dialEvents(t, ts, http.Header{"Origin": []string{"http://localhost:3000"}})
	assert.Equal(t, "version", readMessage(t, conn)["type"])
}

func TestStop_ClosesSubscribers(t *testing.T) {
	s, ts := newTestServer(t, Config{})
	conn := dialEvents(t, ts, nil)
	readMessage(t, conn)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "%v", err)
	assert.Equal(t, ServerStateStopped, s.getState())

	resp, err := http.Get(ts.URL + "/ws/events")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

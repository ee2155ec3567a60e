package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/colonyops/casetrack/internal/casework"
	"github.com/colonyops/casetrack/internal/core/config"
	"github.com/colonyops/casetrack/internal/core/dashboard"
	"github.com/colonyops/casetrack/internal/core/task"
	"github.com/colonyops/casetrack/pkg/iojson"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	api *Server
	app *casework.App
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Storage.MaxSizeBytes = 1024

	app, err := casework.Open(ctx, &cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	app.Start(ctx)

	srv := New(app, zerolog.Nop())
	require.NoError(t, srv.Hub().Start(ctx))
	t.Cleanup(srv.Hub().Close)

	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	return &testServer{Server: hs, api: srv, app: app}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		bits, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(bits)
	}

	req, err := http.NewRequest(method, ts.URL+path, r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (ts *testServer) create(t *testing.T, title string, caseID string) task.Task {
	t.Helper()
	body := map[string]any{
		"title":       title,
		"dueDateTime": time.Now().Add(time.Hour).Format(time.RFC3339),
	}
	if caseID != "" {
		body["caseId"] = caseID
	}
	resp := ts.do(t, http.MethodPost, "/tasks", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[task.Task](t, resp)
}

func TestTasksCRUD(t *testing.T) {
	ts := newTestServer(t)

	created := ts.create(t, "Call client", "CASE-9")
	assert.Equal(t, task.StatusNew, created.Status)
	assert.Equal(t, task.PriorityMedium, created.Priority)

	resp := ts.do(t, http.MethodGet, "/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, decode[task.Task](t, resp).ID)

	resp = ts.do(t, http.MethodPatch, "/tasks/"+created.ID, map[string]any{"status": "COMPLETED"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[task.Task](t, resp)
	assert.Equal(t, task.StatusCompleted, updated.Status)
	assert.Equal(t, "Call client", updated.Title)

	resp = ts.do(t, http.MethodDelete, "/tasks/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, http.MethodGet, "/tasks/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPatchNullClearsField(t *testing.T) {
	ts := newTestServer(t)
	created := ts.create(t, "Call client", "CASE-9")
	require.NotNil(t, created.CaseID)

	resp := ts.do(t, http.MethodPatch, "/tasks/"+created.ID, map[string]any{"title": "Call client back"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	kept := decode[task.Task](t, resp)
	require.NotNil(t, kept.CaseID)
	assert.Equal(t, "CASE-9", *kept.CaseID)

	resp = ts.do(t, http.MethodPatch, "/tasks/"+created.ID, map[string]any{"caseId": nil})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cleared := decode[task.Task](t, resp)
	assert.Nil(t, cleared.CaseID)
	assert.Equal(t, "Call client back", cleared.Title)
}

func TestListTasksFilters(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, "Call client", "CASE-9")
	ts.create(t, "File report", "")

	resp := ts.do(t, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]task.Task](t, resp), 2)

	resp = ts.do(t, http.MethodGet, "/tasks?status=ALL&priority=ALL&q=case-9", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]task.Task](t, resp)
	require.Len(t, list, 1)
	assert.Equal(t, "Call client", list[0].Title)

	resp = ts.do(t, http.MethodGet, "/tasks?status=ARCHIVED", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)

	t.Run("validation errors carry fields", func(t *testing.T) {
		resp := ts.do(t, http.MethodPost, "/tasks", map[string]any{"title": "ab"})
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

		body := decode[iojson.Error](t, resp)
		fields, ok := body.Data["fields"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, fields, "title")
		assert.Contains(t, fields, "dueDateTime")
	})

	t.Run("malformed body", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, ts.URL+"/tasks", strings.NewReader("{"))
		require.NoError(t, err)
		resp, err := ts.Client().Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("update of missing task", func(t *testing.T) {
		resp := ts.do(t, http.MethodPatch, "/tasks/missing", map[string]any{"status": "BLOCKED"})
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("status codes", func(t *testing.T) {
		tests := []struct {
			err  error
			want int
		}{
			{&task.ValidationError{Err: assert.AnError}, http.StatusUnprocessableEntity},
			{task.ErrNotFound, http.StatusNotFound},
			{&task.StoreError{Op: "update", Err: task.ErrNotFound}, http.StatusNotFound},
			{&task.StoreError{Op: "list", Err: assert.AnError}, http.StatusBadGateway},
			{casework.ErrAttachmentIndex, http.StatusNotFound},
			{assert.AnError, http.StatusInternalServerError},
		}
		for _, tt := range tests {
			assert.Equal(t, tt.want, errorStatus(tt.err), "%v", tt.err)
		}
	})
}

func TestDashboardAndBoard(t *testing.T) {
	ts := newTestServer(t)
	ts.create(t, "Call client", "")
	done := ts.create(t, "File report", "")
	ts.do(t, http.MethodPatch, "/tasks/"+done.ID, map[string]any{"status": "COMPLETED"})

	resp := ts.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[dashboard.View](t, resp)
	assert.Equal(t, 2, view.Summary.Total)
	assert.Equal(t, 50, view.Summary.CompletionRate)
	assert.Len(t, view.ByPriority, 3)

	resp = ts.do(t, http.MethodGet, "/board", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board := decode[[]dashboard.Column](t, resp)
	assert.Len(t, board, len(task.Statuses()))
}

func uploadRequest(t *testing.T, url, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAttachments(t *testing.T) {
	ts := newTestServer(t)
	created := ts.create(t, "Collect documents", "")

	req := uploadRequest(t, ts.URL+"/tasks/"+created.ID+"/attachments", "notes.txt", "hello attachment")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	withFile := decode[task.Task](t, resp)
	require.Len(t, withFile.Attachments, 1)
	a := withFile.Attachments[0]
	assert.Equal(t, "notes.txt", a.Name)
	assert.Equal(t, int64(16), a.Size)

	// Served back under /files using the path from the public URL.
	path := strings.TrimPrefix(a.URL, ts.app.Config.Storage.PublicBaseURL)
	fileResp, err := ts.Client().Get(ts.URL + "/files" + path)
	require.NoError(t, err)
	defer func() { _ = fileResp.Body.Close() }()
	require.Equal(t, http.StatusOK, fileResp.StatusCode)
	data, err := io.ReadAll(fileResp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello attachment", string(data))

	resp = ts.do(t, http.MethodDelete, "/tasks/"+created.ID+"/attachments/5", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/tasks/"+created.ID+"/attachments/x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, http.MethodDelete, "/tasks/"+created.ID+"/attachments/0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[task.Task](t, resp).Attachments)
}

func TestAttachmentTooLarge(t *testing.T) {
	ts := newTestServer(t)
	created := ts.create(t, "Collect documents", "")

	req := uploadRequest(t, ts.URL+"/tasks/"+created.ID+"/attachments", "big.txt", strings.Repeat("x", 2048))
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestWebsocketPushesChanges(t *testing.T) {
	ts := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return ts.api.Hub().Clients() == 1 }, time.Second, 5*time.Millisecond)

	ts.create(t, "Call client", "")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTasksChanged, msg.Type)
}

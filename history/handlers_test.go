package history

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlersEnv(t *testing.T) (http.Handler, *Service, *flakyPrefs) {
	t.Helper()
	svc, prefs := setupService(t)
	return NewHandlers(svc).Router(), svc, prefs
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeHistory(t *testing.T, w *httptest.ResponseRecorder) HistoryResponse {
	t.Helper()
	var resp HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleList_Empty(t *testing.T) {
	h, _, _ := setupHandlersEnv(t)

	w := do(t, h, http.MethodGet, "/api/history", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items": []}`, w.Body.String())
}

func TestHandleBatch_AddsAndLists(t *testing.T) {
	h, _, prefs := setupHandlersEnv(t)

	w := do(t, h, http.MethodPost, "/api/hooks/batch", Batch{Imported: []string{"Assets/a.png", "Assets/b.png"}})
	require.Equal(t, http.StatusOK, w.Code)
	var br BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &br))
	assert.Equal(t, 2, br.Result.Added)

	w = do(t, h, http.MethodGet, "/api/history", nil)
	assert.Equal(t, keys("Assets/b.png", "Assets/a.png"), decodeHistory(t, w).Items)
	assert.Equal(t, `Assets/b.png\Assets/a.png`, stored(t, prefs))
}

func TestHandleBatch_MovedFromField(t *testing.T) {
	h, svc, _ := setupHandlersEnv(t)
	_, err := svc.Add("a/old.png")
	require.NoError(t, err)

	body := `{"imported":["a/new.png"],"moved":["a/new.png"],"movedFrom":["a/old.png"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/hooks/batch", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, keys("a/new.png"), svc.History())
}

func TestHandleBatch_BadBody(t *testing.T) {
	h, _, _ := setupHandlersEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/hooks/batch", strings.NewReader("{nope"))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleBatch_FlushFailure(t *testing.T) {
	h, _, prefs := setupHandlersEnv(t)
	prefs.failSet = true

	w := do(t, h, http.MethodPost, "/api/hooks/batch", Batch{Imported: []string{"a.png"}})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var br BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &br))
	assert.Equal(t, 1, br.Result.Added)
	assert.Contains(t, br.Error, errPrefsDown.Error())
}

func TestHandleHooks_SuppressHostChanges(t *testing.T) {
	h, svc, _ := setupHandlersEnv(t)

	w := do(t, h, http.MethodPost, "/api/hooks/will-save", map[string]any{"paths": []string{"Assets/x.png.meta"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"paths": ["Assets/x.png.meta"]}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/api/hooks/will-move", map[string]string{"from": "a.png", "to": "b.png"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodPost, "/api/hooks/will-create", map[string]string{"path": "c.png"})
	require.Equal(t, http.StatusNoContent, w.Code)

	do(t, h, http.MethodPost, "/api/hooks/batch", Batch{Imported: []string{"Assets/x.png", "b.png", "c.png"}})

	assert.Equal(t, keys("c.png"), svc.History())
}

func TestHandleWillSave_EchoesPathsUnchanged(t *testing.T) {
	h, _, _ := setupHandlersEnv(t)

	paths := []string{"Assets/b.png", "", `Assets\a.png.meta`, "Assets/b.png"}
	w := do(t, h, http.MethodPost, "/api/hooks/will-save", map[string]any{"paths": paths})

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Paths []string `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, paths, resp.Paths, "order, duplicates and empty entries are kept")
}

func TestHandleWillMove_MissingDestination(t *testing.T) {
	h, _, _ := setupHandlersEnv(t)
	w := do(t, h, http.MethodPost, "/api/hooks/will-move", map[string]string{"from": "a.png"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleAddRemoveClear(t *testing.T) {
	h, _, prefs := setupHandlersEnv(t)

	w := do(t, h, http.MethodPost, "/api/history/entry", map[string]string{"path": `Assets\a.png`})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, keys("Assets/a.png"), decodeHistory(t, w).Items)
	w = do(t, h, http.MethodPost, "/api/history/entry", map[string]string{"path": "Assets/b.png"})
	assert.Equal(t, keys("Assets/b.png", "Assets/a.png"), decodeHistory(t, w).Items)

	w = do(t, h, http.MethodDelete, "/api/history/entry?path=Assets/b.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, keys("Assets/a.png"), decodeHistory(t, w).Items)

	w = do(t, h, http.MethodDelete, "/api/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeHistory(t, w).Items)
	assert.Equal(t, "", stored(t, prefs))
}

func TestHandleAddRemove_MissingPath(t *testing.T) {
	h, _, _ := setupHandlersEnv(t)

	w := do(t, h, http.MethodPost, "/api/history/entry", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodDelete, "/api/history/entry", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleClear_FlushFailure(t *testing.T) {
	h, svc, prefs := setupHandlersEnv(t)
	_, err := svc.Add("a.png")
	require.NoError(t, err)
	prefs.failSet = true

	w := do(t, h, http.MethodDelete, "/api/history", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeHistory(t, w)
	assert.Empty(t, resp.Items)
	assert.NotEmpty(t, resp.Error)
}

func TestHandleStats(t *testing.T) {
	h, svc, _ := setupHandlersEnv(t)
	svc.NotifyWillMove("a.png", "b.png")

	w := do(t, h, http.MethodGet, "/api/stats", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var stats Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.PendingMarks)
	assert.Equal(t, DefaultHistoryLength, stats.Max)
	assert.Equal(t, DefaultBulkThreshold, stats.BulkThreshold)
	assert.Contains(t, stats.IgnoredExtensions, ".mat")
}

func TestHandleMethodNotAllowed(t *testing.T) {
	h, _, _ := setupHandlersEnv(t)
	w := do(t, h, http.MethodPut, "/api/history", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleStream(t *testing.T) {
	h, svc, _ := setupHandlersEnv(t)
	_, err := svc.Add("first.png")
	require.NoError(t, err)

	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/history/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck

	var ev HistoryEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventReload, ev.Type)
	assert.Equal(t, keys("first.png"), ev.Entries)

	require.Eventually(t, func() bool { return svc.Events().Len() == 1 }, time.Second, 10*time.Millisecond)

	_, err = svc.NotifyBatch(Batch{Imported: []string{"second.png"}})
	require.NoError(t, err)

	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, EventBatch, ev.Type)
	assert.Equal(t, keys("second.png", "first.png"), ev.Entries)
}

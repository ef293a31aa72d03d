package history

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/tomasen/realip"
)

// maxBodyBytes bounds hook request bodies. A bulk batch of a few thousand
// paths fits comfortably.
const maxBodyBytes = 8 << 20

// HistoryResponse is the body of GET /api/history.
type HistoryResponse struct {
	Items []PathKey `json:"items"`
	Error string    `json:"error,omitempty"`
}

type pathRequest struct {
	Path string `json:"path"`
}

type pathsRequest struct {
	Paths []string `json:"paths"`
}

type moveRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// BatchResponse is the body returned by POST /api/hooks/batch.
type BatchResponse struct {
	Result Result `json:"result"`
	Error  string `json:"error,omitempty"`
}

// Handlers exposes a Service over HTTP, so a host running in another process
// can deliver its pre- and post-change callbacks.
type Handlers struct {
	svc      *Service
	upgrader websocket.Upgrader
}

// NewHandlers creates the HTTP handlers for svc.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{
		svc: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

// Router returns the API routes wrapped in request logging.
func (h *Handlers) Router() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/history", h.HandleList).Methods(http.MethodGet)
	api.HandleFunc("/history", h.HandleClear).Methods(http.MethodDelete)
	api.HandleFunc("/history/entry", h.HandleAdd).Methods(http.MethodPost)
	api.HandleFunc("/history/entry", h.HandleRemove).Methods(http.MethodDelete)
	api.HandleFunc("/history/ws", h.HandleStream).Methods(http.MethodGet)

	api.HandleFunc("/hooks/will-create", h.HandleWillCreate).Methods(http.MethodPost)
	api.HandleFunc("/hooks/will-save", h.HandleWillSave).Methods(http.MethodPost)
	api.HandleFunc("/hooks/will-move", h.HandleWillMove).Methods(http.MethodPost)
	api.HandleFunc("/hooks/batch", h.HandleBatch).Methods(http.MethodPost)

	api.HandleFunc("/stats", h.HandleStats).Methods(http.MethodGet)

	r.Use(logRequests)
	return r
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		sub("http").Debug("request",
			"method", r.Method, "path", r.URL.Path,
			"client", realip.FromRequest(r), "took", time.Since(start))
	})
}

// HandleList handles GET /api/history.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HistoryResponse{Items: h.svc.History()})
}

// HandleClear handles DELETE /api/history.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	sub("handlers").Info("HTTP clear history", "client", realip.FromRequest(r))
	err := h.svc.Clear()
	h.writeHistory(w, err)
}

// HandleAdd handles POST /api/history/entry {"path": ...}.
func (h *Handlers) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		http.Error(w, "missing path", http.StatusBadRequest)
		return
	}
	_, err := h.svc.Add(req.Path)
	h.writeHistory(w, err)
}

// HandleRemove handles DELETE /api/history/entry?path=<path>.
func (h *Handlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		http.Error(w, "missing path", http.StatusBadRequest)
		return
	}
	err := h.svc.Remove(path)
	h.writeHistory(w, err)
}

// HandleWillCreate handles POST /api/hooks/will-create {"path": ...}.
func (h *Handlers) HandleWillCreate(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decode(w, r, &req) {
		return
	}
	h.svc.NotifyWillCreate(req.Path)
	w.WriteHeader(http.StatusNoContent)
}

// HandleWillSave handles POST /api/hooks/will-save {"paths": [...]}.
// The response echoes the paths the host should save.
func (h *Handlers) HandleWillSave(w http.ResponseWriter, r *http.Request) {
	var req pathsRequest
	if !decode(w, r, &req) {
		return
	}
	paths := h.svc.NotifyWillSave(req.Paths)
	writeJSON(w, http.StatusOK, pathsRequest{Paths: paths})
}

// HandleWillMove handles POST /api/hooks/will-move {"from": ..., "to": ...}.
func (h *Handlers) HandleWillMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if !decode(w, r, &req) {
		return
	}
	if req.To == "" {
		http.Error(w, "missing destination", http.StatusBadRequest)
		return
	}
	h.svc.NotifyWillMove(req.From, req.To)
	w.WriteHeader(http.StatusNoContent)
}

// HandleBatch handles POST /api/hooks/batch with a Batch body.
func (h *Handlers) HandleBatch(w http.ResponseWriter, r *http.Request) {
	var b Batch
	if !decode(w, r, &b) {
		return
	}
	res, err := h.svc.NotifyBatch(b)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, BatchResponse{Result: res, Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, BatchResponse{Result: res})
}

// HandleStats handles GET /api/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Stats())
}

// HandleStream handles GET /api/history/ws. The client first receives the
// current list, then one message per change.
func (h *Handlers) HandleStream(w http.ResponseWriter, r *http.Request) {
	l := sub("handlers")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Warn("websocket upgrade failed", "client", realip.FromRequest(r), "err", err)
		return
	}
	defer conn.Close()

	events := h.svc.Events().Subscribe()
	defer h.svc.Events().Unsubscribe(events)

	// Reader goroutine: notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	initial := HistoryEvent{Type: EventReload, Time: nowFunc(), Entries: h.svc.History()}
	if err := conn.WriteJSON(initial); err != nil {
		return
	}
	l.Debug("stream client connected", "client", realip.FromRequest(r), "subscribers", h.svc.Events().Len())

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev := <-events:
			conn.SetWriteDeadline(time.Now().Add(5 * time.Second)) //nolint:errcheck
			if err := conn.WriteJSON(ev); err != nil {
				l.Debug("stream write failed", "err", err)
				return
			}
		}
	}
}

// writeHistory answers with the current list; a flush error becomes a 500
// that still carries the in-memory list.
func (h *Handlers) writeHistory(w http.ResponseWriter, err error) {
	resp := HistoryResponse{Items: h.svc.History()}
	status := http.StatusOK
	if err != nil {
		resp.Error = err.Error()
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, resp)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		sub("handlers").Warn("bad request body", "path", r.URL.Path, "err", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

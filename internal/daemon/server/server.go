// Package server provides the HTTP API of finderd over a Unix socket.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/finder/errors"
	"github.com/grovetools/finder/internal/daemon/engine"
	"github.com/grovetools/finder/internal/history"
	"github.com/grovetools/finder/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// RunningConfig is exposed via /api/config so clients can see what the
// daemon is actually using.
type RunningConfig struct {
	ScenariosFile string        `json:"scenarios_file"`
	HistoryDB     string        `json:"history_db,omitempty"`
	SearchTimeout time.Duration `json:"search_timeout"`
	Workers       int           `json:"workers"`
	Exclude       []string      `json:"exclude,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	PID           int           `json:"pid"`
}

// Server manages the daemon's HTTP server.
type Server struct {
	logger    *logrus.Entry
	server    *http.Server
	engine    *engine.Engine
	startedAt time.Time
	upgrader  websocket.Upgrader
}

// New creates a new Server instance.
func New(eng *engine.Engine, logger *logrus.Entry) *Server {
	return &Server{
		logger:    logger,
		engine:    eng,
		startedAt: time.Now(),
		upgrader: websocket.Upgrader{
			// Only local processes can reach the socket.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/scenarios", s.handleListScenarios)
	mux.HandleFunc("PUT /api/scenarios", s.handleSetAll)
	mux.HandleFunc("POST /api/scenarios", s.handleAdd)
	mux.HandleFunc("DELETE /api/scenarios", s.handleReset)
	mux.HandleFunc("PUT /api/scenarios/{index}", s.handleUpdateAt)
	mux.HandleFunc("DELETE /api/scenarios/{index}", s.handleRemoveAt)

	mux.HandleFunc("GET /api/stream", s.handleStream)
	mux.HandleFunc("GET /api/ws", s.handleWebSocket)

	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/search/cancel", s.handleCancel)

	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/history", s.handleClearHistory)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)

	return mux
}

// ListenAndServe starts the daemon on the given unix socket path.
// It blocks until the server stops or fails.
func (s *Server) ListenAndServe(socketPath string) error {
	// Cleanup stale socket
	if _, err := os.Stat(socketPath); err == nil {
		if err := os.Remove(socketPath); err != nil {
			return fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}

	if err := os.Chmod(socketPath, 0600); err != nil {
		_ = listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.server = &http.Server{
		Handler: h2c.NewHandler(s.Handler(), &http2.Server{}),
	}

	s.logger.WithField("socket", socketPath).Info("Daemon listening")
	return s.server.Serve(listener)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Collection().Scenarios())
}

func (s *Server) handleSetAll(w http.ResponseWriter, r *http.Request) {
	var list []models.SearchScenario
	if !s.decode(w, r, &list) {
		return
	}
	for _, sc := range list {
		if err := sc.Validate(); err != nil {
			s.writeError(w, invalidScenario(err))
			return
		}
	}
	s.engine.Collection().SetAll(list)
	s.respondScenarios(w)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var sc models.SearchScenario
	if !s.decode(w, r, &sc) {
		return
	}
	if err := sc.Validate(); err != nil {
		s.writeError(w, invalidScenario(err))
		return
	}
	s.engine.Collection().Add(sc)
	s.respondScenarios(w)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.engine.Collection().Reset()
	s.respondScenarios(w)
}

func (s *Server) handleUpdateAt(w http.ResponseWriter, r *http.Request) {
	index, ok := s.pathIndex(w, r)
	if !ok {
		return
	}
	var sc models.SearchScenario
	if !s.decode(w, r, &sc) {
		return
	}
	if err := sc.Validate(); err != nil {
		s.writeError(w, invalidScenario(err))
		return
	}
	if err := s.engine.Collection().UpdateAt(index, sc); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondScenarios(w)
}

func (s *Server) handleRemoveAt(w http.ResponseWriter, r *http.Request) {
	index, ok := s.pathIndex(w, r)
	if !ok {
		return
	}
	if err := s.engine.Collection().RemoveAt(index); err != nil {
		s.writeError(w, err)
		return
	}
	s.respondScenarios(w)
}

func (s *Server) respondScenarios(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, s.engine.Collection().Scenarios())
}

func (s *Server) pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.PathValue("index")
	index, err := strconv.Atoi(raw)
	if err != nil {
		s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "index must be an integer").WithDetail("index", raw))
		return 0, false
	}
	return index, true
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.engine.Search(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	n := s.engine.CancelSearches()
	writeJSON(w, http.StatusOK, models.CancelResponse{Cancelled: n})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	hist := s.engine.History()
	if hist == nil {
		writeJSON(w, http.StatusOK, []history.Entry{})
		return
	}
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, errors.New(errors.ErrCodeInvalidInput, "limit must be an integer"))
			return
		}
		limit = n
	}
	entries, err := hist.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	var n int64
	if hist := s.engine.History(); hist != nil {
		var err error
		if n, err = hist.Clear(r.Context()); err != nil {
			s.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	cfg := s.engine.Config()
	rc := RunningConfig{
		ScenariosFile: cfg.Storage.ScenariosFile,
		SearchTimeout: cfg.SearchTimeout(),
		Workers:       cfg.Search.Workers,
		Exclude:       cfg.Search.Exclude,
		StartedAt:     s.startedAt,
		PID:           os.Getpid(),
	}
	if s.engine.History() != nil {
		rc.HistoryDB = cfg.Storage.HistoryDB
	}
	writeJSON(w, http.StatusOK, rc)
}

// handleStream provides Server-Sent Events. The first event is "initial"
// with the current list; each change is sent as a "scenarios" event.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, initial := s.engine.Store().Subscribe()
	defer s.engine.Store().Unsubscribe(ch)

	fmt.Fprintf(w, ": connected\n\n")
	s.logger.Debug("SSE client connected")

	send := func(u models.StreamUpdate) bool {
		data, err := json.Marshal(u)
		if err != nil {
			s.logger.WithError(err).Error("Failed to marshal update")
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", u.Type, data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(initial) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case u, ok := <-ch:
			if !ok || !send(u) {
				return
			}
		}
	}
}

// handleWebSocket pushes the same updates as handleStream over a websocket.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ch, initial := s.engine.Store().Subscribe()
	defer s.engine.Store().Unsubscribe(ch)

	// Reader loop detects client close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(initial); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case u, ok := <-ch:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "daemon shutting down"))
				return
			}
			if err := conn.WriteJSON(u); err != nil {
				return
			}
		}
	}
}

func invalidScenario(err error) error {
	return errors.Wrap(err, errors.ErrCodeInvalidInput, fmt.Sprintf("invalid scenario: %v", err))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid request body"))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	groveErr, ok := errors.As(err)
	if !ok {
		groveErr = errors.Wrap(err, errors.ErrCodeInternal, "internal error")
	}
	status := StatusFor(groveErr.Code)
	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	}
	writeJSON(w, status, ErrorResponse{
		Code:    string(groveErr.Code),
		Message: groveErr.Message,
		Details: groveErr.Details,
	})
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// StatusFor maps an error code to an HTTP status.
func StatusFor(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeIndexOutOfRange, errors.ErrCodePathNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeScenarioFileInvalid, errors.ErrCodeConfigValidation, errors.ErrCodeConfigInvalid:
		return http.StatusBadRequest
	case errors.ErrCodeSearchTimeout:
		return http.StatusRequestTimeout
	case errors.ErrCodeSearchCancelled:
		return http.StatusConflict
	case errors.ErrCodePermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

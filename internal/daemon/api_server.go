package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"scanstation/internal/api"
	"scanstation/internal/config"
	"scanstation/internal/history"
	"scanstation/internal/logging"
	"scanstation/internal/logs"
)

const (
	defaultHistoryLimit = 50
	maxRequestBody      = 64 << 10
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	if cfg == nil || d == nil {
		return nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}
	srv.handler = srv.routes(cfg.Paths.APIToken)
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	r := mux.NewRouter()
	r.Use(authMiddleware(token))
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})

	r.HandleFunc("/api/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/history", s.handleHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/presence/{handle}/{action:enter|exit}", s.handlePresence).Methods(http.MethodPost)
	r.HandleFunc("/api/disposal/{handle}/{action:enter|exit}", s.handleDisposal).Methods(http.MethodPost)
	r.HandleFunc("/api/items/{handle}", s.handleForget).Methods(http.MethodDelete)
	r.HandleFunc("/api/reset", s.handleReset).Methods(http.MethodPost)
	r.HandleFunc("/api/logs", s.handleLogs).Methods(http.MethodGet)
	return r
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	// A shut down http.Server cannot serve again, so each start gets its own.
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.server = server

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
		s.server = nil
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// addr is the bound listener address, useful when bind used port 0.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, status.API())
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := history.Filter{
		RequestID: strings.TrimSpace(query.Get("request")),
		Limit:     defaultHistoryLimit,
	}
	if value := strings.TrimSpace(query.Get("outcome")); value != "" {
		outcome, err := history.ParseOutcome(value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Outcome = outcome
	}
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}
	if value := strings.TrimSpace(query.Get("since")); value != "" {
		since, err := time.Parse(time.RFC3339, value)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid since (want RFC3339)")
			return
		}
		filter.Since = since
	}

	entries, stats, err := s.daemon.History(r.Context(), filter)
	if err != nil {
		s.writeDaemonError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.HistoryListResponse{
		Entries: api.FromHistoryEntries(entries),
		Counts:  api.FromHistoryStats(stats),
		Total:   stats.Total,
	})
}

func (s *apiServer) handlePresence(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	handle, action := vars["handle"], vars["action"]

	var err error
	switch action {
	case "enter":
		var body api.PresenceRequest
		if decodeErr := decodeOptionalBody(r, &body); decodeErr != nil {
			s.writeError(w, http.StatusBadRequest, decodeErr.Error())
			return
		}
		err = s.daemon.Enter(handle, body.Attrs)
	case "exit":
		err = s.daemon.Exit(handle)
	}
	if err != nil {
		s.writeDaemonError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.ActionResponse{Handle: handle, Action: action, Known: true})
}

func (s *apiServer) handleDisposal(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	handle, action := vars["handle"], vars["action"]
	if err := s.daemon.Dispose(handle, action == "exit"); err != nil {
		s.writeDaemonError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, api.ActionResponse{Handle: handle, Action: "disposal_" + action, Known: true})
}

func (s *apiServer) handleForget(w http.ResponseWriter, r *http.Request) {
	handle := mux.Vars(r)["handle"]
	known, err := s.daemon.Forget(handle)
	if err != nil {
		s.writeDaemonError(w, err)
		return
	}
	if !known {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("handle %q not known", handle))
		return
	}
	s.writeJSON(w, http.StatusOK, api.ActionResponse{Handle: handle, Action: "forget", Known: true})
}

func (s *apiServer) handleReset(w http.ResponseWriter, _ *http.Request) {
	if err := s.daemon.Reset(); err != nil {
		s.writeDaemonError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.ActionResponse{Action: "reset", Message: "station reset"})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := logs.TailOptions{Offset: -1, Limit: 200, Match: query.Get("match")}
	if value := strings.TrimSpace(query.Get("offset")); value != "" {
		offset, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		opts.Offset = offset
	}
	if value := strings.TrimSpace(query.Get("limit")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		opts.Limit = limit
	}
	follow := query.Get("follow")
	opts.Follow = follow == "1" || strings.EqualFold(follow, "true")
	if wait, err := strconv.Atoi(query.Get("wait_ms")); err == nil && wait > 0 {
		opts.Wait = time.Duration(wait) * time.Millisecond
	}

	result, err := s.daemon.TailLog(r.Context(), opts)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, api.LogTailResponse{Lines: result.Lines, Offset: result.Offset})
}

// decodeOptionalBody accepts an empty body as the zero value.
func decodeOptionalBody(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *apiServer) writeDaemonError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotRunning):
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrHistoryDisabled):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrHandleRequired):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return logging.NewComponentLogger(s.logger, "api-server")
	}
	return logging.NewNop()
}

package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"classcal/internal/api"
	"classcal/internal/config"
	"classcal/internal/instrumentation"
	appLog "classcal/internal/log"
	"classcal/internal/requests"
	"classcal/internal/schedule"
)

// Server exposes the schedule page as HTML and JSON, plus the request
// board, an ICS export and the last PNG snapshot.
type Server struct {
	cfg     *config.Config
	page    *schedule.Page
	board   *requests.Board
	metrics *instrumentation.Metrics
	mux     *http.ServeMux
}

// NewServer constructs a new Server. board and metrics may be nil.
func NewServer(cfg *config.Config, page *schedule.Page, board *requests.Board, metrics *instrumentation.Metrics) *Server {
	s := &Server{
		cfg:     cfg,
		page:    page,
		board:   board,
		metrics: metrics,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password means disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="classcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Run serves on cfg.Listen until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv, "web")
}

// RunMetrics serves the Prometheus handler alone on addr.
func RunMetrics(ctx context.Context, addr string, m *instrumentation.Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv, "metrics")
}

func serve(ctx context.Context, srv *http.Server, name string) error {
	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "server", name, "listen", "http://"+srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped", "server", name)
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/calendar", http.StatusFound)
	})
	s.mux.HandleFunc("GET /calendar", s.handleCalendarPage)
	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)

	s.mux.HandleFunc("GET /api/calendar", s.handleCalendar)
	s.mux.HandleFunc("POST /api/calendar/navigate", s.handleNavigate)
	s.mux.HandleFunc("POST /api/calendar/today", s.handleToday)
	s.mux.HandleFunc("POST /api/calendar/mode", s.handleMode)

	s.mux.HandleFunc("POST /api/events/refresh", s.handleRefresh)
	s.mux.HandleFunc("POST /api/events/close", s.handleCloseEvent)
	s.mux.HandleFunc("POST /api/events/meet-link", s.handleMeetLink)
	s.mux.HandleFunc("POST /api/events/{id}/open", s.handleOpenEvent)
	s.mux.HandleFunc("POST /api/alert/dismiss", s.handleDismissAlert)

	s.mux.HandleFunc("GET /api/requests", s.handleRequests)
	s.mux.HandleFunc("POST /api/requests/{id}/status", s.handleRequestStatus)
	s.mux.HandleFunc("POST /api/requests/{id}/link", s.handleRequestLink)
	s.mux.HandleFunc("GET /api/notifications", s.handleNotifications)

	if s.cfg.MetricsListen == "" && s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics.Handler())
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last PNG written by `classcal snapshot`.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.PreviewPath)
}

// isForm reports whether r came from an HTML form rather than a JSON client.
func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}

// readInput flattens a JSON object or form body into string values.
func readInput(r *http.Request) (map[string]string, error) {
	in := make(map[string]string)
	if isForm(r) {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		for k := range r.PostForm {
			in[k] = r.PostForm.Get(k)
		}
		return in, nil
	}
	if r.Body == nil {
		return in, nil
	}

	var raw map[string]any
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return in, nil
		}
		return nil, err
	}
	for k, v := range raw {
		switch x := v.(type) {
		case string:
			in[k] = x
		case float64:
			in[k] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			in[k] = strconv.FormatBool(x)
		}
	}
	return in, nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, schedule.ErrBusy),
		errors.Is(err, schedule.ErrNoEventOpen),
		errors.Is(err, schedule.ErrReadOnly):
		return http.StatusConflict
	case errors.Is(err, schedule.ErrEventNotFound),
		errors.Is(err, requests.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, requests.ErrBlankLink),
		errors.Is(err, requests.ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, api.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, schedule.ErrClosed):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

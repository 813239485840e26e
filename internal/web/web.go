package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"workoutcal/internal/config"
	"workoutcal/internal/ics"
	appLog "workoutcal/internal/log"
	"workoutcal/internal/pipeline"
)

// Server publishes the most recently generated calendar as a subscription
// feed. The refresh job calls Publish; handlers only read.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	mu     sync.RWMutex
	latest *pipeline.Result
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Publish replaces the calendar served to clients.
func (s *Server) Publish(res *pipeline.Result) {
	if res == nil {
		return
	}
	s.mu.Lock()
	s.latest = res
	s.mu.Unlock()
}

func (s *Server) current() *pipeline.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
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
	// Empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
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
			w.Header().Set("WWW-Authenticate", `Basic realm="workoutcal", charset="UTF-8"`)
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

// ListenAndServe serves until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/calendar.ics", s.handleCalendar)
	s.mux.HandleFunc("/api/workouts", s.handleWorkouts)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCalendar serves the calendar inline (no attachment header) so that
// calendar apps can subscribe to it.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	res := s.current()
	if res == nil {
		http.Error(w, "calendar not generated yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Last-Modified", res.GeneratedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := res.Document.WriteTo(w); err != nil {
		appLog.Error("failed to write calendar response", err)
	}
}

// workoutsResponse is the JSON response shape for /api/workouts.
type workoutsResponse struct {
	Name        string       `json:"name"`
	GeneratedAt time.Time    `json:"generated_at"`
	Parsed      int          `json:"parsed"`
	Workouts    []workoutDTO `json:"workouts"`
}

type workoutDTO struct {
	UID   string `json:"uid"`
	Day   uint8  `json:"day"`
	Date  string `json:"date"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (s *Server) handleWorkouts(w http.ResponseWriter, _ *http.Request) {
	res := s.current()
	if res == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar not generated yet")
		return
	}

	dtos := make([]workoutDTO, 0, len(res.Document.Workouts))
	for _, sw := range res.Document.Workouts {
		dtos = append(dtos, workoutDTO{
			UID:   sw.UID,
			Day:   sw.Day,
			Date:  sw.Date.Format(ics.DateLayout),
			Title: sw.Title,
			Body:  sw.Body,
		})
	}

	writeJSON(w, http.StatusOK, workoutsResponse{
		Name:        res.Document.Name,
		GeneratedAt: res.GeneratedAt,
		Parsed:      res.Parsed,
		Workouts:    dtos,
	})
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

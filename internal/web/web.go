// Package web exposes the render model over HTTP: /api/view returns the
// composed grid as JSON, /preview.png serves the last captured preview,
// /health is an unauthenticated liveness probe.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"calview/internal/config"
	appLog "calview/internal/log"
	"calview/internal/model"
	"calview/internal/source"
	"calview/internal/view"
)

// Server provides the HTTP API over a configured event source.
type Server struct {
	cfg      *config.Config
	src      source.EventSource
	viewOpts view.Options
	mux      *http.ServeMux

	// In-memory cache for /api/view responses keyed by the normalized
	// request, to avoid redundant fetch/layout work on every request.
	viewMu    sync.RWMutex
	viewCache map[string]*cachedView
}

const viewCacheTTL = 30 * time.Second

type cachedView struct {
	resp      model.RenderModel
	updatedAt time.Time
}

// NewServer constructs a new Server. viewOpts must already carry the
// resolved display location and week-start convention.
func NewServer(cfg *config.Config, src source.EventSource, viewOpts view.Options) *Server {
	s := &Server{
		cfg:       cfg,
		src:       src,
		viewOpts:  viewOpts,
		mux:       http.NewServeMux(),
		viewCache: make(map[string]*cachedView),
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

// Serve runs the HTTP server until ctx is canceled, then shuts it down
// gracefully.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Treat an empty username or password as disabled.
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
		// /health stays reachable for probes.
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calview", charset="UTF-8"`)
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

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/view", s.handleView)
	s.mux.HandleFunc("/preview.png", s.handlePreview)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured PNG preview from disk.
// http.ServeFile maps missing files and permission problems to sensible
// status codes on its own.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Preview == nil || s.cfg.Preview.Path == "" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, s.cfg.Preview.Path)
}

// handleView returns the composed render model for one view request.
//
// GET /api/view?mode=month&year=2026&month=9
// GET /api/view?mode=week&year=2026&week=36
// GET /api/view?mode=day&year=2026&month=9&day=1
//
// Omitted date parameters default to the current period. The URL scheme
// carries the whole view state, so every request composes independently.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	key := q.Encode()
	cacheNow := time.Now()

	s.viewMu.RLock()
	vc := s.viewCache[key]
	s.viewMu.RUnlock()
	if vc != nil && cacheNow.Sub(vc.updatedAt) < viewCacheTTL {
		writeJSON(w, http.StatusOK, vc.resp)
		return
	}

	composer := view.NewComposer(s.src, s.viewOpts)
	if err := s.navigate(composer, q); err != nil {
		appLog.Error("api view: bad navigation", err, "query", key)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := composer.Render(r.Context())
	if err != nil {
		appLog.Error("api view: render failed", err, "query", key)
		if errors.Is(err, source.ErrSourceUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "event source unavailable")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to compose view")
		return
	}

	s.viewMu.Lock()
	s.viewCache[key] = &cachedView{resp: resp, updatedAt: time.Now()}
	s.viewMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// navigate translates query parameters into composer navigation, keeping
// the InvalidNavigation check ahead of any fetch.
func (s *Server) navigate(c *view.Composer, q map[string][]string) error {
	get := func(name string) (int, bool, error) {
		vals := q[name]
		if len(vals) == 0 || vals[0] == "" {
			return 0, false, nil
		}
		n, err := strconv.Atoi(vals[0])
		if err != nil {
			return 0, false, view.ErrInvalidNavigation
		}
		return n, true, nil
	}

	mode := model.ModeMonth
	if vals := q["mode"]; len(vals) > 0 && vals[0] != "" {
		mode = model.ViewMode(vals[0])
	}
	if err := c.SetMode(mode); err != nil {
		return err
	}

	year, hasYear, err := get("year")
	if err != nil {
		return err
	}
	month, hasMonth, err := get("month")
	if err != nil {
		return err
	}
	day, hasDay, err := get("day")
	if err != nil {
		return err
	}
	week, hasWeek, err := get("week")
	if err != nil {
		return err
	}

	now := c.Focus()
	switch mode {
	case model.ModeMonth:
		if !hasYear && !hasMonth {
			return nil
		}
		if !hasYear {
			year = now.Year()
		}
		if !hasMonth {
			month = int(now.Month())
		}
		return c.JumpToMonth(year, month)
	case model.ModeWeek:
		if !hasYear && !hasWeek {
			return nil
		}
		isoYear, isoWeek := now.ISOWeek()
		if !hasYear {
			year = isoYear
		}
		if !hasWeek {
			week = isoWeek
		}
		return c.JumpToWeek(year, week)
	default:
		if !hasYear && !hasMonth && !hasDay {
			return nil
		}
		if !hasYear {
			year = now.Year()
		}
		if !hasMonth {
			month = int(now.Month())
		}
		if !hasDay {
			day = now.Day()
		}
		return c.JumpToDay(year, month, day)
	}
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

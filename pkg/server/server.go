// Package server exposes the launcher over a small local HTTP API, so a
// separate front end (a GUI shell, a script) can list versions and profiles,
// start a launch, and poll its progress.
//
// The API is meant for localhost. It has no authentication.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	errs "github.com/matzehuels/craftlaunch/pkg/errors"
	"github.com/matzehuels/craftlaunch/pkg/history"
	"github.com/matzehuels/craftlaunch/pkg/jvm"
	"github.com/matzehuels/craftlaunch/pkg/launch"
	"github.com/matzehuels/craftlaunch/pkg/manifest"
	"github.com/matzehuels/craftlaunch/pkg/profile"
)

const shutdownTimeout = 5 * time.Second

// VersionLister lists available versions.
type VersionLister interface {
	Versions(ctx context.Context) (*manifest.VersionManifest, error)
}

// RuntimeLister lists installed Java runtimes.
type RuntimeLister interface {
	FindAll(ctx context.Context) []jvm.Candidate
}

// Deps are the services behind the API.
type Deps struct {
	Launcher *launch.Launcher
	Versions VersionLister
	Profiles *profile.Store
	Runtimes RuntimeLister
	History  history.Store
	// JavaPath is used for launches that do not name one.
	JavaPath string
}

// Server is the local control API.
type Server struct {
	deps   Deps
	logger *log.Logger
	router chi.Router
}

// New builds the router. A nil logger uses log.Default().
func New(deps Deps, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if deps.History == nil {
		deps.History = history.NewNullStore()
	}
	s := &Server{deps: deps, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Get("/versions", s.listVersions)
	r.Get("/profiles", s.listProfiles)
	r.Get("/java", s.listJava)
	r.Get("/history", s.listHistory)
	r.Route("/launch", func(r chi.Router) {
		r.Post("/", s.startLaunch)
		r.Get("/progress", s.launchProgress)
		r.Get("/error", s.launchError)
	})
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("control API listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// =============================================================================
// Handlers
// =============================================================================

func (s *Server) listVersions(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.Versions.Versions(r.Context())
	if err != nil {
		s.writeError(w, errs.Wrap(errs.ErrCodeNetwork, err, "list versions"))
		return
	}
	versions := m.Filter(r.URL.Query().Get("type"))
	writeJSON(w, http.StatusOK, map[string]any{"latest": m.Latest, "versions": versions})
}

func (s *Server) listProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Profiles.List())
}

func (s *Server) listJava(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Runtimes.FindAll(r.Context()))
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, errs.New(errs.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		limit = n
	}
	records, err := s.deps.History.Recent(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

type launchRequest struct {
	Version  string `json:"version"`
	Username string `json:"username"`
	JavaPath string `json:"java_path,omitempty"`
}

func (s *Server) startLaunch(w http.ResponseWriter, r *http.Request) {
	var body launchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&body); err != nil {
		s.writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "decode request"))
		return
	}
	p, err := s.deps.Profiles.Get(body.Username)
	if err != nil {
		s.writeError(w, errs.Wrap(errs.ErrCodeProfileNotFound, err, "select profile"))
		return
	}
	java := body.JavaPath
	if java == "" {
		java = s.deps.JavaPath
	}

	// The attempt outlives the request.
	a, err := s.deps.Launcher.Launch(context.WithoutCancel(r.Context()), launch.Request{
		Version:  body.Version,
		Profile:  p,
		JavaPath: java,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	go func() {
		for range a.Events() {
		}
	}()
	writeJSON(w, http.StatusAccepted, a)
}

type progressResponse struct {
	Attempt    *launch.Attempt `json:"attempt,omitempty"`
	Running    bool            `json:"running"`
	Stage      string          `json:"stage,omitempty"`
	Current    int             `json:"current"`
	Total      int             `json:"total"`
	Message    string          `json:"message,omitempty"`
	Percentage float64         `json:"percentage"`
}

func (s *Server) launchProgress(w http.ResponseWriter, r *http.Request) {
	resp := progressResponse{Running: s.deps.Launcher.Running()}
	if a := s.deps.Launcher.Current(); a != nil {
		p := a.Last()
		resp.Attempt = a
		resp.Stage = p.Stage.String()
		resp.Current = p.Current
		resp.Total = p.Total
		resp.Message = p.Message
		resp.Percentage = p.Percentage()
	}
	writeJSON(w, http.StatusOK, resp)
}

type errorResponse struct {
	Code    errs.Code `json:"code,omitempty"`
	Error   string    `json:"error"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// launchError hands out the pending launch error once.
func (s *Server) launchError(w http.ResponseWriter, r *http.Request) {
	err := s.deps.Launcher.Errors().Take()
	if err == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, dialog(err))
}

func dialog(err error) errorResponse {
	d := errs.Friendly(errs.UserMessage(err))
	resp := errorResponse{Code: errs.CodeOf(err), Error: err.Error(), Message: d.Message}
	if d.HasDetails() {
		resp.Details = d.Details
	}
	return resp
}

// =============================================================================
// Helpers
// =============================================================================

func statusFor(err error) int {
	if errors.Is(err, launch.ErrLaunchInProgress) {
		return http.StatusConflict
	}
	switch errs.CodeOf(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidVersion, errs.ErrCodeInvalidProfile, errs.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound, errs.ErrCodeProfileNotFound, errs.ErrCodeVersionNotFound:
		return http.StatusNotFound
	case errs.ErrCodeBusy:
		return http.StatusConflict
	case errs.ErrCodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, dialog(err))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond))
	})
}

// Package api exposes the HTTP interface for the portfolio service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atelierlabs/folio/internal/cache"
	"github.com/atelierlabs/folio/internal/config"
	"github.com/atelierlabs/folio/internal/metrics"
	"github.com/atelierlabs/folio/internal/project"
	"github.com/atelierlabs/folio/internal/scraper"
	"github.com/atelierlabs/folio/internal/share"
)

// Engine is the snapshot surface the handlers read from.
type Engine interface {
	Snapshot(ctx context.Context) (project.Snapshot, error)
	ByID(ctx context.Context, id string) (project.Project, error)
	ForceRefresh(ctx context.Context) (project.Snapshot, error)
	Status() cache.Status
}

// ShareCards serves composed share card bytes.
type ShareCards interface {
	Card(ctx context.Context, scope, key string) ([]byte, error)
	Invalidate(ctx context.Context) error
}

// Server wires HTTP handlers to the cache engine and share service.
type Server struct {
	router chi.Router
	engine Engine
	shares ShareCards
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(engine Engine, shares ShareCards, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine: engine,
		shares: shares,
		cfg:    cfg,
		logger: logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(timeoutMiddleware(time.Duration(cfg.Server.TimeoutSeconds) * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/projects", s.listProjects)
		r.Get("/projects/tag/{tag}", s.projectsByTag)
		r.Get("/projects/person/{name}", s.projectsByPerson)
		r.Get("/projects/{id}", s.getProject)
		r.Get("/tags", s.listTags)

		r.Get("/share/homepage", s.shareCard(share.ScopeHomepage, ""))
		r.Get("/share/project/{key}", s.shareCardParam(share.ScopeProject))
		r.Get("/share/tag/{key}", s.shareCardParam(share.ScopeTag))
		r.Get("/share/person/{key}", s.shareCardParam(share.ScopePerson))
		r.Get("/share/space/{key}", s.shareCardParam(share.ScopeSpace))

		r.Route("/admin", func(r chi.Router) {
			r.Use(adminSecretMiddleware(cfg.Admin.Secret))
			r.Post("/refresh", s.adminRefresh)
			r.Get("/cache", s.adminCache)
			r.Delete("/share-cache", s.adminClearShareCache)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// Ready once a snapshot can be served, from memory or disk.
	st := s.engine.Status()
	if st.Projects == 0 && st.LastUpdate.IsZero() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "starting"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Snapshot(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotResponse{
		LastUpdate: snap.LastUpdate,
		Projects:   project.SortByDate(snap.Projects),
	})
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.engine.ByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) projectsByTag(w http.ResponseWriter, r *http.Request) {
	s.filtered(w, r, func(records []project.Project) []project.Project {
		return project.ByTag(records, chi.URLParam(r, "tag"))
	})
}

func (s *Server) projectsByPerson(w http.ResponseWriter, r *http.Request) {
	s.filtered(w, r, func(records []project.Project) []project.Project {
		return project.ByPerson(records, chi.URLParam(r, "name"))
	})
}

func (s *Server) filtered(w http.ResponseWriter, r *http.Request, filter func([]project.Project) []project.Project) {
	snap, err := s.engine.Snapshot(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	matched := filter(project.SortByDate(snap.Projects))
	if matched == nil {
		matched = []project.Project{}
	}
	writeJSON(w, http.StatusOK, snapshotResponse{
		LastUpdate: snap.LastUpdate,
		Projects:   matched,
	})
}

func (s *Server) listTags(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.Snapshot(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	tags := project.AllTags(snap.Projects)
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (s *Server) shareCard(scope, key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.serveCard(w, r, scope, key)
	}
}

func (s *Server) shareCardParam(scope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.serveCard(w, r, scope, chi.URLParam(r, "key"))
	}
}

func (s *Server) serveCard(w http.ResponseWriter, r *http.Request, scope, key string) {
	data, err := s.shares.Card(r.Context(), scope, key)
	if err != nil {
		switch {
		case errors.Is(err, share.ErrUnknownScope):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, share.ErrNoSources), errors.Is(err, cache.ErrNotFound):
			writeError(w, http.StatusNotFound, "no share card for this scope")
		default:
			s.writeEngineError(w, err)
		}
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("share card write failed", zap.Error(err))
	}
}

func (s *Server) adminRefresh(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.ForceRefresh(r.Context())
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"projects":    len(snap.Projects),
		"last_update": snap.LastUpdate,
	})
}

func (s *Server) adminCache(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Status())
}

func (s *Server) adminClearShareCache(w http.ResponseWriter, r *http.Request) {
	if err := s.shares.Invalidate(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// writeEngineError maps engine failures onto HTTP statuses. Origin
// unavailability is the upstream's fault, everything else is ours.
func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", zap.Error(err))
	if errors.Is(err, scraper.ErrOriginUnavailable) {
		writeError(w, http.StatusBadGateway, "origin unavailable")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal server error")
}

type snapshotResponse struct {
	LastUpdate time.Time         `json:"last_update"`
	Projects   []project.Project `json:"projects"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

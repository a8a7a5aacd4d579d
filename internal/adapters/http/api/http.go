// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/critic/internal/adapters/repository"
	service "github.com/okian/critic/internal/app"
	"github.com/okian/critic/internal/domain/model"
	"github.com/okian/critic/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	NextContest(ctx context.Context, groupID int64) (model.Contest, error)
	Judge(ctx context.Context, j Judgment) (model.MatchRecord, error)
	Top(ctx context.Context, groupName string, pageSize, pageIndex int) ([]model.RankingRow, error)
	PageSize(n int) int
	Stats(ctx context.Context) (model.Stats, error)
	Ping(ctx context.Context) error
	Catalog() (repository.Catalog, error)
}

// Judgment mirrors the write shape accepted by the service.
type Judgment = service.Judgment

// Server wires HTTP routes for the business API.
type Server struct {
	deps            Dependencies
	log             logger.Logger
	defaultPageSize int
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithLogger sets the logger used for failed requests.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithDefaultPageSize sets the ranking page size used when none is given.
func WithDefaultPageSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.defaultPageSize = n
		}
	}
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{deps: deps, log: logger.Nop(), defaultPageSize: 20}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all business routes to r.
func (s *Server) Register(r chi.Router) {
	r.Use(middleware.RequestID, middleware.Recoverer, Metrics)

	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)

	r.Get("/contests/next", s.handleNextContest)
	r.Post("/results", s.handlePostResult)
	r.Get("/top", s.handleTop)

	r.Route("/titles", func(r chi.Router) {
		r.Get("/", s.handleListTitles)
		r.Post("/", s.handleCreateTitle)
		r.Route("/{id}", func(r chi.Router) {
			r.Patch("/", s.handleRenameTitle)
			r.Delete("/", s.handleDeleteTitle)
			r.Get("/groups", s.handleGroupsByTitle)
			r.Put("/groups/{groupID}", s.handleAssign)
			r.Delete("/groups/{groupID}", s.handleUnassign)
		})
	})
	r.Route("/groups", func(r chi.Router) {
		r.Get("/", s.handleListGroups)
		r.Post("/", s.handleCreateGroup)
		r.Route("/{id}", func(r chi.Router) {
			r.Patch("/", s.handleRenameGroup)
			r.Delete("/", s.handleDeleteGroup)
			r.Post("/assign-all", s.handleAssignAll)
			r.Get("/titles", s.handleTitlesByGroup)
			r.Get("/criteria", s.handleListCriteria)
			r.Post("/criteria", s.handleCreateCriterion)
		})
	})
	r.Route("/criteria/{id}", func(r chi.Router) {
		r.Patch("/", s.handleRenameCriterion)
		r.Delete("/", s.handleDeleteCriterion)
	})
}

// Handler returns a router with every business route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Register(r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail writes err with the status it maps to. Server errors are logged and
// their detail withheld from the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Error(err),
		)
		writeError(w, status, code, nil)
		return
	}
	writeError(w, status, code, err)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request, key string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", ErrBadRequest, key)
	}
	return id, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s", ErrBadRequest, key)
	}
	return n, nil
}

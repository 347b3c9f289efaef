// Package server provides the HTTP API for folio.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/extract"
	"github.com/hyperjump/folio/internal/jobs"
	"github.com/hyperjump/folio/internal/search"
	"github.com/hyperjump/folio/internal/storage"
)

// Pipeline schedules documents for processing.
type Pipeline interface {
	Reprocess(ctx context.Context, id string) (bool, error)
	QueueAll(ctx context.Context, force bool) (int, error)
}

// QueueStats reports job queue activity.
type QueueStats interface {
	Stats() jobs.Stats
}

// WatchService manages the watched upload directories.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// PreviewSource locates stored preview images by document id and kind.
type PreviewSource interface {
	Path(id, kind string) string
}

// Server is the HTTP server for the folio API.
type Server struct {
	engine   *search.Engine
	storage  storage.Storage
	pipeline Pipeline
	config   *config.Config
	logger   *zap.Logger
	queue    QueueStats
	previews PreviewSource

	watch         WatchService
	configPath    string
	watchConfigMu sync.Mutex

	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithQueue exposes queue statistics on the status endpoint.
func WithQueue(q QueueStats) Option {
	return func(s *Server) { s.queue = q }
}

// WithPreviews serves first-page images from p.
func WithPreviews(p PreviewSource) Option {
	return func(s *Server) { s.previews = p }
}

// WithWatch enables the watch directory endpoints. Changes are saved to configPath when
// it is not empty.
func WithWatch(w WatchService, configPath string) Option {
	return func(s *Server) {
		s.watch = w
		s.configPath = configPath
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *search.Engine,
	store storage.Storage,
	pipeline Pipeline,
	cfg *config.Config,
	logger *zap.Logger,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		engine:   engine,
		storage:  store,
		pipeline: pipeline,
		config:   cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Get("/", s.handleListDocuments)
			r.Get("/search", s.handleSearch)
			r.Post("/queue-all", s.handleQueueAll)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDocument)
				r.Get("/pages", s.handleGetPages)
				r.Get("/pages/{pageNumber}", s.handleGetPage)
				r.Get("/search", s.handleSearchInDocument)
				r.Get("/thumbnail", s.handlePreview(extract.PreviewThumb))
				r.Get("/preview", s.handlePreview(extract.PreviewLarge))
				r.Post("/reprocess", s.handleReprocess)
			})
		})
		r.Get("/status", s.handleStatus)
		r.Get("/watch/directories", s.handleWatchDirectoriesList)
		r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
		r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

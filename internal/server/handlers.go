package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/jobs"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/storage"
)

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Documents      int64            `json:"documents"`
	Pages          int64            `json:"pages"`
	ByStatus       map[string]int64 `json:"by_status"`
	Queue          *jobs.Stats      `json:"queue,omitempty"`
	DiskUsageBytes *int64           `json:"disk_usage_bytes,omitempty"`
	Config         *StatusConfig    `json:"config,omitempty"`
}

// StatusConfig is the configuration summary in StatusResponse.
type StatusConfig struct {
	DatabasePath   string   `json:"database_path,omitempty"`
	BleveIndexPath string   `json:"bleve_index_path,omitempty"`
	MaxPages       int      `json:"max_pages"`
	OCREnabled     bool     `json:"ocr_enabled"`
	OCRProvider    string   `json:"ocr_provider,omitempty"`
	Workers        int      `json:"workers"`
	WatchDirs      []string `json:"watch_directories,omitempty"`
}

type queueAllRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := storage.DocumentFilter{
		Status:  models.DocumentStatus(q.Get("status")),
		OwnerID: q.Get("owner"),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		s.respondError(w, http.StatusBadRequest, "invalid status")
		return
	}
	page, size, ok := s.paging(w, r)
	if !ok {
		return
	}
	list, err := s.storage.ListDocuments(r.Context(), filter, page, size)
	if err != nil {
		s.logger.Error("list documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	page, size, ok := s.paging(w, r)
	if !ok {
		return
	}
	s.logger.Debug("search request", zap.String("query", query), zap.Int("page", page), zap.Int("size", size))
	response, err := s.engine.Search(r.Context(), &models.SearchQuery{
		Query:   query,
		OwnerID: q.Get("owner"),
		Page:    page,
		Size:    size,
	})
	if err != nil {
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.storage.GetDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondStorageError(w, err, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) handleGetPages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.storage.GetDocument(r.Context(), id); err != nil {
		s.respondStorageError(w, err, "document not found")
		return
	}
	pages, err := s.storage.GetPages(r.Context(), id)
	if err != nil {
		s.respondStorageError(w, err, "document not found")
		return
	}
	if pages == nil {
		pages = []*models.Page{}
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"items": pages})
}

func (s *Server) handleGetPage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "pageNumber"))
	if err != nil || n < 1 {
		s.respondError(w, http.StatusBadRequest, "invalid page number")
		return
	}
	page, err := s.storage.GetPage(r.Context(), chi.URLParam(r, "id"), n)
	if err != nil {
		s.respondStorageError(w, err, "page not found")
		return
	}
	s.respondJSON(w, http.StatusOK, page)
}

// handlePreview serves the stored image of kind for a live document.
func (s *Server) handlePreview(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := s.storage.GetDocument(r.Context(), id); err != nil {
			s.respondStorageError(w, err, "document not found")
			return
		}
		if s.previews == nil {
			s.respondError(w, http.StatusNotFound, kind+" not found")
			return
		}
		path := s.previews.Path(id, kind)
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			s.respondError(w, http.StatusNotFound, kind+" not found")
			return
		}
		w.Header().Set("Cache-Control", "private, max-age=300")
		http.ServeFile(w, r, path)
	}
}

func (s *Server) handleSearchInDocument(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return
	}
	hits, err := s.engine.SearchInDocument(r.Context(), chi.URLParam(r, "id"), query)
	if err != nil {
		s.respondStorageError(w, err, "document not found")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"items": hits})
}

func (s *Server) handleReprocess(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	queued, err := s.pipeline.Reprocess(r.Context(), id)
	if err != nil {
		s.respondStorageError(w, err, "document not found")
		return
	}
	if !queued {
		s.respondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "ignored"})
		return
	}
	s.logger.Debug("reprocess queued", zap.String("id", id))
	s.respondJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "queued"})
}

func (s *Server) handleQueueAll(w http.ResponseWriter, r *http.Request) {
	var req queueAllRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	n, err := s.pipeline.QueueAll(r.Context(), req.Force)
	if err != nil {
		s.logger.Error("queue all failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusAccepted, map[string]any{"queued": n, "force": req.Force})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docCount, err := s.storage.CountDocuments(ctx)
	if err != nil {
		s.logger.Error("status: count documents failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	pageCount, err := s.storage.CountPages(ctx)
	if err != nil {
		s.logger.Error("status: count pages failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	byStatus, err := s.storage.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("status: count by status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := StatusResponse{
		Documents: docCount,
		Pages:     pageCount,
		ByStatus:  make(map[string]int64, len(byStatus)),
	}
	for st, n := range byStatus {
		resp.ByStatus[string(st)] = n
	}
	if s.queue != nil {
		stats := s.queue.Stats()
		resp.Queue = &stats
	}
	if s.config != nil {
		resp.Config = &StatusConfig{
			DatabasePath:   s.config.Storage.DatabasePath,
			BleveIndexPath: s.config.Storage.BleveIndexPath,
			MaxPages:       s.config.Processing.MaxPages,
			OCREnabled:     s.config.OCR.EnabledOrDefault(),
			OCRProvider:    s.config.OCR.Provider,
			Workers:        s.config.Processing.Workers,
			WatchDirs:      s.config.Watch.Directories,
		}
		diskBytes, err := storage.DiskUsageBytes(s.config.Storage.DatabasePath, s.config.Storage.BleveIndexPath)
		if err == nil {
			resp.DiskUsageBytes = &diskBytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchDirectoriesList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"directories": s.watch.Directories()})
}

type watchAddRequest struct {
	Path string `json:"path"`
	Sync *bool  `json:"sync,omitempty"`
}

func (s *Server) handleWatchDirectoriesAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	syncExisting := true
	if req.Sync != nil {
		syncExisting = *req.Sync
	}
	s.logger.Debug("watch add directory request", zap.String("path", abs), zap.Bool("sync_existing", syncExisting))
	if err := s.watch.AddDirectory(abs, syncExisting); err != nil {
		s.logger.Error("watch add directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchDirectoriesRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		var body struct {
			Path string `json:"path"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil && body.Path != "" {
			path = body.Path
		}
	}
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required (query or body)")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	s.logger.Debug("watch remove directory request", zap.String("path", abs))
	if err := s.watch.RemoveDirectory(abs); err != nil {
		s.logger.Error("watch remove directory failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.persistWatchDirectories()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistWatchDirectories writes the current watch roots back to the config file.
func (s *Server) persistWatchDirectories() {
	if s.configPath == "" || s.config == nil {
		return
	}
	s.watchConfigMu.Lock()
	defer s.watchConfigMu.Unlock()
	s.config.Watch.Directories = s.watch.Directories()
	if err := config.Save(s.configPath, s.config); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

// paging reads page and size query parameters, writing a 400 when either is malformed.
func (s *Server) paging(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	var page, size int
	for name, dst := range map[string]*int{"page": &page, "size": &size} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid "+name)
			return 0, 0, false
		}
		*dst = n
	}
	defaultSize, maxSize := 50, 1000
	if s.config != nil {
		defaultSize, maxSize = s.config.Search.DefaultPageSize, s.config.Search.MaxPageSize
	}
	page, size = models.NormalizePaging(page, size, defaultSize, maxSize)
	return page, size, true
}

func (s *Server) respondStorageError(w http.ResponseWriter, err error, notFound string) {
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, notFound)
		return
	}
	s.logger.Error("request failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

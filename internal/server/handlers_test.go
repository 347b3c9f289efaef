package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/extract"
	"github.com/hyperjump/folio/internal/indexer"
	"github.com/hyperjump/folio/internal/jobs"
	"github.com/hyperjump/folio/internal/keyword"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/pipeline"
	"github.com/hyperjump/folio/internal/search"
	"github.com/hyperjump/folio/internal/storage"
)

type mockWatchService struct {
	dirs []string
}

func (m *mockWatchService) Directories() []string {
	return append([]string(nil), m.dirs...)
}

func (m *mockWatchService) AddDirectory(path string, _ bool) error {
	for _, d := range m.dirs {
		if d == path {
			return nil
		}
	}
	m.dirs = append(m.dirs, path)
	return nil
}

func (m *mockWatchService) RemoveDirectory(path string) error {
	for i, d := range m.dirs {
		if d == path {
			m.dirs = append(m.dirs[:i], m.dirs[i+1:]...)
			return nil
		}
	}
	return nil
}

type recordingQueue struct{ ids []string }

func (q *recordingQueue) Enqueue(_ context.Context, id string) error {
	q.ids = append(q.ids, id)
	return nil
}

type fixedStats struct{ stats jobs.Stats }

func (f fixedStats) Stats() jobs.Stats { return f.stats }

type testEnv struct {
	dir     string
	cfg     *config.Config
	store   *storage.SQLiteStorage
	idx     *indexer.Indexer
	queue   *recordingQueue
	handler http.Handler
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Storage: config.StorageConfig{
			DatabasePath:   filepath.Join(dir, "db.sqlite"),
			BleveIndexPath: filepath.Join(dir, "bleve"),
		},
	}
	config.ApplyDefaults(cfg)

	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	kwIdx, err := keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { kwIdx.Close() })

	queue := &recordingQueue{}
	proc := pipeline.NewProcessor(store, pipeline.Deps{}, pipeline.Options{}, pipeline.WithQueue(queue))
	engine := search.NewEngine(store, kwIdx, &cfg.Search)
	srv := NewServer(engine, store, proc, cfg, zap.NewNop(), opts...)
	return &testEnv{
		dir:     dir,
		cfg:     cfg,
		store:   store,
		idx:     indexer.NewIndexer(kwIdx),
		queue:   queue,
		handler: srv.Handler(),
	}
}

// seed stores and indexes a ready document.
func (e *testEnv) seed(t *testing.T, id string, pageTexts ...string) {
	t.Helper()
	ctx := context.Background()
	asset := &models.Asset{ID: id, OwnerID: "owner", OriginalPath: "/uploads/" + id + ".pdf", OriginalFileName: id + ".pdf"}
	if err := e.store.UpsertAsset(ctx, asset); err != nil {
		t.Fatal(err)
	}
	pages := make([]*models.Page, len(pageTexts))
	for i, text := range pageTexts {
		pages[i] = &models.Page{PageNumber: i + 1, Text: text, TextSource: models.TextSourceEmbedded}
	}
	meta := models.Metadata{PageCount: len(pages)}
	searchText := indexer.BuildSearchText(pageTexts)
	if err := e.store.Complete(ctx, id, meta, pages, searchText); err != nil {
		t.Fatal(err)
	}
	doc := &models.Document{ID: id, Metadata: meta, OwnerID: asset.OwnerID, FileName: asset.OriginalFileName}
	if err := e.idx.IndexDocument(ctx, doc, pages, searchText); err != nil {
		t.Fatal(err)
	}
}

func (e *testEnv) do(t *testing.T, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body != nil {
		r = httptest.NewRequest(method, target, bytes.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, r)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleListDocuments(t *testing.T) {
	env := newTestEnv(t)
	for _, id := range []string{"a", "b", "c"} {
		env.seed(t, id, "text of "+id)
	}
	if _, err := env.store.MarkReprocess(context.Background(), "c"); err != nil {
		t.Fatal(err)
	}

	w := env.do(t, http.MethodGet, "/api/v1/documents?size=2", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var list models.DocumentList
	decode(t, w, &list)
	if len(list.Items) != 2 || list.NextPage == nil || *list.NextPage != 2 {
		t.Errorf("first page: items=%d next=%v", len(list.Items), list.NextPage)
	}

	w = env.do(t, http.MethodGet, "/api/v1/documents?status=ready&owner=owner", nil)
	decode(t, w, &list)
	if len(list.Items) != 2 || list.NextPage != nil {
		t.Errorf("ready filter: items=%d next=%v", len(list.Items), list.NextPage)
	}
	for _, doc := range list.Items {
		if doc.Status != models.StatusReady {
			t.Errorf("status filter returned %s", doc.Status)
		}
	}

	for _, bad := range []string{"?status=bogus", "?page=abc", "?size=-1"} {
		if w := env.do(t, http.MethodGet, "/api/v1/documents"+bad, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s: got %d, want 400", bad, w.Code)
		}
	}
}

func TestHandleSearch(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "inv", "cover page", "Invoice total due")
	env.seed(t, "memo", "internal memo")

	w := env.do(t, http.MethodGet, "/api/v1/documents/search?query=invoice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var resp models.SearchResponse
	decode(t, w, &resp)
	if len(resp.Items) != 1 || resp.Items[0].Document.ID != "inv" {
		t.Fatalf("items: %+v", resp.Items)
	}
	if got := resp.Items[0].MatchingPages; len(got) != 1 || got[0] != 2 {
		t.Errorf("matching pages: got %v, want [2]", got)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/documents/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing query: got %d, want 400", w.Code)
	}
}

func TestHandleGetDocumentAndPages(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "doc", "first", "second")

	w := env.do(t, http.MethodGet, "/api/v1/documents/doc", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get document: got %d", w.Code)
	}
	var doc models.Document
	decode(t, w, &doc)
	if doc.ID != "doc" || doc.PageCount != 2 || doc.Status != models.StatusReady {
		t.Errorf("document: %+v", doc)
	}

	w = env.do(t, http.MethodGet, "/api/v1/documents/doc/pages", nil)
	var pages struct {
		Items []models.Page `json:"items"`
	}
	decode(t, w, &pages)
	if len(pages.Items) != 2 || pages.Items[1].Text != "second" {
		t.Errorf("pages: %+v", pages.Items)
	}

	w = env.do(t, http.MethodGet, "/api/v1/documents/doc/pages/2", nil)
	var page models.Page
	decode(t, w, &page)
	if page.PageNumber != 2 || page.DocumentID != "doc" {
		t.Errorf("page: %+v", page)
	}

	tests := []struct {
		target string
		want   int
	}{
		{"/api/v1/documents/missing", http.StatusNotFound},
		{"/api/v1/documents/missing/pages", http.StatusNotFound},
		{"/api/v1/documents/doc/pages/9", http.StatusNotFound},
		{"/api/v1/documents/doc/pages/x", http.StatusBadRequest},
		{"/api/v1/documents/doc/pages/0", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if w := env.do(t, http.MethodGet, tt.target, nil); w.Code != tt.want {
			t.Errorf("%s: got %d, want %d", tt.target, w.Code, tt.want)
		}
	}
}

func TestHandleGetPage_deletedAsset(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "gone", "This page has plenty of embedded text")
	if w := env.do(t, http.MethodGet, "/api/v1/documents/gone/pages/1", nil); w.Code != http.StatusOK {
		t.Fatalf("before delete: got %d", w.Code)
	}
	if err := env.store.MarkAssetDeleted(context.Background(), "gone"); err != nil {
		t.Fatal(err)
	}
	for _, target := range []string{
		"/api/v1/documents/gone",
		"/api/v1/documents/gone/pages",
		"/api/v1/documents/gone/pages/1",
	} {
		w := env.do(t, http.MethodGet, target, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", target, w.Code)
		}
		if strings.Contains(w.Body.String(), "embedded text") {
			t.Errorf("%s leaked page text: %s", target, w.Body.String())
		}
	}
}

func TestHandlePreview(t *testing.T) {
	previews := extract.NewPreviewer(nil, "", t.TempDir())
	for kind, body := range map[string]string{extract.PreviewLarge: "jpeg bytes", extract.PreviewThumb: "png bytes"} {
		path := previews.Path("doc", kind)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0600); err != nil {
			t.Fatal(err)
		}
	}
	env := newTestEnv(t, WithPreviews(previews))
	env.seed(t, "doc", "Some text")
	env.seed(t, "bare", "Other text")

	tests := []struct {
		target      string
		code        int
		contentType string
		body        string
	}{
		{"/api/v1/documents/doc/thumbnail", http.StatusOK, "image/png", "png bytes"},
		{"/api/v1/documents/doc/preview", http.StatusOK, "image/jpeg", "jpeg bytes"},
		{"/api/v1/documents/bare/thumbnail", http.StatusNotFound, "", ""},
		{"/api/v1/documents/missing/preview", http.StatusNotFound, "", ""},
	}
	for _, tt := range tests {
		w := env.do(t, http.MethodGet, tt.target, nil)
		if w.Code != tt.code {
			t.Errorf("%s: got %d, want %d", tt.target, w.Code, tt.code)
			continue
		}
		if tt.code != http.StatusOK {
			continue
		}
		if ct := w.Header().Get("Content-Type"); ct != tt.contentType {
			t.Errorf("%s: content type %q, want %q", tt.target, ct, tt.contentType)
		}
		if w.Body.String() != tt.body {
			t.Errorf("%s: body %q", tt.target, w.Body.String())
		}
	}

	if err := env.store.MarkAssetDeleted(context.Background(), "doc"); err != nil {
		t.Fatal(err)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/documents/doc/thumbnail", nil); w.Code != http.StatusNotFound {
		t.Errorf("deleted document thumbnail: got %d, want 404", w.Code)
	}

	plain := newTestEnv(t)
	plain.seed(t, "doc", "Some text")
	if w := plain.do(t, http.MethodGet, "/api/v1/documents/doc/preview", nil); w.Code != http.StatusNotFound {
		t.Errorf("previews disabled: got %d, want 404", w.Code)
	}
}

func TestHandleSearchInDocument(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "doc", "Ölpreis steigt", "der Olpreis fällt")

	w := env.do(t, http.MethodGet, "/api/v1/documents/doc/search?query=olpreis", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Items []models.PageHit `json:"items"`
	}
	decode(t, w, &out)
	if len(out.Items) != 2 {
		t.Fatalf("hits: %+v", out.Items)
	}
	if out.Items[0].PageNumber != 1 || out.Items[0].Offset != 0 {
		t.Errorf("first hit: %+v", out.Items[0])
	}
	if out.Items[1].PageNumber != 2 || out.Items[1].Offset != 4 {
		t.Errorf("second hit: %+v", out.Items[1])
	}

	if w := env.do(t, http.MethodGet, "/api/v1/documents/missing/search?query=x", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown document: got %d, want 404", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/documents/doc/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing query: got %d, want 400", w.Code)
	}
}

func TestHandleReprocess(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "doc", "text")

	w := env.do(t, http.MethodPost, "/api/v1/documents/doc/reprocess", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("first reprocess: got %d, body: %s", w.Code, w.Body.String())
	}
	if len(env.queue.ids) != 1 || env.queue.ids[0] != "doc" {
		t.Errorf("queue: %v", env.queue.ids)
	}

	w = env.do(t, http.MethodPost, "/api/v1/documents/doc/reprocess", nil)
	if w.Code != http.StatusOK {
		t.Errorf("pending reprocess: got %d, want 200", w.Code)
	}
	var out map[string]string
	decode(t, w, &out)
	if out["status"] != "ignored" {
		t.Errorf("pending reprocess body: %v", out)
	}
	if len(env.queue.ids) != 1 {
		t.Errorf("ignored request must not enqueue: %v", env.queue.ids)
	}

	if w := env.do(t, http.MethodPost, "/api/v1/documents/missing/reprocess", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown document: got %d, want 404", w.Code)
	}
}

func TestHandleQueueAll(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "done", "text")
	ctx := context.Background()
	if err := env.store.UpsertAsset(ctx, &models.Asset{ID: "new", OriginalPath: "/uploads/new.pdf", OriginalFileName: "new.pdf"}); err != nil {
		t.Fatal(err)
	}

	w := env.do(t, http.MethodPost, "/api/v1/documents/queue-all", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out struct {
		Queued int `json:"queued"`
	}
	decode(t, w, &out)
	if out.Queued != 1 {
		t.Errorf("queued: got %d, want 1", out.Queued)
	}

	w = env.do(t, http.MethodPost, "/api/v1/documents/queue-all", []byte(`{"force":true}`))
	decode(t, w, &out)
	if out.Queued != 1 {
		t.Errorf("forced queued: got %d, want 1 (the ready document)", out.Queued)
	}
	if len(env.queue.ids) != 2 {
		t.Errorf("queue: %v", env.queue.ids)
	}

	if w := env.do(t, http.MethodPost, "/api/v1/documents/queue-all", []byte(`{`)); w.Code != http.StatusBadRequest {
		t.Errorf("bad body: got %d, want 400", w.Code)
	}
}

func TestHandleStatus(t *testing.T) {
	env := newTestEnv(t, WithQueue(fixedStats{jobs.Stats{Succeeded: 3}}))
	env.seed(t, "d1", "one", "two")
	env.seed(t, "d2", "three")
	if err := env.store.MarkFailed(context.Background(), "d2", "boom"); err != nil {
		t.Fatal(err)
	}

	w := env.do(t, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, body: %s", w.Code, w.Body.String())
	}
	var out StatusResponse
	decode(t, w, &out)
	if out.Documents != 2 || out.Pages != 3 {
		t.Errorf("counts: documents=%d pages=%d", out.Documents, out.Pages)
	}
	if out.ByStatus["ready"] != 1 || out.ByStatus["failed"] != 1 {
		t.Errorf("by_status: %v", out.ByStatus)
	}
	if out.Queue == nil || out.Queue.Succeeded != 3 {
		t.Errorf("queue: %+v", out.Queue)
	}
	if out.DiskUsageBytes == nil || *out.DiskUsageBytes < 1 {
		t.Errorf("disk_usage_bytes: %v", out.DiskUsageBytes)
	}
	if out.Config == nil || out.Config.MaxPages != config.DefaultMaxPages || !out.Config.OCREnabled {
		t.Errorf("config: %+v", out.Config)
	}
}

func TestHandleWatchDirectoriesList(t *testing.T) {
	mock := &mockWatchService{dirs: []string{"/tmp/uploads"}}
	env := newTestEnv(t, WithWatch(mock, ""))

	w := env.do(t, http.MethodGet, "/api/v1/watch/directories", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
	var out struct {
		Directories []string `json:"directories"`
	}
	decode(t, w, &out)
	if len(out.Directories) != 1 || out.Directories[0] != "/tmp/uploads" {
		t.Errorf("directories: got %v", out.Directories)
	}
}

func TestHandleWatchDirectoriesList_NotEnabled(t *testing.T) {
	env := newTestEnv(t)
	if w := env.do(t, http.MethodGet, "/api/v1/watch/directories", nil); w.Code != http.StatusNotImplemented {
		t.Errorf("status: got %d, want 501", w.Code)
	}
}

func TestHandleWatchDirectoriesAddAndRemove(t *testing.T) {
	mock := &mockWatchService{}
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	env := newTestEnv(t, WithWatch(mock, configPath))

	body, _ := json.Marshal(map[string]string{"path": env.dir})
	w := env.do(t, http.MethodPost, "/api/v1/watch/directories", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("add: got %d, body: %s", w.Code, w.Body.String())
	}
	if len(mock.Directories()) != 1 {
		t.Errorf("expected 1 directory, got %v", mock.Directories())
	}
	saved, err := config.Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(saved.Watch.Directories) != 1 || saved.Watch.Directories[0] != env.dir {
		t.Errorf("persisted directories: %v", saved.Watch.Directories)
	}

	body, _ = json.Marshal(map[string]string{"path": env.dir + "/nonexistent"})
	if w := env.do(t, http.MethodPost, "/api/v1/watch/directories", body); w.Code != http.StatusNotFound {
		t.Errorf("missing directory: got %d", w.Code)
	}

	w = env.do(t, http.MethodDelete, "/api/v1/watch/directories?path="+env.dir, nil)
	if w.Code != http.StatusOK {
		t.Errorf("remove: got %d", w.Code)
	}
	if len(mock.Directories()) != 0 {
		t.Errorf("expected 0 directories, got %v", mock.Directories())
	}
	if w := env.do(t, http.MethodDelete, "/api/v1/watch/directories", nil); w.Code != http.StatusBadRequest ||
		!strings.Contains(w.Body.String(), "path is required") {
		t.Errorf("remove without path: got %d %s", w.Code, w.Body.String())
	}
}

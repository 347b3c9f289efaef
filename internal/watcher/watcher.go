// Package watcher keeps the asset registry in step with upload directories on disk.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultSettleDelay = 400 * time.Millisecond

// Handler receives upload events. OnChange runs once a file has stopped changing;
// OnRemove runs when a file is deleted or moved out of a watched directory.
type Handler interface {
	OnChange(path string)
	OnRemove(path string)
}

// HandlerFuncs adapts plain functions to Handler. Nil fields are ignored.
type HandlerFuncs struct {
	Change func(path string)
	Remove func(path string)
}

func (h HandlerFuncs) OnChange(path string) {
	if h.Change != nil {
		h.Change(path)
	}
}

func (h HandlerFuncs) OnRemove(path string) {
	if h.Remove != nil {
		h.Remove(path)
	}
}

// Watcher reports uploads under a set of root directories.
type Watcher struct {
	handler   Handler
	recursive bool
	exts      map[string]struct{}
	settle    time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	roots   []string
	watched map[string][]string // root -> directories registered with fsnotify
	pending map[string]*time.Timer
	done    chan struct{}
	once    sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for watcher events.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithSettleDelay sets how long a file must be quiet before OnChange runs.
func WithSettleDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithExtensions replaces the matched file extensions. No extensions matches every file.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) {
		w.exts = extensionSet(exts)
	}
}

// WithRecursive controls whether subdirectories of a root are watched too.
func WithRecursive(recursive bool) Option {
	return func(w *Watcher) { w.recursive = recursive }
}

// New creates a watcher over roots that reports PDF files to h.
func New(roots []string, h Handler, opts ...Option) *Watcher {
	w := &Watcher{
		handler:   h,
		recursive: true,
		exts:      extensionSet(Extensions),
		settle:    defaultSettleDelay,
		logger:    zap.NewNop(),
		roots:     cleanRoots(roots),
		watched:   make(map[string][]string),
		pending:   make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func cleanRoots(roots []string) []string {
	out := make([]string, 0, len(roots))
	for _, r := range roots {
		if abs, err := filepath.Abs(r); err == nil {
			r = abs
		}
		out = append(out, filepath.Clean(r))
	}
	return out
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		set[strings.TrimPrefix(strings.ToLower(e), ".")] = struct{}{}
	}
	return set
}

// Start registers the roots with fsnotify and handles events until ctx is cancelled or Stop
// is called. Missing roots are created.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	for _, root := range w.roots {
		if err := w.watchRootLocked(root); err != nil {
			_ = fsw.Close()
			w.fsw = nil
			w.watched = make(map[string][]string)
			return err
		}
	}
	w.logger.Debug("watcher started",
		zap.Strings("roots", w.roots),
		zap.Bool("recursive", w.recursive))
	go w.loop(ctx, fsw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.dispatch(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) dispatch(ev fsnotify.Event) {
	if !w.isUnderRoot(ev.Name) {
		return
	}
	w.logger.Debug("watcher event", zap.Stringer("op", ev.Op), zap.String("path", ev.Name))

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.stopTimer(ev.Name)
		if w.accepts(ev.Name) {
			w.handler.OnRemove(ev.Name)
		}
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
		if w.recursive {
			w.adoptDirectory(ev.Name)
		}
		return
	}
	if w.accepts(ev.Name) {
		w.scheduleChange(ev.Name)
	}
}

// adoptDirectory watches a directory that appeared under a root and reports what it already
// holds, since files copied in with it produce no events of their own.
func (w *Watcher) adoptDirectory(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	var added []string
	if fsw != nil {
		var err error
		added, err = w.addTree(fsw, dir)
		if err != nil {
			w.logger.Warn("watcher failed to watch directory", zap.String("path", dir), zap.Error(err))
		}
		if root := w.rootOfLocked(dir); root != "" {
			w.watched[root] = append(w.watched[root], added...)
		}
	}
	w.mu.Unlock()
	if fsw != nil {
		w.scan(dir)
	}
}

// addTree registers dir, and its subdirectories when recursive, with fsw.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, dir string) ([]string, error) {
	if !w.recursive {
		if err := fsw.Add(dir); err != nil {
			return nil, err
		}
		return []string{dir}, nil
	}
	var added []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return err
		}
		added = append(added, path)
		return nil
	})
	return added, err
}

func (w *Watcher) watchRootLocked(root string) error {
	root = filepath.Clean(root)
	if err := os.MkdirAll(root, 0755); err != nil {
		return err
	}
	added, err := w.addTree(w.fsw, root)
	if err != nil {
		for _, dir := range added {
			_ = w.fsw.Remove(dir)
		}
		return err
	}
	w.watched[root] = added
	return nil
}

func (w *Watcher) isUnderRoot(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rootOfLocked(path) != ""
}

func (w *Watcher) rootOfLocked(path string) string {
	path = filepath.Clean(path)
	for _, root := range w.roots {
		if path == root {
			return root
		}
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return root
		}
	}
	return ""
}

// accepts reports whether path names an upload: a matching extension and not a dotfile
// such as the "._name.pdf" metadata files some clients copy alongside uploads.
func (w *Watcher) accepts(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	if len(w.exts) == 0 {
		return true
	}
	_, ok := w.exts[strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")]
	return ok
}

// scheduleChange (re)arms the settle timer for path.
func (w *Watcher) scheduleChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		current := w.pending[path] == t
		if current {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		if !current {
			return
		}
		w.logger.Debug("watcher file settled", zap.String("path", path))
		w.handler.OnChange(path)
	})
	w.pending[path] = t
}

func (w *Watcher) stopTimer(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

// scan reports every accepted file under dir to OnChange.
func (w *Watcher) scan(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !w.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if w.accepts(path) {
			w.handler.OnChange(path)
		}
		return nil
	})
	if err != nil {
		w.logger.Warn("watcher scan failed", zap.String("path", dir), zap.Error(err))
	}
}

func (w *Watcher) hasRootLocked(abs string) bool {
	for _, r := range w.roots {
		if r == abs {
			return true
		}
	}
	return false
}

// AddDirectory starts watching root. When syncExisting is set, files already in it are
// reported in the background. Adding a watched root is a no-op; before Start the root is
// only recorded.
func (w *Watcher) AddDirectory(root string, syncExisting bool) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.hasRootLocked(abs) {
		return nil
	}
	if w.fsw == nil {
		w.roots = append(w.roots, abs)
		return nil
	}
	if err := w.watchRootLocked(abs); err != nil {
		return err
	}
	w.roots = append(w.roots, abs)
	w.logger.Info("watching directory", zap.String("path", abs))
	if syncExisting {
		go w.scan(abs)
	}
	return nil
}

// RemoveDirectory stops watching root. Assets already registered from it are kept.
func (w *Watcher) RemoveDirectory(root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.hasRootLocked(abs) {
		return nil
	}
	if w.fsw != nil {
		for _, dir := range w.watched[abs] {
			_ = w.fsw.Remove(dir)
		}
	}
	delete(w.watched, abs)
	kept := w.roots[:0]
	for _, r := range w.roots {
		if r != abs {
			kept = append(kept, r)
		}
	}
	w.roots = kept
	w.logger.Info("stopped watching directory", zap.String("path", abs))
	return nil
}

// Directories returns the watched roots.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// SyncExistingFiles reports files uploaded while the process was down. Call it after Start.
func (w *Watcher) SyncExistingFiles() {
	for _, root := range w.Directories() {
		w.scan(root)
	}
}

// Stop cancels pending settle timers and closes the fsnotify watcher. A stopped Watcher
// cannot be started again.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.fsw == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.watched = make(map[string][]string)
	w.mu.Unlock()
	w.once.Do(func() { close(w.done) })
}

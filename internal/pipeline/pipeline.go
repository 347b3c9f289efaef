// Package pipeline turns an uploaded PDF into document metadata, per-page text, and search text.
//
// A run moves the document through pending -> processing -> ready | failed. Missing or
// failing external tools degrade the result instead of failing the document.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/extract"
	"github.com/hyperjump/folio/internal/indexer"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/ocr"
	"github.com/hyperjump/folio/internal/runner"
	"github.com/hyperjump/folio/internal/storage"
	"github.com/hyperjump/folio/pkg/utils"
)

// MaxErrorLength bounds the error message stored on a failed document.
const MaxErrorLength = 500

// ErrFileTooLarge is returned when a file exceeds the configured size limit.
var ErrFileTooLarge = errors.New("file exceeds maximum size")

// TagReader reads raw metadata tags from a PDF.
type TagReader interface {
	ReadTags(ctx context.Context, path string) (extract.Tags, error)
}

// PageTextExtractor returns the normalized text of one page.
type PageTextExtractor interface {
	ExtractPage(ctx context.Context, path string, page int) (string, error)
}

// DimensionReader returns page sizes keyed by page number.
type DimensionReader interface {
	Dimensions(ctx context.Context, path string, pageCount int) (map[int]extract.PageSize, error)
}

// PageRasterizer renders one page to an image the caller must Close.
type PageRasterizer interface {
	Rasterize(ctx context.Context, path string, page int) (*extract.Raster, error)
}

// PreviewRenderer stores first-page images of a document.
type PreviewRenderer interface {
	RenderPreviews(ctx context.Context, path, id string) error
	RemovePreviews(id string) error
}

// DocumentIndexer mirrors a processed document into the keyword index.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, doc *models.Document, pages []*models.Page, searchText string) error
	DeleteDocument(ctx context.Context, id string) error
}

// Enqueuer schedules a document for processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, id string) error
}

// Options holds the limits applied to each run.
type Options struct {
	// MaxFileSizeBytes fails larger files before extraction. Zero disables the check.
	MaxFileSizeBytes int64
	// MaxPages skips page extraction when the page count is higher.
	MaxPages              int
	MinEmbeddedTextLength int
	OCREnabled            bool
}

// OptionsFromConfig maps configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxFileSizeBytes:      cfg.Processing.MaxFileSizeBytes,
		MaxPages:              cfg.Processing.MaxPages,
		MinEmbeddedTextLength: cfg.Processing.MinEmbeddedTextLength,
		OCREnabled:            cfg.OCR.EnabledOrDefault(),
	}
}

// Deps are the collaborators a Processor drives.
type Deps struct {
	Tags       TagReader
	Text       PageTextExtractor
	Dimensions DimensionReader
	Rasterizer PageRasterizer
	OCR        ocr.Service
	Indexer    DocumentIndexer
	// Previews is optional; without it no preview images are written.
	Previews PreviewRenderer
}

// NewDeps builds the default collaborators: poppler tools invoked through run, and the
// PDF tag reader.
func NewDeps(cfg *config.Config, run runner.Runner, ocrService ocr.Service, idx DocumentIndexer) Deps {
	p := cfg.Processing
	return Deps{
		Tags:       extract.NewPDFTagReader(),
		Text:       extract.NewTextExtractor(run, p.PdftotextPath),
		Dimensions: extract.NewDimensionExtractor(run, p.PdfinfoPath),
		Rasterizer: extract.NewRasterizer(run, p.PdftoppmPath, p.RasterDPI, p.TempDir),
		OCR:        ocrService,
		Indexer:    idx,
	}
}

// Processor runs the pipeline. One Processor is shared by all workers of a process; the only
// state it keeps across documents is the set of "tool missing" warnings already logged.
type Processor struct {
	store  storage.Storage
	deps   Deps
	opts   Options
	queue  Enqueuer
	logger *zap.Logger

	textToolMissing   sync.Once
	dimsToolMissing   sync.Once
	rasterToolMissing sync.Once
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithQueue sets where Trigger, Reprocess, and QueueAll schedule work. Without a queue they
// only update document status.
func WithQueue(q Enqueuer) ProcessorOption {
	return func(p *Processor) { p.queue = q }
}

// NewProcessor creates a processor over store.
func NewProcessor(store storage.Storage, deps Deps, opts Options, options ...ProcessorOption) *Processor {
	if opts.MaxPages <= 0 {
		opts.MaxPages = config.DefaultMaxPages
	}
	if opts.MinEmbeddedTextLength <= 0 {
		opts.MinEmbeddedTextLength = config.DefaultMinEmbeddedTextLength
	}
	p := &Processor{store: store, deps: deps, opts: opts, logger: zap.NewNop()}
	for _, o := range options {
		o(p)
	}
	return p
}

// HandleProcess is the job handler for one document id.
// Unknown, deleted, and non-PDF assets are skipped without touching document status.
func (p *Processor) HandleProcess(ctx context.Context, id string) models.JobStatus {
	asset, err := p.store.GetAsset(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		p.logger.Debug("pipeline skipping unknown asset", zap.String("id", id))
		return models.JobSkipped
	}
	if err != nil {
		p.logger.Error("pipeline failed to load asset", zap.String("id", id), zap.Error(err))
		return models.JobFailed
	}
	if asset.DeletedAt != nil || !asset.IsPDF() {
		p.logger.Debug("pipeline skipping ineligible asset", zap.String("id", id),
			zap.Bool("deleted", asset.DeletedAt != nil), zap.String("file", asset.OriginalFileName))
		return models.JobSkipped
	}
	if err := p.Process(ctx, asset); err != nil {
		return models.JobFailed
	}
	return models.JobSuccess
}

// Process runs the pipeline for asset and records the outcome on its document.
// The returned error is the full failure; the stored one is truncated.
func (p *Processor) Process(ctx context.Context, asset *models.Asset) error {
	if err := p.store.MarkProcessing(ctx, asset.ID); err != nil {
		err = fmt.Errorf("mark processing: %w", err)
		p.fail(ctx, asset, err)
		return err
	}
	if err := p.run(ctx, asset); err != nil {
		p.fail(ctx, asset, err)
		return err
	}
	p.logger.Info("pipeline document ready", zap.String("id", asset.ID), zap.String("file", asset.OriginalFileName))
	p.renderPreviews(ctx, asset)
	return nil
}

// renderPreviews writes the first-page images of a ready document. Failures only log;
// the document stays ready.
func (p *Processor) renderPreviews(ctx context.Context, asset *models.Asset) {
	if p.deps.Previews == nil {
		return
	}
	if err := p.deps.Previews.RenderPreviews(ctx, asset.OriginalPath, asset.ID); err != nil {
		p.logger.Warn("pipeline failed to render previews", zap.String("id", asset.ID), zap.Error(err))
	}
}

func (p *Processor) fail(ctx context.Context, asset *models.Asset, err error) {
	p.logger.Error("pipeline document failed", zap.String("id", asset.ID),
		zap.String("path", asset.OriginalPath), zap.Error(err))
	// The run's context may be cancelled; the failure must still be recorded.
	msg := utils.Truncate(err.Error(), MaxErrorLength)
	if markErr := p.store.MarkFailed(context.WithoutCancel(ctx), asset.ID, msg); markErr != nil {
		p.logger.Error("pipeline failed to record failure", zap.String("id", asset.ID), zap.Error(markErr))
	}
}

func (p *Processor) run(ctx context.Context, asset *models.Asset) error {
	path := asset.OriginalPath
	if limit := p.opts.MaxFileSizeBytes; limit > 0 {
		size, err := storage.FileSize(path)
		if err != nil {
			return fmt.Errorf("check file size: %w", err)
		}
		if size > limit {
			return fmt.Errorf("%w: %d bytes is over the %d byte limit", ErrFileTooLarge, size, limit)
		}
	}

	tags, err := p.deps.Tags.ReadTags(ctx, path)
	if err != nil {
		return fmt.Errorf("read metadata: %w", err)
	}
	meta := extract.ReadMetadata(tags)

	pages := []*models.Page{}
	if meta.PageCount > p.opts.MaxPages {
		p.logger.Info("pipeline skipping page extraction over page limit", zap.String("id", asset.ID),
			zap.Int("page_count", meta.PageCount), zap.Int("max_pages", p.opts.MaxPages))
	} else if meta.PageCount > 0 {
		if pages, err = p.extractPages(ctx, asset.ID, path, meta.PageCount); err != nil {
			return err
		}
	}

	texts := make([]string, len(pages))
	for i, pg := range pages {
		texts[i] = pg.Text
	}
	searchText := indexer.BuildSearchText(texts)

	if p.deps.Indexer != nil {
		doc := &models.Document{ID: asset.ID, Metadata: meta, OwnerID: asset.OwnerID, FileName: asset.OriginalFileName}
		if err := p.deps.Indexer.IndexDocument(ctx, doc, pages, searchText); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.store.Complete(ctx, asset.ID, meta, pages, searchText); err != nil {
		return fmt.Errorf("save results: %w", err)
	}
	return nil
}

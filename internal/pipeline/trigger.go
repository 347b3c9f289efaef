package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/models"
)

// Trigger marks a document pending and schedules it. A document that is already pending or
// processing is not scheduled again; the result reports whether a job was scheduled.
// Deleted and non-PDF assets are ignored without creating a document.
func (p *Processor) Trigger(ctx context.Context, id string) (bool, error) {
	asset, err := p.store.GetAsset(ctx, id)
	if err != nil {
		return false, fmt.Errorf("load asset: %w", err)
	}
	if asset.DeletedAt != nil || !asset.IsPDF() {
		p.logger.Debug("pipeline trigger ignored, ineligible asset", zap.String("id", id),
			zap.Bool("deleted", asset.DeletedAt != nil), zap.String("file", asset.OriginalFileName))
		return false, nil
	}
	changed, err := p.store.MarkPending(ctx, id)
	if err != nil {
		return false, fmt.Errorf("mark pending: %w", err)
	}
	if !changed {
		p.logger.Debug("pipeline trigger ignored, already queued", zap.String("id", id))
		return false, nil
	}
	return true, p.enqueue(ctx, id)
}

// Reprocess schedules a ready or failed document again. Requests for pending or processing
// documents are ignored and report false. Unknown documents return storage.ErrNotFound.
func (p *Processor) Reprocess(ctx context.Context, id string) (bool, error) {
	if _, err := p.store.GetDocument(ctx, id); err != nil {
		return false, err
	}
	ok, err := p.store.MarkReprocess(ctx, id)
	if err != nil {
		return false, fmt.Errorf("mark reprocess: %w", err)
	}
	if !ok {
		p.logger.Debug("pipeline reprocess ignored, document in flight", zap.String("id", id))
		return false, nil
	}
	return true, p.enqueue(ctx, id)
}

// QueueAll triggers every live PDF asset. Without force, only assets never seen by the
// pipeline are considered. Returns the number of documents scheduled.
func (p *Processor) QueueAll(ctx context.Context, force bool) (int, error) {
	ids, err := p.store.ListPDFAssetIDs(ctx, force)
	if err != nil {
		return 0, fmt.Errorf("list pdf assets: %w", err)
	}
	n := 0
	for _, id := range ids {
		queued, err := p.Trigger(ctx, id)
		if err != nil {
			return n, err
		}
		if queued {
			n++
		}
	}
	p.logger.Info("pipeline queued documents", zap.Int("count", n), zap.Int("candidates", len(ids)), zap.Bool("force", force))
	return n, nil
}

// Resume schedules documents left pending or processing by a previous run of the process.
func (p *Processor) Resume(ctx context.Context) (int, error) {
	ids, err := p.store.ListDocumentIDs(ctx, models.StatusPending, models.StatusProcessing)
	if err != nil {
		return 0, fmt.Errorf("list unfinished documents: %w", err)
	}
	for _, id := range ids {
		if err := p.enqueue(ctx, id); err != nil {
			return 0, err
		}
	}
	if len(ids) > 0 {
		p.logger.Info("pipeline resumed unfinished documents", zap.Int("count", len(ids)))
	}
	return len(ids), nil
}

// Forget removes a deleted document from the keyword index and drops its preview images.
func (p *Processor) Forget(ctx context.Context, id string) error {
	if p.deps.Previews != nil {
		if err := p.deps.Previews.RemovePreviews(id); err != nil {
			p.logger.Warn("pipeline failed to remove previews", zap.String("id", id), zap.Error(err))
		}
	}
	if p.deps.Indexer == nil {
		return nil
	}
	return p.deps.Indexer.DeleteDocument(ctx, id)
}

func (p *Processor) enqueue(ctx context.Context, id string) error {
	if p.queue == nil {
		return nil
	}
	if err := p.queue.Enqueue(ctx, id); err != nil {
		return fmt.Errorf("enqueue %s: %w", id, err)
	}
	return nil
}

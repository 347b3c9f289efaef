package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/assetid"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/storage"
)

// Extensions are the file types registered as assets.
var Extensions = []string{".pdf"}

// Pipeline is the part of the processing pipeline the watcher drives.
type Pipeline interface {
	Trigger(ctx context.Context, id string) (bool, error)
	Forget(ctx context.Context, id string) error
}

// AssetSync registers files seen on disk as assets and schedules them for processing.
type AssetSync struct {
	store    storage.AssetStore
	pipeline Pipeline
	ownerID  string
	logger   *zap.Logger
}

// NewAssetSync creates an AssetSync that records ownerID on new assets.
func NewAssetSync(store storage.AssetStore, pipeline Pipeline, ownerID string, logger *zap.Logger) *AssetSync {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssetSync{store: store, pipeline: pipeline, ownerID: ownerID, logger: logger}
}

// Register upserts the asset for path and triggers processing. It returns the asset id and
// whether a job was scheduled.
func (s *AssetSync) Register(ctx context.Context, path string) (string, bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", false, err
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("%s is a directory", abs)
	}
	asset := &models.Asset{
		ID:               assetid.ForAbsolutePath(abs),
		OwnerID:          s.ownerID,
		OriginalPath:     abs,
		OriginalFileName: filepath.Base(abs),
	}
	if err := s.store.UpsertAsset(ctx, asset); err != nil {
		return "", false, fmt.Errorf("register asset: %w", err)
	}
	queued, err := s.pipeline.Trigger(ctx, asset.ID)
	if err != nil {
		return asset.ID, false, err
	}
	return asset.ID, queued, nil
}

// Remove marks the asset for path deleted and drops it from the keyword index.
func (s *AssetSync) Remove(ctx context.Context, path string) error {
	id, err := assetid.FromPath(path)
	if err != nil {
		return err
	}
	if err := s.store.MarkAssetDeleted(ctx, id); err != nil {
		return fmt.Errorf("delete asset: %w", err)
	}
	return s.pipeline.Forget(ctx, id)
}

var _ Handler = (*AssetSync)(nil)

// OnChange registers path, logging failures.
func (s *AssetSync) OnChange(path string) {
	id, queued, err := s.Register(context.Background(), path)
	if err != nil {
		s.logger.Warn("watcher failed to register file", zap.String("path", path), zap.Error(err))
		return
	}
	s.logger.Debug("watcher registered file", zap.String("path", path), zap.String("id", id), zap.Bool("queued", queued))
}

// OnRemove removes path, logging failures.
func (s *AssetSync) OnRemove(path string) {
	if err := s.Remove(context.Background(), path); err != nil {
		s.logger.Warn("watcher failed to remove file", zap.String("path", path), zap.Error(err))
	}
}

// Package storage defines persistence for assets, PDF documents, pages, and search text.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/folio/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DocumentFilter narrows ListDocuments. Zero values match everything.
type DocumentFilter struct {
	Status  models.DocumentStatus
	OwnerID string
}

// AssetStore persists uploaded files.
type AssetStore interface {
	UpsertAsset(ctx context.Context, asset *models.Asset) error
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	MarkAssetDeleted(ctx context.Context, id string) error
	// ListPDFAssetIDs returns live PDF assets. Without force, only assets that have never
	// been queued are returned.
	ListPDFAssetIDs(ctx context.Context, force bool) ([]string, error)
}

// DocumentStore persists document state, pages, and search text.
type DocumentStore interface {
	// MarkPending creates the document or resets it to pending. Documents already pending or
	// processing are left alone; the result reports whether anything changed.
	MarkPending(ctx context.Context, id string) (bool, error)
	// MarkReprocess moves a ready or failed document to pending and reports whether it did.
	MarkReprocess(ctx context.Context, id string) (bool, error)
	MarkProcessing(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, message string) error
	// Complete stores metadata, replaces all pages, upserts search text, and marks the
	// document ready, in one transaction.
	Complete(ctx context.Context, id string, meta models.Metadata, pages []*models.Page, searchText string) error

	GetDocument(ctx context.Context, id string) (*models.Document, error)
	GetDocumentsByIDs(ctx context.Context, ids []string) ([]*models.Document, error)
	ListDocuments(ctx context.Context, filter DocumentFilter, page, size int) (*models.DocumentList, error)
	ListDocumentIDs(ctx context.Context, statuses ...models.DocumentStatus) ([]string, error)
	GetPages(ctx context.Context, id string) ([]*models.Page, error)
	GetPage(ctx context.Context, id string, pageNumber int) (*models.Page, error)
	GetSearchText(ctx context.Context, id string) (string, error)

	CountDocuments(ctx context.Context) (int64, error)
	CountPages(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context) (map[models.DocumentStatus]int64, error)
}

// Storage combines asset and document persistence.
type Storage interface {
	AssetStore
	DocumentStore
	Close() error
}

// Package indexer turns processed documents into search text and keyword index entries.
package indexer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/keyword"
	"github.com/hyperjump/folio/internal/models"
)

// Indexer mirrors documents and their pages into a keyword index.
type Indexer struct {
	keywordIndex keyword.KeywordIndex
	logger       *zap.Logger // optional; when set, logs debug events
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// NewIndexer creates an indexer writing to keywordIndex.
func NewIndexer(keywordIndex keyword.KeywordIndex, opts ...IndexerOption) *Indexer {
	idx := &Indexer{keywordIndex: keywordIndex}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// IndexDocument replaces the document's entries in the keyword index with one document entry
// holding searchText and one entry per page.
func (idx *Indexer) IndexDocument(ctx context.Context, doc *models.Document, pages []*models.Page, searchText string) error {
	entries := make([]*keyword.Entry, 0, len(pages)+1)
	entries = append(entries, &keyword.Entry{
		Kind:       keyword.KindDocument,
		DocumentID: doc.ID,
		OwnerID:    doc.OwnerID,
		Title:      Tokenize(titleText(doc)),
		Text:       searchText,
	})
	for _, p := range pages {
		entries = append(entries, &keyword.Entry{
			Kind:       keyword.KindPage,
			DocumentID: doc.ID,
			PageNumber: p.PageNumber,
			OwnerID:    doc.OwnerID,
			Text:       Tokenize(p.Text),
		})
	}
	if err := idx.keywordIndex.Replace(ctx, doc.ID, entries); err != nil {
		return fmt.Errorf("failed to index keywords: %w", err)
	}
	if idx.logger != nil {
		idx.logger.Debug("indexer document indexed", zap.String("id", doc.ID), zap.Int("pages", len(pages)))
	}
	return nil
}

// titleText combines the title tag and the file name, so "q3_board_minutes.pdf" is
// searchable as "q3 board minutes".
func titleText(doc *models.Document) string {
	parts := make([]string, 0, 2)
	if doc.Title != nil {
		parts = append(parts, *doc.Title)
	}
	if doc.FileName != "" {
		parts = append(parts, strings.TrimSuffix(doc.FileName, ".pdf"))
	}
	return strings.Join(parts, " ")
}

// DeleteDocument removes a document and its pages from the keyword index.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	if idx.logger != nil {
		idx.logger.Debug("indexer deleting document", zap.String("id", id))
	}
	if err := idx.keywordIndex.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete from keyword index: %w", err)
	}
	return nil
}

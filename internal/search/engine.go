// Package search answers full-text queries over processed documents.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/folio/internal/config"
	"github.com/hyperjump/folio/internal/indexer"
	"github.com/hyperjump/folio/internal/keyword"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/storage"
)

// Engine runs document and in-document search.
type Engine struct {
	storage      storage.DocumentStore
	keywordIndex keyword.KeywordIndex
	config       *config.SearchConfig
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(store storage.DocumentStore, keywordIndex keyword.KeywordIndex, cfg *config.SearchConfig) *Engine {
	return &Engine{
		storage:      store,
		keywordIndex: keywordIndex,
		config:       cfg,
	}
}

// Search returns one page of documents containing every query term, each with the pages
// that matched.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := ProcessQuery(query, e.config); err != nil {
		return nil, err
	}
	response := &models.SearchResponse{
		Items: []models.DocumentMatch{},
		Query: query.Query,
	}

	terms := indexer.Tokenize(query.Query)
	if terms == "" {
		response.QueryTime = time.Since(startTime).Milliseconds()
		return response, nil
	}

	offset := (query.Page - 1) * query.Size
	ids, total, err := e.keywordIndex.SearchDocuments(ctx, terms, query.OwnerID, offset, query.Size)
	if err != nil {
		return nil, fmt.Errorf("keyword search failed: %w", err)
	}
	docs, err := e.storage.GetDocumentsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	for _, doc := range docs {
		pages, err := e.keywordIndex.MatchingPages(ctx, doc.ID, terms)
		if err != nil {
			return nil, fmt.Errorf("page search failed: %w", err)
		}
		if pages == nil {
			pages = []int{}
		}
		response.Items = append(response.Items, models.DocumentMatch{Document: doc, MatchingPages: pages})
	}

	response.Total = total
	if offset+len(ids) < total {
		next := query.Page + 1
		response.NextPage = &next
	}
	response.QueryTime = time.Since(startTime).Milliseconds()
	return response, nil
}

// SearchInDocument finds every occurrence of query in the pages of document id, ignoring
// case and diacritics. Unknown documents return storage.ErrNotFound.
func (e *Engine) SearchInDocument(ctx context.Context, id, query string) ([]models.PageHit, error) {
	needle := []rune(indexer.Fold(query))
	if len(needle) == 0 {
		return nil, fmt.Errorf("query cannot be empty")
	}
	if _, err := e.storage.GetDocument(ctx, id); err != nil {
		return nil, err
	}
	pages, err := e.storage.GetPages(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages: %w", err)
	}
	hits := []models.PageHit{}
	for _, p := range pages {
		if p.Text == "" {
			continue
		}
		text := []rune(p.Text)
		for _, m := range FindMatches(text, needle) {
			hits = append(hits, models.PageHit{
				PageNumber: p.PageNumber,
				Snippet:    Snippet(text, m.Start, m.End, e.config.SnippetRadius),
				Offset:     m.Start,
			})
		}
	}
	return hits, nil
}

// Package keyword provides full-text indexing of documents and their pages.
package keyword

import (
	"context"
	"fmt"
)

// Entry kinds stored in the index.
const (
	KindDocument = "document"
	KindPage     = "page"
)

// Entry is one indexed unit: a whole document or a single page of it.
// Text and Title are expected to be tokenized already.
type Entry struct {
	Kind       string `json:"kind"`
	DocumentID string `json:"document_id"`
	PageNumber int    `json:"page_number"`
	OwnerID    string `json:"owner_id"`
	Title      string `json:"title"`
	Text       string `json:"text"`
}

// ID returns the index key of the entry.
func (e *Entry) ID() string {
	if e.Kind == KindPage {
		return PageEntryID(e.DocumentID, e.PageNumber)
	}
	return e.DocumentID
}

// PageEntryID returns the index key of a page entry.
func PageEntryID(documentID string, page int) string {
	return fmt.Sprintf("%s#p%d", documentID, page)
}

// KeywordIndex defines full-text index operations.
type KeywordIndex interface {
	// Replace swaps all entries of documentID for entries in one batch.
	Replace(ctx context.Context, documentID string, entries []*Entry) error
	// SearchDocuments returns ids of documents whose text or title contains every query term,
	// together with the total number of matches.
	SearchDocuments(ctx context.Context, query, ownerID string, offset, limit int) ([]string, int, error)
	// MatchingPages returns ascending page numbers of documentID whose text contains every query term.
	MatchingPages(ctx context.Context, documentID, query string) ([]int, error)
	Delete(ctx context.Context, documentID string) error
	DocCount() (uint64, error)
	Close() error
}

package models

import "fmt"

// SearchQuery represents a paged full-text search across documents.
type SearchQuery struct {
	Query   string `json:"query"`
	OwnerID string `json:"owner_id,omitempty"`
	Page    int    `json:"page,omitempty"`
	Size    int    `json:"size,omitempty"`
}

// Validate ensures the query is non-empty and normalizes paging.
// Page defaults to 1; Size defaults to defaultSize and is capped at maxSize.
func (q *SearchQuery) Validate(defaultSize, maxSize int) error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	q.Page, q.Size = NormalizePaging(q.Page, q.Size, defaultSize, maxSize)
	return nil
}

// NormalizePaging clamps a 1-indexed page and a page size.
func NormalizePaging(page, size, defaultSize, maxSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultSize
	}
	if maxSize > 0 && size > maxSize {
		size = maxSize
	}
	return page, size
}

// DocumentMatch is one document in a search response with the pages whose text matched.
type DocumentMatch struct {
	Document      *Document `json:"document"`
	MatchingPages []int     `json:"matching_pages"`
}

// SearchResponse is a page of search results. NextPage is nil on the last page.
type SearchResponse struct {
	Items     []DocumentMatch `json:"items"`
	Total     int             `json:"total"`
	NextPage  *int            `json:"next_page"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}

// PageHit is one match inside a document. Offset is the rune offset into the page text.
type PageHit struct {
	PageNumber int    `json:"page_number"`
	Snippet    string `json:"snippet"`
	Offset     int    `json:"offset"`
}

// DocumentList is a page of documents. NextPage is nil on the last page.
type DocumentList struct {
	Items    []*Document `json:"items"`
	NextPage *int        `json:"next_page"`
}

package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// pageScanSize is the batch size used when collecting a document's page entries.
const pageScanSize = 500

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path.
// An existing index is reopened. If the mapping changes, remove the index directory and
// run queue-all with force to rebuild it.
func NewBleveIndex(path string) (*BleveIndex, error) {
	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}
	index, err := bleve.New(path, newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// NewMemoryIndex returns an in-memory index, used by tests and one-shot CLI runs.
func NewMemoryIndex() (*BleveIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

func newMapping() *mapping.IndexMappingImpl {
	im := bleve.NewIndexMapping()
	entry := bleve.NewDocumentMapping()

	// Standard analyzer: lowercase and tokenize without stemming, so a query only matches
	// words that literally appear in the text.
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	text.Store = false
	entry.AddFieldMappingsAt("text", text)
	entry.AddFieldMappingsAt("title", text)

	kw := bleve.NewKeywordFieldMapping()
	entry.AddFieldMappingsAt("kind", kw)
	entry.AddFieldMappingsAt("document_id", kw)
	entry.AddFieldMappingsAt("owner_id", kw)

	page := bleve.NewNumericFieldMapping()
	entry.AddFieldMappingsAt("page_number", page)

	im.DefaultMapping = entry
	return im
}

// Replace removes every existing entry of documentID and indexes entries, in one batch.
func (b *BleveIndex) Replace(ctx context.Context, documentID string, entries []*Entry) error {
	existing, err := b.entryIDs(documentID)
	if err != nil {
		return err
	}
	batch := b.index.NewBatch()
	for _, id := range existing {
		batch.Delete(id)
	}
	for _, e := range entries {
		if e.DocumentID != documentID {
			return fmt.Errorf("entry for %q in batch for %q", e.DocumentID, documentID)
		}
		if err := batch.Index(e.ID(), e); err != nil {
			return fmt.Errorf("index entry %s: %w", e.ID(), err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

// entryIDs returns the keys of all entries (document and pages) belonging to documentID.
func (b *BleveIndex) entryIDs(documentID string) ([]string, error) {
	var ids []string
	for from := 0; ; from += pageScanSize {
		req := bleve.NewSearchRequestOptions(termQuery("document_id", documentID), pageScanSize, from, false)
		req.SortBy([]string{"_id"})
		res, err := b.index.Search(req)
		if err != nil {
			return nil, fmt.Errorf("Bleve search failed: %w", err)
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if len(res.Hits) < pageScanSize {
			return ids, nil
		}
	}
}

// SearchDocuments runs an all-terms match over document text and title.
// Results are ordered by score, then id, so paging is stable.
func (b *BleveIndex) SearchDocuments(ctx context.Context, query, ownerID string, offset, limit int) ([]string, int, error) {
	if limit <= 0 {
		return nil, 0, nil
	}
	text := matchAll("text", query)
	title := matchAll("title", query)
	clauses := []blevequery.Query{
		termQuery("kind", KindDocument),
		bleve.NewDisjunctionQuery(text, title),
	}
	if ownerID != "" {
		clauses = append(clauses, termQuery("owner_id", ownerID))
	}
	req := bleve.NewSearchRequestOptions(bleve.NewConjunctionQuery(clauses...), limit, offset, false)
	req.SortBy([]string{"-_score", "_id"})
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("Bleve search failed: %w", err)
	}
	ids := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ids[i] = hit.ID
	}
	return ids, int(res.Total), nil
}

// MatchingPages returns the page numbers of documentID whose text contains all query terms.
func (b *BleveIndex) MatchingPages(ctx context.Context, documentID, query string) ([]int, error) {
	q := bleve.NewConjunctionQuery(
		termQuery("kind", KindPage),
		termQuery("document_id", documentID),
		matchAll("text", query),
	)
	var pages []int
	for from := 0; ; from += pageScanSize {
		req := bleve.NewSearchRequestOptions(q, pageScanSize, from, false)
		req.Fields = []string{"page_number"}
		res, err := b.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("Bleve search failed: %w", err)
		}
		for _, hit := range res.Hits {
			if n, ok := hit.Fields["page_number"].(float64); ok {
				pages = append(pages, int(n))
			}
		}
		if len(res.Hits) < pageScanSize {
			break
		}
	}
	sort.Ints(pages)
	return pages, nil
}

// Delete removes a document and all of its pages from the index.
func (b *BleveIndex) Delete(ctx context.Context, documentID string) error {
	return b.Replace(ctx, documentID, nil)
}

// DocCount returns the total number of entries (documents and pages) in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}

func termQuery(field, value string) blevequery.Query {
	q := bleve.NewTermQuery(value)
	q.SetField(field)
	return q
}

func matchAll(field, query string) blevequery.Query {
	q := bleve.NewMatchQuery(query)
	q.SetField(field)
	q.SetOperator(blevequery.MatchQueryOperatorAnd)
	return q
}

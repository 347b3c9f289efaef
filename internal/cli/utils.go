// Package cli formats folio results for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/pkg/utils"
)

// OutputFormat selects how results are written.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputCompact is one line per result.
	OutputCompact OutputFormat = "compact"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a flag value to an OutputFormat.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case OutputText, OutputCompact, OutputJSON:
		return f, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
}

// WriteSearchResults writes search results to w in the given format.
// Unknown formats are written as text.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, response)
	case OutputCompact:
		for _, item := range response.Items {
			fmt.Fprintf(w, "%s\t%s\tpages=%s\n", item.Document.ID, displayName(item.Document), joinInts(item.MatchingPages))
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d documents in %dms\n\n", response.Total, response.QueryTime)
	for _, item := range response.Items {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		writeDocumentSummary(w, item.Document)
		if len(item.MatchingPages) > 0 {
			fmt.Fprintf(w, "Matching pages: %s\n", joinInts(item.MatchingPages))
		}
		fmt.Fprintln(w)
	}
	if response.NextPage != nil {
		fmt.Fprintf(w, "More results: --page %d\n", *response.NextPage)
	}
}

// WriteDocument writes one document's state.
func WriteDocument(w io.Writer, doc *models.Document, format OutputFormat) error {
	switch format {
	case OutputJSON:
		return writeJSON(w, doc)
	case OutputCompact:
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", doc.ID, doc.Status, displayName(doc), doc.PageCount)
		return nil
	default:
		writeDocumentSummary(w, doc)
		return nil
	}
}

func writeDocumentSummary(w io.Writer, doc *models.Document) {
	fmt.Fprintf(w, "ID: %s\n", doc.ID)
	fmt.Fprintf(w, "Name: %s\n", displayName(doc))
	fmt.Fprintf(w, "Status: %s | Pages: %d\n", doc.Status, doc.PageCount)
	if doc.Author != nil {
		fmt.Fprintf(w, "Author: %s\n", *doc.Author)
	}
	if doc.LastError != nil {
		fmt.Fprintf(w, "Error: %s\n", utils.Truncate(*doc.LastError, 200))
	}
}

// WritePageHits writes in-document matches.
func WritePageHits(w io.Writer, hits []models.PageHit, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, hits)
	}
	for _, h := range hits {
		fmt.Fprintf(w, "p.%d @%d  %s\n", h.PageNumber, h.Offset, h.Snippet)
	}
	return nil
}

func displayName(doc *models.Document) string {
	if doc.Title != nil && strings.TrimSpace(*doc.Title) != "" {
		return utils.Truncate(*doc.Title, 80)
	}
	if doc.FileName != "" {
		return doc.FileName
	}
	return "(untitled)"
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ",")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

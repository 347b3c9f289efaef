package indexer

import (
	"context"
	"strings"
	"testing"

	"github.com/hyperjump/folio/internal/keyword"
	"github.com/hyperjump/folio/internal/models"
)

func TestFold(t *testing.T) {
	tests := map[string]string{
		"Café":         "cafe",
		"ÅNGSTRÖM":     "angstrom",
		"naïve résumé": "naive resume",
		"plain":        "plain",
		"":             "",
	}
	for in, want := range tests {
		if got := Fold(in); got != want {
			t.Errorf("Fold(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello, World!", "hello world"},
		{"  Crème   brûlée\n\tRecipe #3 ", "creme brulee recipe 3"},
		{"invoice_2023-04.pdf", "invoice 2023 04 pdf"},
		{"---", ""},
		{"", ""},
		{"日本語 テキスト", "日本語 テキスト"},
	}
	for _, tt := range tests {
		if got := Tokenize(tt.in); got != tt.want {
			t.Errorf("Tokenize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildSearchText(t *testing.T) {
	if got := BuildSearchText(nil); got != "" {
		t.Errorf("no pages: got %q", got)
	}
	if got := BuildSearchText([]string{"", ""}); got != "" {
		t.Errorf("textless pages: got %q", got)
	}
	got := BuildSearchText([]string{"Page ONE", "", "page Two"})
	if got != "page one page two" {
		t.Errorf("got %q", got)
	}
}

func TestIndexer_IndexDocument(t *testing.T) {
	kw, err := keyword.NewMemoryIndex()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = kw.Close() }()
	idx := NewIndexer(kw)
	ctx := context.Background()

	title := "Board Minutes"
	doc := &models.Document{ID: "asset-1", OwnerID: "u1", FileName: "q3_report.pdf"}
	doc.Title = &title
	pages := []*models.Page{
		{PageNumber: 1, Text: "Résumé of attendees"},
		{PageNumber: 2, Text: "Budget approved"},
	}
	texts := []string{pages[0].Text, pages[1].Text}
	if err := idx.IndexDocument(ctx, doc, pages, BuildSearchText(texts)); err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}

	for _, q := range []string{"resume", "budget", "minutes", "q3"} {
		ids, _, err := kw.SearchDocuments(ctx, Tokenize(q), "", 0, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(ids) != 1 || ids[0] != "asset-1" {
			t.Errorf("query %q: got %v", q, ids)
		}
	}
	matches, err := kw.MatchingPages(ctx, "asset-1", Tokenize("RÉSUMÉ"))
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0] != 1 {
		t.Errorf("matching pages = %v", matches)
	}

	if err := idx.DeleteDocument(ctx, "asset-1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := kw.DocCount(); n != 0 {
		t.Errorf("doc count after delete = %d", n)
	}
}

func TestTitleText(t *testing.T) {
	doc := &models.Document{FileName: "scan_001.pdf"}
	if got := titleText(doc); !strings.Contains(got, "scan_001") || strings.Contains(got, ".pdf") {
		t.Errorf("titleText = %q", got)
	}
}

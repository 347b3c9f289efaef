package extract

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/runner"
)

// TextExtractor runs pdftotext for one page at a time.
type TextExtractor struct {
	runner runner.Runner
	bin    string
}

// NewTextExtractor returns an extractor that invokes bin (usually "pdftotext") through r.
func NewTextExtractor(r runner.Runner, bin string) *TextExtractor {
	if bin == "" {
		bin = "pdftotext"
	}
	return &TextExtractor{runner: r, bin: bin}
}

// ExtractPage returns the normalized text of a single 1-indexed page.
// Errors wrap runner.ErrNotFound, runner.ErrTimeout or ErrToolFailed.
func (e *TextExtractor) ExtractPage(ctx context.Context, path string, page int) (string, error) {
	args := append(pageRange(page, page), "-enc", "UTF-8", path, "-")
	var lines []string
	code, err := e.runner.Run(ctx, e.bin, args, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", toolFailure(e.bin, code)
	}
	return NormalizePageText(lines), nil
}

// NormalizePageText joins stdout lines and trims surrounding whitespace, including
// the form feed pdftotext writes after each page.
func NormalizePageText(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ClassifyText returns embedded when text has at least minLength characters, none otherwise.
func ClassifyText(text string, minLength int) models.TextSource {
	if utf8.RuneCountInString(text) >= minLength {
		return models.TextSourceEmbedded
	}
	return models.TextSourceNone
}

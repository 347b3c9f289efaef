package extract

import (
	"context"
	"regexp"
	"strconv"

	"github.com/hyperjump/folio/internal/runner"
)

// PageSize is a page's width and height in points.
type PageSize struct {
	Width  float64
	Height float64
}

var pageSizePattern = regexp.MustCompile(`(?i)^\s*Page\s+(\d+)\s+size:\s*([\d.]+)\s*x\s*([\d.]+)\s*pts`)

// DimensionExtractor runs pdfinfo once per document to read every page size.
type DimensionExtractor struct {
	runner runner.Runner
	bin    string
}

// NewDimensionExtractor returns an extractor that invokes bin (usually "pdfinfo") through r.
func NewDimensionExtractor(r runner.Runner, bin string) *DimensionExtractor {
	if bin == "" {
		bin = "pdfinfo"
	}
	return &DimensionExtractor{runner: r, bin: bin}
}

// Dimensions returns the sizes of pages 1..pageCount keyed by page number.
// Pages the tool did not report are absent from the map.
func (e *DimensionExtractor) Dimensions(ctx context.Context, path string, pageCount int) (map[int]PageSize, error) {
	if pageCount <= 0 {
		return map[int]PageSize{}, nil
	}
	args := append(pageRange(1, pageCount), path)
	var lines []string
	code, err := e.runner.Run(ctx, e.bin, args, func(line string) {
		lines = append(lines, line)
	})
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, toolFailure(e.bin, code)
	}
	return ParsePageSizes(lines), nil
}

// ParsePageSizes parses "Page <n> size: <w> x <h> pts" lines from pdfinfo output.
// Lines that do not match, and non-positive sizes, are ignored.
func ParsePageSizes(lines []string) map[int]PageSize {
	sizes := make(map[int]PageSize)
	for _, line := range lines {
		m := pageSizePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		page, err := strconv.Atoi(m[1])
		if err != nil || page < 1 {
			continue
		}
		w, errW := strconv.ParseFloat(m[2], 64)
		h, errH := strconv.ParseFloat(m[3], 64)
		if errW != nil || errH != nil || w <= 0 || h <= 0 {
			continue
		}
		sizes[page] = PageSize{Width: w, Height: h}
	}
	return sizes
}

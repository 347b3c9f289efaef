package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hyperjump/folio/internal/extract"
	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/ocr"
	"github.com/hyperjump/folio/internal/runner"
)

// extractPages builds pages 1..pageCount sequentially: sizes from one pdfinfo call, text from
// one pdftotext call per page, then OCR for pages left without text. Only cancellation is
// returned as an error.
func (p *Processor) extractPages(ctx context.Context, id, path string, pageCount int) ([]*models.Page, error) {
	sizes := p.dimensions(ctx, id, path, pageCount)

	pages := make([]*models.Page, 0, pageCount)
	textAvailable := true
	for n := 1; n <= pageCount; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := &models.Page{PageNumber: n, TextSource: models.TextSourceNone}
		if textAvailable {
			text, err := p.deps.Text.ExtractPage(ctx, path, n)
			switch {
			case err == nil:
				page.Text = text
				page.TextSource = extract.ClassifyText(text, p.opts.MinEmbeddedTextLength)
			case ctx.Err() != nil:
				return nil, ctx.Err()
			case errors.Is(err, runner.ErrNotFound):
				textAvailable = false
				p.textToolMissing.Do(func() {
					p.logger.Warn("pdftotext not found; pages will have no embedded text", zap.Error(err))
				})
			default:
				p.logger.Warn("page text extraction failed", zap.String("id", id), zap.Int("page", n), zap.Error(err))
			}
		}
		if s, ok := sizes[n]; ok {
			w, h := s.Width, s.Height
			page.Width, page.Height = &w, &h
		}
		pages = append(pages, page)
	}

	if err := p.ocrFallback(ctx, id, path, pages); err != nil {
		return nil, err
	}
	return pages, nil
}

// dimensions returns page sizes, or an empty map when pdfinfo is missing or fails.
func (p *Processor) dimensions(ctx context.Context, id, path string, pageCount int) map[int]extract.PageSize {
	sizes, err := p.deps.Dimensions.Dimensions(ctx, path, pageCount)
	if err == nil {
		return sizes
	}
	if errors.Is(err, runner.ErrNotFound) {
		p.dimsToolMissing.Do(func() {
			p.logger.Warn("pdfinfo not found; pages will have no dimensions", zap.Error(err))
		})
	} else if ctx.Err() == nil {
		p.logger.Warn("page dimension extraction failed", zap.String("id", id), zap.Error(err))
	}
	return map[int]extract.PageSize{}
}

// ocrFallback recognizes text on pages classified none, one page at a time. Pages that
// yield no text stay none. Only cancellation is returned as an error.
func (p *Processor) ocrFallback(ctx context.Context, id, path string, pages []*models.Page) error {
	if !p.opts.OCREnabled || p.deps.OCR == nil || p.deps.Rasterizer == nil || !p.deps.OCR.Available() {
		return nil
	}
	for _, page := range pages {
		if page.TextSource != models.TextSourceNone {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		text, err := p.recognizePage(ctx, path, page.PageNumber)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, runner.ErrNotFound):
			p.rasterToolMissing.Do(func() {
				p.logger.Warn("pdftoppm not found; scanned pages will not be recognized", zap.Error(err))
			})
			return nil
		case err != nil:
			p.logger.Warn("page ocr failed", zap.String("id", id), zap.Int("page", page.PageNumber), zap.Error(err))
		case text == "":
			p.logger.Debug("page ocr found no text", zap.String("id", id), zap.Int("page", page.PageNumber))
		default:
			page.Text = text
			page.TextSource = models.TextSourceOCR
		}
	}
	return nil
}

// recognizePage rasterizes one page into its own temporary directory, which is removed
// before returning.
func (p *Processor) recognizePage(ctx context.Context, path string, pageNumber int) (string, error) {
	raster, err := p.deps.Rasterizer.Rasterize(ctx, path, pageNumber)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := raster.Close(); cerr != nil {
			p.logger.Warn("failed to remove page raster", zap.String("path", raster.Path), zap.Error(cerr))
		}
	}()
	res, err := p.deps.OCR.Recognize(ctx, raster.Path)
	if err != nil {
		return "", err
	}
	return ocr.Join(res), nil
}

// Package ocr recognizes text in page images through a pluggable recognition service.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hyperjump/folio/internal/config"
)

// ErrUnavailable is returned by services that cannot recognize text in this build or configuration.
var ErrUnavailable = errors.New("ocr service unavailable")

// Result holds the text fragments recognized in one image, with optional per-fragment scores.
type Result struct {
	Text   []string  `json:"text"`
	Scores []float64 `json:"textScore,omitempty"`
}

// Service recognizes text in an image file.
type Service interface {
	// Available reports whether Recognize can be called at all.
	Available() bool
	Recognize(ctx context.Context, imagePath string) (*Result, error)
}

// Join concatenates the recognized fragments with single spaces and trims the result.
func Join(r *Result) string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.Text))
	for _, t := range r.Text {
		if t = strings.TrimSpace(t); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// New builds the service selected by cfg.Provider ("http" or "tesseract").
// A disabled configuration yields a service whose Available reports false.
func New(cfg config.OCRConfig) (Service, error) {
	if !cfg.EnabledOrDefault() {
		return Disabled{}, nil
	}
	switch cfg.Provider {
	case "", "http":
		return NewHTTPClient(cfg.URL, cfg.Language, cfg.MinScore, cfg.Timeout), nil
	case "tesseract":
		return NewTesseractEngine(cfg.Language), nil
	default:
		return nil, fmt.Errorf("unknown ocr provider %q", cfg.Provider)
	}
}

// Disabled is a Service that never recognizes anything.
type Disabled struct{}

// Available always returns false.
func (Disabled) Available() bool { return false }

// Recognize always returns ErrUnavailable.
func (Disabled) Recognize(context.Context, string) (*Result, error) {
	return nil, ErrUnavailable
}

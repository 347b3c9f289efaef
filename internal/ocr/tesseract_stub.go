//go:build !tesseract

package ocr

import "context"

// TesseractEngine stub when built without the tesseract tag (see tesseract.go).
type TesseractEngine struct{}

// NewTesseractEngine returns an engine that is never available.
func NewTesseractEngine(_ string) *TesseractEngine {
	return &TesseractEngine{}
}

// Available returns false; build with -tags tesseract and libtesseract installed.
func (e *TesseractEngine) Available() bool { return false }

// Recognize returns ErrUnavailable.
func (e *TesseractEngine) Recognize(context.Context, string) (*Result, error) {
	return nil, ErrUnavailable
}

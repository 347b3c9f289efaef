//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine recognizes text locally with libtesseract.
type TesseractEngine struct {
	language string
}

// NewTesseractEngine returns an engine using language (e.g. "eng").
func NewTesseractEngine(language string) *TesseractEngine {
	return &TesseractEngine{language: language}
}

// Available always returns true when built with the tesseract tag.
func (e *TesseractEngine) Available() bool { return true }

// Recognize runs tesseract on the image and returns one fragment per recognized line.
func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := gosseract.NewClient()
	defer c.Close()
	if e.language != "" {
		if err := c.SetLanguage(e.language); err != nil {
			return nil, fmt.Errorf("set language: %w", err)
		}
	}
	if err := c.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}
	res := &Result{}
	for _, b := range boxes {
		line := strings.TrimSpace(b.Word)
		if line == "" {
			continue
		}
		res.Text = append(res.Text, line)
		res.Scores = append(res.Scores, b.Confidence/100.0)
	}
	return res, nil
}

// Package extract reads PDF metadata and drives the external tools that produce
// per-page text, page geometry, and page rasters.
package extract

import (
	"errors"
	"fmt"
)

// ErrToolFailed is returned when an external tool exits with a non-zero status.
var ErrToolFailed = errors.New("tool exited with non-zero status")

// toolFailure wraps ErrToolFailed with the tool name and exit code.
func toolFailure(name string, code int) error {
	return fmt.Errorf("%s exit code %d: %w", name, code, ErrToolFailed)
}

// pageRange returns the pdftotext/pdfinfo/pdftoppm arguments selecting pages first..last.
func pageRange(first, last int) []string {
	return []string{"-f", fmt.Sprint(first), "-l", fmt.Sprint(last)}
}

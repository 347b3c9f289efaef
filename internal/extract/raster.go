package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hyperjump/folio/internal/runner"
)

// ErrNoImage is returned when the rasterizer exits cleanly but writes no image.
var ErrNoImage = errors.New("rasterizer produced no image")

// Raster is a page image in its own temporary directory. Close removes the directory.
type Raster struct {
	Path string
	dir  string
}

// Close removes the raster's temporary directory.
func (r *Raster) Close() error {
	if r == nil || r.dir == "" {
		return nil
	}
	return os.RemoveAll(r.dir)
}

// Rasterizer renders single pages to PNG with pdftoppm.
type Rasterizer struct {
	runner  runner.Runner
	bin     string
	dpi     int
	tempDir string
}

// NewRasterizer returns a rasterizer invoking bin (usually "pdftoppm") at dpi.
// Temporary directories are created under tempDir, or the OS default when empty.
func NewRasterizer(r runner.Runner, bin string, dpi int, tempDir string) *Rasterizer {
	if bin == "" {
		bin = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 300
	}
	return &Rasterizer{runner: r, bin: bin, dpi: dpi, tempDir: tempDir}
}

// Rasterize renders one 1-indexed page into a fresh temporary directory.
// On error the directory is already removed; on success the caller must Close the raster.
func (z *Rasterizer) Rasterize(ctx context.Context, path string, page int) (_ *Raster, err error) {
	dir, err := os.MkdirTemp(z.tempDir, "folio-page-*")
	if err != nil {
		return nil, fmt.Errorf("create raster dir: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(dir)
		}
	}()

	prefix := filepath.Join(dir, "page")
	args := []string{"-png", "-r", strconv.Itoa(z.dpi)}
	args = append(args, pageRange(page, page)...)
	args = append(args, "-singlefile", path, prefix)
	code, err := z.runner.Run(ctx, z.bin, args, nil)
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, toolFailure(z.bin, code)
	}
	out := prefix + ".png"
	if _, statErr := os.Stat(out); statErr != nil {
		return nil, fmt.Errorf("page %d: %w", page, ErrNoImage)
	}
	return &Raster{Path: out, dir: dir}, nil
}

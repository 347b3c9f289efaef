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

// Preview kinds written by Previewer.
const (
	PreviewLarge = "preview"
	PreviewThumb = "thumbnail"
)

// Longest edge, in pixels, of each preview kind.
const (
	previewSize   = 1440
	thumbnailSize = 250
)

// Previewer renders page 1 of a PDF into a large JPEG preview and a small PNG thumbnail,
// stored as <dir>/<id>/preview.jpg and <dir>/<id>/thumbnail.png.
type Previewer struct {
	runner runner.Runner
	bin    string
	dir    string
}

// NewPreviewer returns a previewer invoking bin (usually "pdftoppm") and writing under dir.
func NewPreviewer(r runner.Runner, bin, dir string) *Previewer {
	if bin == "" {
		bin = "pdftoppm"
	}
	return &Previewer{runner: r, bin: bin, dir: dir}
}

// Path returns where the image of kind for id is stored, or "" for an unknown kind.
func (v *Previewer) Path(id, kind string) string {
	switch kind {
	case PreviewLarge:
		return filepath.Join(v.dir, id, "preview.jpg")
	case PreviewThumb:
		return filepath.Join(v.dir, id, "thumbnail.png")
	}
	return ""
}

// RenderPreviews writes both images for id. Each image is rendered next to its final
// path and renamed into place, so readers never see a partial file.
func (v *Previewer) RenderPreviews(ctx context.Context, path, id string) error {
	if err := os.MkdirAll(filepath.Join(v.dir, id), 0755); err != nil {
		return fmt.Errorf("create preview dir: %w", err)
	}
	if err := v.render(ctx, path, v.Path(id, PreviewLarge), previewSize,
		"-jpeg", "-jpegopt", "quality=80"); err != nil {
		return fmt.Errorf("%s: %w", PreviewLarge, err)
	}
	if err := v.render(ctx, path, v.Path(id, PreviewThumb), thumbnailSize, "-png"); err != nil {
		return fmt.Errorf("%s: %w", PreviewThumb, err)
	}
	return nil
}

func (v *Previewer) render(ctx context.Context, path, dst string, size int, format ...string) error {
	tmp, err := os.MkdirTemp(filepath.Dir(dst), ".render-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)

	prefix := filepath.Join(tmp, "page")
	args := append([]string{}, format...)
	args = append(args, "-scale-to", strconv.Itoa(size))
	args = append(args, pageRange(1, 1)...)
	args = append(args, "-singlefile", path, prefix)
	code, err := v.runner.Run(ctx, v.bin, args, nil)
	if err != nil {
		return err
	}
	if code != 0 {
		return toolFailure(v.bin, code)
	}
	out := prefix + filepath.Ext(dst)
	if _, err := os.Stat(out); err != nil {
		return ErrNoImage
	}
	return os.Rename(out, dst)
}

// RemovePreviews deletes the images of id. Missing images are not an error.
func (v *Previewer) RemovePreviews(id string) error {
	err := os.RemoveAll(filepath.Join(v.dir, id))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

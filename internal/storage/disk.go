package storage

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// FileSize returns the size of the regular file at path.
func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, &fs.PathError{Op: "stat", Path: path, Err: errors.New("not a regular file")}
	}
	return info.Size(), nil
}

// DiskUsageBytes sums the on-disk size of the database file, the keyword index directory,
// and any other paths given. Missing or empty paths count as zero.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		n, err := treeSize(p)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// treeSize is the size of a file, or of every regular file below a directory. SQLite's
// -wal and -shm siblings are counted with the database file.
func treeSize(root string) (int64, error) {
	var size int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		return nil
	})
	if err != nil {
		return 0, err
	}
	if info, statErr := os.Stat(root); statErr == nil && info.Mode().IsRegular() {
		for _, suffix := range []string{"-wal", "-shm"} {
			if n, err := FileSize(root + suffix); err == nil {
				size += n
			}
		}
	}
	return size, nil
}

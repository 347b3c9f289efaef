// Package assetid derives stable asset ids from file paths.
package assetid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"
)

const prefix = "asset:"

// FromPath returns the asset id for a file. Paths are made absolute and cleaned first,
// so every spelling of the same file yields the same id.
func FromPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return ForAbsolutePath(abs), nil
}

// ForAbsolutePath returns the asset id for an already absolute path.
func ForAbsolutePath(absolutePath string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(absolutePath)))
	return prefix + hex.EncodeToString(hash[:])
}

// IsAssetID reports whether id has the shape produced by this package.
func IsAssetID(id string) bool {
	hexPart, ok := strings.CutPrefix(id, prefix)
	if !ok || len(hexPart) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}

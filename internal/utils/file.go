package utils

import (
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates a directory if it doesn't exist
func EnsureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// GetFileExtension returns the file extension without the dot
func GetFileExtension(filename string) string {
	ext := filepath.Ext(filename)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}

// AbsPath resolves a path to absolute form, returning the input unchanged
// when resolution fails.
func AbsPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// ThumbnailName derives a stable cache filename for a source image path.
// The hash keeps distinct source paths from colliding in one flat dir.
func ThumbnailName(source string) string {
	sum := sha1.Sum([]byte(source))
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	return base + "_" + hex.EncodeToString(sum[:6]) + ".png"
}

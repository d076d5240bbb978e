package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetFileExtension(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"photo.JPG", "jpg"},
		{"clip.mp4", "mp4"},
		{"archive.tar.gz", "gz"},
		{"noext", ""},
		{"/tmp/dir.d/file.PNG", "png"},
	}
	for _, tc := range cases {
		if got := GetFileExtension(tc.in); got != tc.want {
			t.Errorf("GetFileExtension(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestEnsureDirAndFileExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	if err := EnsureDir(dir); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if FileExists(dir) {
		t.Error("FileExists must be false for directories")
	}

	file := filepath.Join(dir, "x.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if !FileExists(file) {
		t.Error("FileExists must be true for regular files")
	}
}

func TestThumbnailName(t *testing.T) {
	a := ThumbnailName("/a/b/face.jpg")
	b := ThumbnailName("/a/c/face.jpg")

	if a == b {
		t.Error("same basename from different dirs must not collide")
	}
	if !strings.HasPrefix(a, "face_") || !strings.HasSuffix(a, ".png") {
		t.Errorf("unexpected thumbnail name: %s", a)
	}
}

package utils

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	kerrors "github.com/PolarWolf314/lockbox/internal/errors"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(name), 0600); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
}

func TestResolveFiles(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"hello.txt",
		"docs/a.pdf",
		"docs/deep/b.pdf",
		"docs/deep/c.txt",
		"docs/.git/config",
	)

	tests := []struct {
		name     string
		patterns []string
		want     int
	}{
		{"literal file", []string{"hello.txt"}, 1},
		{"directory skips hidden", []string{"docs"}, 3},
		{"doublestar glob", []string{"**/*.pdf"}, 2},
		{"deduplicated", []string{"hello.txt", "*.txt", "hello.txt"}, 1},
		{"absolute path", []string{filepath.Join(root, "docs", "a.pdf")}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := ResolveFiles(tt.patterns, root)
			if err != nil {
				t.Fatalf("ResolveFiles failed: %v", err)
			}
			if len(files) != tt.want {
				t.Errorf("Expected %d files, got %d: %v", tt.want, len(files), files)
			}
		})
	}
}

func TestResolveFiles_Errors(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "a.txt")

	if _, err := ResolveFiles([]string{"missing.txt"}, root); err == nil {
		t.Error("Expected error for missing file")
	}
	if _, err := ResolveFiles([]string{"*.pdf"}, root); !errors.Is(err, kerrors.ErrNoFilesFound) {
		t.Errorf("Expected ErrNoFilesFound, got %v", err)
	}
	if _, err := ResolveFiles(nil, root); !errors.Is(err, kerrors.ErrNoFilesFound) {
		t.Errorf("Expected ErrNoFilesFound for no patterns, got %v", err)
	}
}

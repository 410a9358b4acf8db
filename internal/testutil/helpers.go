package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/npratt/prfkit/internal/block"
)

// WriteFile writes content to a file in the given directory.
// It creates parent directories as needed and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// ReadFile reads a file and returns its contents.
// It fails the test if the file cannot be read.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

// FileExists checks if a file exists.
func FileExists(t *testing.T, path string) bool {
	t.Helper()
	_, err := os.Stat(path)
	return err == nil
}

// InputCounts returns the input count of every block in pre-order, keyed by
// position so two trees of the same shape can be compared.
func InputCounts(root *block.Block) []int {
	var counts []int
	block.Walk(root, func(b *block.Block) bool {
		counts = append(counts, b.InputCount)
		return true
	})
	return counts
}

// AssertEqualInts fails the test if got and want differ.
func AssertEqualInts(t *testing.T, got, want []int) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v (first difference at %d)", got, want, i)
		}
	}
}

// Package testutil provides test fixtures and helpers shared by
// holyfields package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteSchemaTree writes the given relative-path -> content map into a
// fresh temp directory and returns its path. Cleanup is handled by
// t.TempDir.
func WriteSchemaTree(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for rel, content := range files {
		dst := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			t.Fatalf("failed to create schema directory: %v", err)
		}
		if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
	return dir
}

// WriteVersionsFile writes a component versions manifest into dir and
// returns its path.
func WriteVersionsFile(t *testing.T, dir, content string) string {
	t.Helper()

	dst := filepath.Join(dir, "versions.yaml")
	if err := os.WriteFile(dst, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write versions.yaml: %v", err)
	}
	return dst
}

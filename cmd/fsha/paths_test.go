package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveExtractOut(t *testing.T) {
	t.Run("explicit output wins", func(t *testing.T) {
		outDir := filepath.Join(t.TempDir(), "nested", "out")

		got, defaulted, err := resolveExtractOut("scene.bfsha", outDir)
		if err != nil {
			t.Fatalf("resolveExtractOut returned error: %v", err)
		}
		if defaulted {
			t.Fatalf("expected explicit output to not be defaulted")
		}
		if got != filepath.Clean(outDir) {
			t.Fatalf("unexpected output dir: got %q want %q", got, filepath.Clean(outDir))
		}
		if _, err := os.Stat(got); err != nil {
			t.Fatalf("expected output directory to exist: %v", err)
		}
	})

	t.Run("env output dir overrides default", func(t *testing.T) {
		envDir := filepath.Join(t.TempDir(), "extract")
		t.Setenv(envExtractDir, envDir)

		got, defaulted, err := resolveExtractOut(filepath.Join("shaders", "water.bfsha"), "")
		if err != nil {
			t.Fatalf("resolveExtractOut returned error: %v", err)
		}
		if !defaulted {
			t.Fatalf("expected output to be defaulted")
		}
		if want := filepath.Join(envDir, "water"); got != want {
			t.Fatalf("unexpected output dir: got %q want %q", got, want)
		}
	})

	t.Run("empty archive path is rejected", func(t *testing.T) {
		t.Setenv(envExtractDir, t.TempDir())
		if _, _, err := resolveExtractOut("/", ""); err == nil {
			t.Fatalf("expected error for root path")
		}
	})
}

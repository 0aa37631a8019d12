package archive

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/samcharles93/fsha/internal/fshatest"
	"github.com/samcharles93/fsha/internal/logger"
	"github.com/samcharles93/fsha/pkg/fsha"
)

func TestOpenMapsAndDecodes(t *testing.T) {
	t.Parallel()

	data := fshatest.Bytes(t, fsha.PlatformNX)
	path := filepath.Join(t.TempDir(), "scene.bfsha")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var logs bytes.Buffer
	a, err := Open(path, Options{Logger: logger.JSON(&logs, slog.LevelDebug)})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if a.ID == "" || a.Name != "scene.bfsha" || a.Path != path || a.Size != int64(len(data)) {
		t.Fatalf("archive = %+v", a)
	}
	if !bytes.Equal(a.Bytes(), data) {
		t.Fatalf("archive bytes differ from file")
	}
	m, ok := a.Container.Model(fshatest.ModelName)
	if !ok {
		t.Fatalf("model %q missing", fshatest.ModelName)
	}
	if v, err := m.ProgramVariation(1); err != nil || v.Source == nil {
		t.Fatalf("variation = %+v, %v", v, err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if a.Bytes() != nil {
		t.Fatalf("bytes retained after Close")
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	// The embedded container was copied out of the mapping.
	if _, err := m.Embedded(); err != nil {
		t.Fatalf("Embedded after Close: %v", err)
	}
	if !strings.Contains(logs.String(), "opened shader archive") {
		t.Fatalf("expected open log line, got: %s", logs.String())
	}
}

func TestOpenBytes(t *testing.T) {
	t.Parallel()

	a, err := OpenBytes("upload", fshatest.Bytes(t, fsha.PlatformCafe), Options{})
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	defer a.Close()
	if a.Mapped() {
		t.Fatalf("in-memory archive reported as mapped")
	}
	if a.Container.Platform != fsha.PlatformCafe {
		t.Fatalf("platform = %s", a.Container.Platform)
	}
}

func TestOpenBytesUsesArchiveNameWhenUnnamed(t *testing.T) {
	t.Parallel()

	a, err := OpenBytes("", fshatest.Bytes(t, fsha.PlatformNX), Options{TextEncoding: "utf-8"})
	if err != nil {
		t.Fatalf("OpenBytes: %v", err)
	}
	if a.Name != fshatest.ModelName {
		t.Fatalf("name = %q", a.Name)
	}
}

func TestOpenRejectsEmptyAndForeignFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.bfsha")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(empty, Options{}); !errors.Is(err, ErrEmpty) {
		t.Fatalf("err = %v; want ErrEmpty", err)
	}

	foreign := filepath.Join(dir, "foreign.bin")
	if err := os.WriteFile(foreign, []byte("Yaz0 not a shader archive"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(foreign, Options{}); !errors.Is(err, fsha.ErrSignature) {
		t.Fatalf("err = %v; want ErrSignature", err)
	}

	if _, err := Open(filepath.Join(dir, "missing.bfsha"), Options{}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v; want ErrNotExist", err)
	}
}

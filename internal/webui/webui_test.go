package webui

import (
	"io/fs"
	"strings"
	"testing"
)

func TestStaticServesIndex(t *testing.T) {
	t.Parallel()

	data, err := fs.ReadFile(Static(), "index.html")
	if err != nil {
		t.Fatalf("read index.html: %v", err)
	}
	if !strings.Contains(string(data), "/v1/archives") {
		t.Fatalf("index.html does not call the archive API")
	}
}

package api

import (
	"errors"
	"testing"
	"time"

	"github.com/samcharles93/fsha/internal/archive"
	"github.com/samcharles93/fsha/internal/fshatest"
	"github.com/samcharles93/fsha/pkg/fsha"
)

func TestArchiveStoreListsOldestFirst(t *testing.T) {
	t.Parallel()

	store := NewArchiveStore()
	var ids []string
	for i, platform := range []fsha.Platform{fsha.PlatformNX, fsha.PlatformCafe} {
		a, err := archive.OpenBytes("", fshatest.Bytes(t, platform), archive.Options{})
		if err != nil {
			t.Fatalf("OpenBytes: %v", err)
		}
		a.LoadedAt = time.Unix(int64(100-i), 0)
		store.Add(a)
		ids = append(ids, a.ID)
	}

	list := store.List()
	if len(list) != 2 || list[0].ID != ids[1] || list[1].ID != ids[0] {
		t.Fatalf("unexpected order")
	}
	if _, err := store.Get("missing"); !errors.Is(err, ErrArchiveNotFound) {
		t.Fatalf("err = %v; want ErrArchiveNotFound", err)
	}
	if err := store.Delete("missing"); !errors.Is(err, ErrArchiveNotFound) {
		t.Fatalf("err = %v; want ErrArchiveNotFound", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(store.List()) != 0 {
		t.Fatalf("store not empty after Close")
	}
}

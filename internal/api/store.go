package api

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/samcharles93/fsha/internal/archive"
)

// ArchiveStore holds the archives the browser serves, keyed by archive id.
type ArchiveStore struct {
	mu       sync.Mutex
	archives map[string]*archive.Archive
}

func NewArchiveStore() *ArchiveStore {
	return &ArchiveStore{
		archives: make(map[string]*archive.Archive),
	}
}

func (s *ArchiveStore) Add(a *archive.Archive) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives[a.ID] = a
}

func (s *ArchiveStore) Get(id string) (*archive.Archive, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.archives[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, id)
	}
	return a, nil
}

// List returns the archives oldest first.
func (s *ArchiveStore) List() []*archive.Archive {
	s.mu.Lock()
	out := make([]*archive.Archive, 0, len(s.archives))
	for _, a := range s.archives {
		out = append(out, a)
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b *archive.Archive) int {
		if c := a.LoadedAt.Compare(b.LoadedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

// Delete removes and closes an archive.
func (s *ArchiveStore) Delete(id string) error {
	s.mu.Lock()
	a, ok := s.archives[id]
	delete(s.archives, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrArchiveNotFound, id)
	}
	return a.Close()
}

// Close closes every archive and empties the store.
func (s *ArchiveStore) Close() error {
	s.mu.Lock()
	archives := s.archives
	s.archives = make(map[string]*archive.Archive)
	s.mu.Unlock()

	var errs []error
	for _, a := range archives {
		errs = append(errs, a.Close())
	}
	return errors.Join(errs...)
}

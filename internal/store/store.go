package store

import (
	"errors"
	"fmt"
	"sync"

	"neurovol-viewer/internal/nifti"
)

// ErrUnknownVolume reports a name the index has no file for.
var ErrUnknownVolume = errors.New("unknown volume")

// Resolver resolves a volume name to a decoded volume.
type Resolver interface {
	Resolve(name string) (*nifti.Volume, error)
}

// Store is a concurrency-safe cache of decoded volumes.
type Store struct {
	mu    sync.RWMutex
	items map[string]*storeEntry
	index *Index
}

type storeEntry struct {
	vol *nifti.Volume
	err error // sticky decode failure; nil when vol is set
}

// NewStore creates a volume store backed by the given index.
func NewStore(index *Index) *Store {
	return &Store{
		items: make(map[string]*storeEntry),
		index: index,
	}
}

// Names lists the volumes the store can resolve.
func (s *Store) Names() []string {
	return s.index.Names()
}

// Resolve parses and caches a volume by name. Decode failures are cached
// too: a corrupt file fails once, not once per request.
func (s *Store) Resolve(name string) (*nifti.Volume, error) {
	path, ok := s.index.ResolvePath(name)
	if !ok {
		return nil, fmt.Errorf("store: %w %q", ErrUnknownVolume, name)
	}

	// Fast path: read lock
	s.mu.RLock()
	if entry, exists := s.items[path]; exists {
		s.mu.RUnlock()
		return entry.vol, entry.err
	}
	s.mu.RUnlock()

	// Slow path: parse from disk
	vol, err := nifti.ParseFile(path)

	// Write lock with double-check
	s.mu.Lock()
	if entry, exists := s.items[path]; exists {
		s.mu.Unlock()
		return entry.vol, entry.err
	}
	s.items[path] = &storeEntry{vol: vol, err: err}
	s.mu.Unlock()

	return vol, err
}

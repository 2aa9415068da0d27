package pending

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	sel       Selection
	expiresAt time.Time // zero means no expiry
}

// MemoryStore keeps selections in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore creates an in-memory store. A zero ttl disables expiry.
func NewMemoryStore(ttl ...time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	if len(ttl) > 0 && ttl[0] > 0 {
		s.ttl = ttl[0]
	}
	return s
}

func (s *MemoryStore) Save(ctx context.Context, key string, sel Selection) error {
	if key == "" {
		return ErrMissingKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := memoryEntry{sel: sel}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[key] = entry
	return nil
}

func (s *MemoryStore) Load(ctx context.Context, key string) (Selection, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(key)
}

func (s *MemoryStore) Take(ctx context.Context, key string) (Selection, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sel, ok, err := s.lookup(key)
	delete(s.entries, key)
	return sel, ok, err
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// lookup must be called with the lock held.
func (s *MemoryStore) lookup(key string) (Selection, bool, error) {
	entry, ok := s.entries[key]
	if !ok {
		return Selection{}, false, nil
	}
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		delete(s.entries, key)
		return Selection{}, false, nil
	}
	return entry.sel, true, nil
}

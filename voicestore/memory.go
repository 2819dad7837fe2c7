package voicestore

import (
	"context"
	"sync"
	"time"

	"github.com/helioscale/voicekit/speech"
)

// catalogEntry is one cached catalog with its expiry.
type catalogEntry struct {
	voices    []speech.Voice
	expiresAt time.Time
}

// MemoryStore is a thread-safe in-memory Store. It is the default when no
// Redis address is configured and is suitable for single-instance
// deployments and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	catalogs map[string]catalogEntry           // provider + "\x00" + language
	clones   map[string][]speech.ClonedVoice   // provider
	ttl      time.Duration
	now      func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryTTL sets the catalog time-to-live. Default is DefaultTTL.
func WithMemoryTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

// NewMemoryStore creates an in-memory voice store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		catalogs: make(map[string]catalogEntry),
		clones:   make(map[string][]speech.ClonedVoice),
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func catalogKey(providerName, language string) string {
	return providerName + "\x00" + language
}

// GetCatalog returns a copy of the cached catalog, or ErrNotFound on a miss
// or after expiry.
func (s *MemoryStore) GetCatalog(_ context.Context, providerName, language string) ([]speech.Voice, error) {
	if providerName == "" {
		return nil, ErrInvalidProvider
	}

	s.mu.RLock()
	entry, ok := s.catalogs[catalogKey(providerName, language)]
	s.mu.RUnlock()

	if !ok || s.now().After(entry.expiresAt) {
		return nil, ErrNotFound
	}

	// Copy so callers cannot mutate the cache.
	voices := make([]speech.Voice, len(entry.voices))
	copy(voices, entry.voices)
	return voices, nil
}

// PutCatalog caches a catalog copy under the provider and language filter.
func (s *MemoryStore) PutCatalog(_ context.Context, providerName, language string, voices []speech.Voice) error {
	if providerName == "" {
		return ErrInvalidProvider
	}

	stored := make([]speech.Voice, len(voices))
	copy(stored, voices)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalogs[catalogKey(providerName, language)] = catalogEntry{
		voices:    stored,
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

// Invalidate drops every cached catalog for the provider.
func (s *MemoryStore) Invalidate(_ context.Context, providerName string) error {
	if providerName == "" {
		return ErrInvalidProvider
	}

	prefix := providerName + "\x00"

	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.catalogs {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(s.catalogs, key)
		}
	}
	return nil
}

// RecordClone appends a cloned voice to the provider's history.
func (s *MemoryStore) RecordClone(_ context.Context, providerName string, cloned speech.ClonedVoice) error {
	if providerName == "" {
		return ErrInvalidProvider
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.clones[providerName] = append(s.clones[providerName], cloned)
	return nil
}

// Clones returns a copy of the provider's clone history, oldest first.
func (s *MemoryStore) Clones(_ context.Context, providerName string) ([]speech.ClonedVoice, error) {
	if providerName == "" {
		return nil, ErrInvalidProvider
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	history := make([]speech.ClonedVoice, len(s.clones[providerName]))
	copy(history, s.clones[providerName])
	return history, nil
}

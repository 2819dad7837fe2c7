// Package voicestore caches provider voice catalogs and records cloned
// voices. Catalog listings are slow upstream calls with slowly changing
// results, so the voice client consults this cache before asking a provider.
package voicestore

import (
	"context"
	"errors"
	"time"

	"github.com/helioscale/voicekit/speech"
)

// DefaultTTL is how long a cached catalog is served before the provider is
// asked again.
const DefaultTTL = 15 * time.Minute

// Store caches voice catalogs per provider and language, and keeps a record
// of voices cloned through this process.
type Store interface {
	// GetCatalog returns the cached catalog for a provider and language
	// filter. Returns ErrNotFound on a miss or after expiry.
	GetCatalog(ctx context.Context, providerName, language string) ([]speech.Voice, error)

	// PutCatalog caches a catalog for a provider and language filter.
	PutCatalog(ctx context.Context, providerName, language string, voices []speech.Voice) error

	// Invalidate drops every cached catalog for a provider. Called after
	// cloning, which changes the provider's catalog.
	Invalidate(ctx context.Context, providerName string) error

	// RecordClone appends a cloned voice to the provider's clone history.
	RecordClone(ctx context.Context, providerName string, cloned speech.ClonedVoice) error

	// Clones returns the provider's clone history, oldest first.
	Clones(ctx context.Context, providerName string) ([]speech.ClonedVoice, error)
}

// Store errors.
var (
	// ErrNotFound is returned on a catalog cache miss.
	ErrNotFound = errors.New("catalog not cached")

	// ErrInvalidProvider is returned when the provider name is empty.
	ErrInvalidProvider = errors.New("provider name cannot be empty")
)

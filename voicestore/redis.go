package voicestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/helioscale/voicekit/speech"
)

// RedisStore is a Redis-backed Store for deployments running more than one
// instance, so every instance shares one catalog cache and clone history.
// Catalogs are JSON values with a TTL; clone history is an append-only list
// with no expiry.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithTTL sets the catalog time-to-live. Default is DefaultTTL.
func WithTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix. Default is "voicekit".
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore creates a Redis-backed voice store.
//
// Example:
//
//	store := voicestore.NewRedisStore(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    voicestore.WithTTL(30 * time.Minute),
//	)
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		ttl:    DefaultTTL,
		prefix: "voicekit",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) languageField(language string) string {
	if language == "" {
		return "all"
	}
	return language
}

func (s *RedisStore) catalogRedisKey(providerName, language string) string {
	return fmt.Sprintf("%s:catalog:%s:%s", s.prefix, providerName, s.languageField(language))
}

func (s *RedisStore) clonesRedisKey(providerName string) string {
	return fmt.Sprintf("%s:clones:%s", s.prefix, providerName)
}

// GetCatalog returns the cached catalog, or ErrNotFound when the key is
// missing or expired.
func (s *RedisStore) GetCatalog(ctx context.Context, providerName, language string) ([]speech.Voice, error) {
	if providerName == "" {
		return nil, ErrInvalidProvider
	}

	data, err := s.client.Get(ctx, s.catalogRedisKey(providerName, language)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var voices []speech.Voice
	if err := json.Unmarshal(data, &voices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal catalog: %w", err)
	}
	return voices, nil
}

// PutCatalog caches a catalog with the configured TTL.
func (s *RedisStore) PutCatalog(ctx context.Context, providerName, language string, voices []speech.Voice) error {
	if providerName == "" {
		return ErrInvalidProvider
	}

	data, err := json.Marshal(voices)
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := s.client.Set(ctx, s.catalogRedisKey(providerName, language), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// Invalidate drops every cached catalog for the provider.
func (s *RedisStore) Invalidate(ctx context.Context, providerName string) error {
	if providerName == "" {
		return ErrInvalidProvider
	}

	pattern := fmt.Sprintf("%s:catalog:%s:*", s.prefix, providerName)

	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del failed: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// RecordClone appends a cloned voice to the provider's history list.
func (s *RedisStore) RecordClone(ctx context.Context, providerName string, cloned speech.ClonedVoice) error {
	if providerName == "" {
		return ErrInvalidProvider
	}

	data, err := json.Marshal(cloned)
	if err != nil {
		return fmt.Errorf("failed to marshal cloned voice: %w", err)
	}

	if err := s.client.RPush(ctx, s.clonesRedisKey(providerName), data).Err(); err != nil {
		return fmt.Errorf("redis rpush failed: %w", err)
	}
	return nil
}

// Clones returns the provider's clone history, oldest first.
func (s *RedisStore) Clones(ctx context.Context, providerName string) ([]speech.ClonedVoice, error) {
	if providerName == "" {
		return nil, ErrInvalidProvider
	}

	entries, err := s.client.LRange(ctx, s.clonesRedisKey(providerName), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange failed: %w", err)
	}

	clones := make([]speech.ClonedVoice, 0, len(entries))
	for _, entry := range entries {
		var cloned speech.ClonedVoice
		if err := json.Unmarshal([]byte(entry), &cloned); err != nil {
			return nil, fmt.Errorf("failed to unmarshal cloned voice: %w", err)
		}
		clones = append(clones, cloned)
	}
	return clones, nil
}

// Ping verifies the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

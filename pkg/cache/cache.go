// Package cache provides a namespaced, TTL-based cache shared by the
// retrieval, agent, and summary subsystems, backed by Redis with an
// in-process fallback so a Redis outage degrades latency rather than
// availability.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/hoferino/dealintel/pkg/shared/errors"
)

// Namespace prefixes every key, keeping tool-result, retrieval, and summary
// caches from colliding and letting each carry its own TTL policy.
type Namespace string

const (
	NamespaceTool           Namespace = "cache:tool:"
	NamespaceRetrieval      Namespace = "cache:retrieval:"
	NamespaceSummary        Namespace = "cache:summary:"
	NamespaceClassification Namespace = "cache:classify:"
)

// Cache is the interface pkg/retrieval and pkg/agent depend on. Get returns
// (false, nil) on a clean miss and a non-nil error only when the cache
// itself failed in a way the caller should know about (neither case should
// abort the caller's fallback-to-source path).
type Cache interface {
	Get(ctx context.Context, ns Namespace, key string, dest any) (bool, error)
	Set(ctx context.Context, ns Namespace, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, ns Namespace, key string) error
}

// RedisCache is the production Cache backed by go-redis, falling back to an
// in-process map when Redis is unreachable so a cache outage degrades to
// cache-miss behavior instead of request failure.
type RedisCache struct {
	client   *redis.Client
	fallback *memoryCache
}

// New builds a RedisCache from a connection address.
func New(addr, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisCache{client: client, fallback: newMemoryCache()}
}

// NewFromClient wraps an existing *redis.Client, used by tests against
// miniredis.
func NewFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, fallback: newMemoryCache()}
}

// Ping verifies connectivity at startup, matching pkg/database's pattern of
// failing fast rather than discovering a broken dependency on first use.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Get(ctx context.Context, ns Namespace, key string, dest any) (bool, error) {
	fullKey := string(ns) + key
	raw, err := c.client.Get(ctx, fullKey).Bytes()
	if err == nil {
		return true, json.Unmarshal(raw, dest)
	}
	if err != redis.Nil {
		// Redis is unavailable; fall back rather than fail the caller.
		return c.fallback.get(fullKey, dest)
	}
	return false, nil
}

func (c *RedisCache) Set(ctx context.Context, ns Namespace, key string, value any, ttl time.Duration) error {
	fullKey := string(ns) + key
	raw, err := json.Marshal(value)
	if err != nil {
		return apperrors.Wrap(apperrors.Internal, "cache", err)
	}
	if err := c.client.Set(ctx, fullKey, raw, ttl).Err(); err != nil {
		c.fallback.set(fullKey, raw, ttl)
		return nil
	}
	return nil
}

func (c *RedisCache) Delete(ctx context.Context, ns Namespace, key string) error {
	fullKey := string(ns) + key
	c.fallback.delete(fullKey)
	if err := c.client.Del(ctx, fullKey).Err(); err != nil {
		return apperrors.Wrap(apperrors.TransientIO, "cache", err)
	}
	return nil
}

// memoryCache is a minimal expiring map used only when Redis is down.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]memoryEntry)}
}

func (m *memoryCache) get(key string, dest any) (bool, error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	m.mu.Unlock()
	if !ok || time.Now().After(entry.expires) {
		return false, nil
	}
	return true, json.Unmarshal(entry.data, dest)
}

func (m *memoryCache) set(key string, data []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memoryEntry{data: data, expires: time.Now().Add(ttl)}
}

func (m *memoryCache) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// RetrievalKey builds the deterministic cache key for a hybrid-search query
// within a deal, so identical questions asked twice within the retrieval
// TTL window skip the embedding + rerank round trip.
func RetrievalKey(dealID, query string) string {
	return fmt.Sprintf("%s:%x", dealID, hashQuery(query))
}

func hashQuery(query string) uint64 {
	var h uint64 = 14695981039346656037
	for _, b := range []byte(query) {
		h ^= uint64(b)
		h *= 1099511628211
	}
	return h
}

// MessageHashKey builds the cache key the agent's intent/complexity
// classifier and message-history summarizer key off of: a hash of the text
// being classified or summarized, independent of any tenant scope, since
// the same sentence classifies and summarizes identically across deals.
func MessageHashKey(text string) string {
	return fmt.Sprintf("%x", hashQuery(text))
}

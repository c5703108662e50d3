package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"vocalize/internal/apierr"
	"vocalize/internal/kvstore"
	"vocalize/internal/logging"
)

// DefaultWindow is how long an entry stays fresh.
const DefaultWindow = 24 * time.Hour

// Entry is a cached collection and the time it was stored.
type Entry[T any] struct {
	Data      []T   `json:"data"`
	Timestamp int64 `json:"timestamp"`
}

// NewEntry stamps data with now.
func NewEntry[T any](data []T, now time.Time) Entry[T] {
	if data == nil {
		data = []T{}
	}
	return Entry[T]{Data: data, Timestamp: now.UnixMilli()}
}

// StoredAt returns the entry timestamp as a time.
func (e Entry[T]) StoredAt() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// IsFresh reports whether the entry is at most window old at now.
func (e Entry[T]) IsFresh(now time.Time, window time.Duration) bool {
	return now.UnixMilli()-e.Timestamp <= window.Milliseconds()
}

// Identifiable is implemented by cached records that carry an id.
type Identifiable interface {
	CacheID() string
}

// Option customises a Cache.
type Option func(*Cache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithWindow overrides the freshness window. Non-positive values are ignored.
func WithWindow(window time.Duration) Option {
	return func(c *Cache) {
		if window > 0 {
			c.window = window
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// Cache reads and writes entries in a key-value store.
type Cache struct {
	store  kvstore.Store
	now    func() time.Time
	window time.Duration
	logger *slog.Logger
}

// New returns a Cache over store.
func New(store kvstore.Store, opts ...Option) *Cache {
	c := &Cache{store: store, now: time.Now, window: DefaultWindow}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "cache")
	return c
}

// Now returns the cache clock's current time.
func (c *Cache) Now() time.Time { return c.now() }

// Window returns the freshness window.
func (c *Cache) Window() time.Duration { return c.window }

// Store returns the underlying key-value store.
func (c *Cache) Store() kvstore.Store { return c.store }

// Logger returns the cache component logger.
func (c *Cache) Logger() *slog.Logger { return c.logger }

// Read loads the entry stored under key. A missing or unreadable entry is
// reported as ok=false; err is set only when the store itself fails.
func Read[T any](ctx context.Context, c *Cache, key string) (Entry[T], bool, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return Entry[T]{}, false, fmt.Errorf("read cache %s: %w", key, err)
	}
	if !ok || raw == "" {
		return Entry[T]{}, false, nil
	}
	var entry Entry[T]
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		corrupt := apierr.Wrap(apierr.KindStorageCorruption, "cached data is unreadable", err)
		logging.WarnWithContext(c.logger, "ignoring unreadable cache entry", "cache_corrupt",
			logging.String(logging.FieldCacheKey, key),
			logging.String(logging.FieldErrorKind, string(corrupt.Kind)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "entry will be replaced by the next successful fetch"),
			logging.String(logging.FieldImpact, "cached data unavailable offline until refreshed"),
		)
		return Entry[T]{}, false, nil
	}
	if entry.Data == nil {
		entry.Data = []T{}
	}
	return entry, true, nil
}

// Write stores data under key stamped with the cache clock.
func Write[T any](ctx context.Context, c *Cache, key string, data []T) error {
	return put(ctx, c, key, NewEntry(data, c.now()))
}

func put[T any](ctx context.Context, c *Cache, key string, entry Entry[T]) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache %s: %w", key, err)
	}
	if err := c.store.Set(ctx, key, string(payload)); err != nil {
		return fmt.Errorf("write cache %s: %w", key, err)
	}
	return nil
}

// Patch rewrites an existing entry with fn and restamps it. Missing entries
// are left alone and reported with false.
func Patch[T any](ctx context.Context, c *Cache, key string, fn func([]T) []T) (bool, error) {
	entry, ok, err := Read[T](ctx, c, key)
	if err != nil || !ok {
		return false, err
	}
	if err := Write(ctx, c, key, fn(entry.Data)); err != nil {
		return false, err
	}
	return true, nil
}

// Append upserts item into the entry under key, creating the entry when it
// does not exist. Appending the same id twice keeps a single record.
func Append[T Identifiable](ctx context.Context, c *Cache, key string, item T) error {
	entry, _, err := Read[T](ctx, c, key)
	if err != nil {
		return err
	}
	return Write(ctx, c, key, Upsert(item)(entry.Data))
}

// Upsert returns a patch that replaces the record with item's id or appends
// item when absent.
func Upsert[T Identifiable](item T) func([]T) []T {
	return func(data []T) []T {
		id := item.CacheID()
		out := make([]T, 0, len(data)+1)
		replaced := false
		for _, existing := range data {
			if existing.CacheID() == id {
				if !replaced {
					out = append(out, item)
					replaced = true
				}
				continue
			}
			out = append(out, existing)
		}
		if !replaced {
			out = append(out, item)
		}
		return out
	}
}

// ReplaceByID returns a patch that applies merge to the record with id.
func ReplaceByID[T Identifiable](id string, merge func(T) T) func([]T) []T {
	return func(data []T) []T {
		out := make([]T, len(data))
		for i, existing := range data {
			if existing.CacheID() == id {
				existing = merge(existing)
			}
			out[i] = existing
		}
		return out
	}
}

// RemoveByID returns a patch that drops every record with id.
func RemoveByID[T Identifiable](id string) func([]T) []T {
	return func(data []T) []T {
		out := make([]T, 0, len(data))
		for _, existing := range data {
			if existing.CacheID() != id {
				out = append(out, existing)
			}
		}
		return out
	}
}

// Find returns the first record with id.
func Find[T Identifiable](data []T, id string) (T, bool) {
	for _, item := range data {
		if item.CacheID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"vocalize/internal/apierr"
	"vocalize/internal/connectivity"
	"vocalize/internal/logging"
)

// ErrNoData is the message used when neither the network nor the cache can
// answer.
const ErrNoData = "no connection and no cached data"

// Fetcher applies the offline-aware fetch policy to one record type.
//
// When online and the entry is missing, stale, or a refresh is forced, the
// remote loader runs and its result replaces the entry. Otherwise the cached
// data is returned. If the remote load fails, cached data (even stale) is
// returned instead. Concurrent loads of the same key share one remote call.
type Fetcher[T any] struct {
	cache   *Cache
	checker connectivity.Checker
	group   singleflight.Group
	logger  *slog.Logger
}

// NewFetcher returns a Fetcher. name tags log lines.
func NewFetcher[T any](c *Cache, checker connectivity.Checker, name string) *Fetcher[T] {
	return &Fetcher[T]{
		cache:   c,
		checker: checker,
		logger:  c.Logger().With(logging.String("fetcher", name)),
	}
}

// Cache returns the backing cache.
func (f *Fetcher[T]) Cache() *Cache { return f.cache }

// Online reports the connectivity checker's answer.
func (f *Fetcher[T]) Online(ctx context.Context) bool {
	return f.checker != nil && f.checker.Online(ctx)
}

// Load returns the collection under key following the fetch policy.
func (f *Fetcher[T]) Load(ctx context.Context, key string, force bool, remote func(context.Context) ([]T, error)) ([]T, error) {
	entry, cached, err := Read[T](ctx, f.cache, key)
	if err != nil {
		logging.WarnWithContext(f.logger, "cache read failed", "cache_read_failed",
			logging.String(logging.FieldCacheKey, key),
			logging.Error(err),
		)
		cached = false
	}

	online := f.Online(ctx)
	fresh := cached && entry.IsFresh(f.cache.Now(), f.cache.Window())

	if online && (!cached || !fresh || force) {
		data, fetchErr := f.fetch(ctx, key, remote)
		if fetchErr == nil {
			return data, nil
		}
		// The entry may have been written by a concurrent caller.
		if entry, ok, _ := Read[T](ctx, f.cache, key); ok {
			logging.WarnWithContext(f.logger, "remote fetch failed; serving cached data", "cache_fallback",
				logging.String(logging.FieldCacheKey, key),
				logging.String(logging.FieldErrorKind, string(apierr.KindOf(fetchErr))),
				logging.Error(fetchErr),
				logging.String(logging.FieldImpact, "data may be out of date"),
			)
			return entry.Data, nil
		}
		return nil, fetchErr
	}

	if cached {
		f.logger.Debug("serving cached data",
			logging.String(logging.FieldCacheKey, key),
			logging.Bool("online", online),
			logging.Bool("fresh", fresh),
		)
		return entry.Data, nil
	}
	return nil, apierr.New(apierr.KindNetworkUnavailable, ErrNoData)
}

// fetch shares one remote load per key. The load runs detached from the
// caller's cancellation so callers that joined it are not failed when the
// first one leaves; each caller still stops waiting when its own ctx ends.
func (f *Fetcher[T]) fetch(ctx context.Context, key string, remote func(context.Context) ([]T, error)) ([]T, error) {
	shared := context.WithoutCancel(ctx)
	results := f.group.DoChan(key, func() (any, error) {
		data, err := remote(shared)
		if err != nil {
			return nil, err
		}
		if data == nil {
			data = []T{}
		}
		if err := Write(shared, f.cache, key, data); err != nil {
			logging.WarnWithContext(f.logger, "cache write failed", "cache_write_failed",
				logging.String(logging.FieldCacheKey, key),
				logging.Error(err),
				logging.String(logging.FieldImpact, "data will not be available offline"),
			)
		}
		return data, nil
	})

	var res singleflight.Result
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, apierr.Wrap(apierr.KindNetworkUnavailable, "request cancelled", ctx.Err())
	}
	if res.Err != nil {
		if apierr.KindOf(res.Err) == "" && (errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded)) {
			return nil, apierr.Wrap(apierr.KindNetworkUnavailable, "request cancelled", res.Err)
		}
		return nil, res.Err
	}
	data, ok := res.Val.([]T)
	if !ok {
		return nil, fmt.Errorf("fetch %s: unexpected result type %T", key, res.Val)
	}
	return data, nil
}

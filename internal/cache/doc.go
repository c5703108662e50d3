// Package cache keeps time-stamped collections in the key-value store and
// implements the offline-aware fetch policy shared by every list endpoint.
//
// An Entry wraps a collection with the epoch-millisecond time it was stored.
// Entries stay fresh for the configured window (24 hours by default); stale
// entries are never deleted, only replaced by a successful fetch, so the
// last known data remains available offline. Mutations patch the stored
// collection in place and restamp it. Unreadable entries are reported as
// misses.
//
// Maintenance helpers reset the cache after an API version change, clear all
// cached data on request, and summarise what is stored.
package cache

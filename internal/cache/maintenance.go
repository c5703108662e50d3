package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"vocalize/internal/kvstore"
	"vocalize/internal/logging"
)

// APIVersion is the data layout version cached entries were written for.
const APIVersion = "1.0.0"

// KeyAPIVersion stores the version the cache was last written with.
const KeyAPIVersion = "api_version"

// Keys dropped when the API version changes. Names match by substring;
// prefixes match per user.
var (
	versionedKeys     = []string{"user_data", "vocalizations", "hasParticipant", "participantId"}
	versionedPrefixes = []string{"user_participantes_", "user_audios_"}
)

// preservedKeys survive ClearData: the session, remembered login, the
// recording queue, and the version marker.
var preservedKeys = []string{
	"access_token", "refresh_token", "userId", "role", "token", "tokenExpires",
	"saved_email", "saved_password", "recordings", "username", "acessoPermitido",
	KeyAPIVersion,
}

// CheckVersion drops per-version cached data when the stored API version
// differs from APIVersion, then records APIVersion. It reports whether data
// was dropped.
func CheckVersion(ctx context.Context, c *Cache) (bool, error) {
	stored, _, err := c.store.Get(ctx, KeyAPIVersion)
	if err != nil {
		return false, fmt.Errorf("read api version: %w", err)
	}
	if stored == APIVersion {
		return false, nil
	}

	remove, err := kvstore.MatchingKeys(ctx, c.store, isVersioned)
	if err != nil {
		return false, fmt.Errorf("list keys: %w", err)
	}
	if err := c.store.MultiRemove(ctx, remove...); err != nil {
		return false, fmt.Errorf("drop versioned cache: %w", err)
	}
	if err := c.store.Set(ctx, KeyAPIVersion, APIVersion); err != nil {
		return false, fmt.Errorf("record api version: %w", err)
	}

	c.logger.Info("cache reset after api version change",
		logging.String(logging.FieldEventType, "cache_version_reset"),
		logging.String("previous_version", stored),
		logging.String("current_version", APIVersion),
		logging.Int("removed_keys", len(remove)),
	)
	return true, nil
}

func isVersioned(key string) bool {
	for _, name := range versionedKeys {
		if strings.Contains(key, name) {
			return true
		}
	}
	for _, prefix := range versionedPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

// ClearData removes every cached key and returns how many were removed.
func ClearData(ctx context.Context, c *Cache) (int, error) {
	remove, err := kvstore.MatchingKeys(ctx, c.store, func(key string) bool {
		return !slices.Contains(preservedKeys, key)
	})
	if err != nil {
		return 0, fmt.Errorf("list keys: %w", err)
	}
	if err := c.store.MultiRemove(ctx, remove...); err != nil {
		return 0, fmt.Errorf("clear cache: %w", err)
	}
	c.logger.Info("cache cleared",
		logging.String(logging.FieldEventType, "cache_cleared"),
		logging.Int("removed_keys", len(remove)),
	)
	return len(remove), nil
}

// KeyInfo describes one cached key.
type KeyInfo struct {
	Key      string    `json:"key"`
	Bytes    int       `json:"bytes"`
	Items    int       `json:"items,omitempty"`
	StoredAt time.Time `json:"stored_at,omitzero"`
	Fresh    bool      `json:"fresh"`
}

// Info summarises the store contents.
type Info struct {
	APIVersion string    `json:"api_version"`
	TotalKeys  int       `json:"total_keys"`
	Entries    []KeyInfo `json:"entries"`
}

// Describe reports the API version marker and every non-preserved key.
func Describe(ctx context.Context, c *Cache) (Info, error) {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("list keys: %w", err)
	}
	version, _, err := c.store.Get(ctx, KeyAPIVersion)
	if err != nil {
		return Info{}, fmt.Errorf("read api version: %w", err)
	}

	info := Info{APIVersion: version, TotalKeys: len(keys)}
	now := c.now()
	for _, key := range keys {
		if slices.Contains(preservedKeys, key) {
			continue
		}
		raw, _, err := c.store.Get(ctx, key)
		if err != nil {
			return Info{}, fmt.Errorf("read %s: %w", key, err)
		}
		item := KeyInfo{Key: key, Bytes: len(raw)}
		var entry Entry[json.RawMessage]
		if json.Unmarshal([]byte(raw), &entry) == nil && entry.Timestamp > 0 {
			item.Items = len(entry.Data)
			item.StoredAt = entry.StoredAt()
			item.Fresh = entry.IsFresh(now, c.window)
		}
		info.Entries = append(info.Entries, item)
	}
	sort.Slice(info.Entries, func(i, j int) bool { return info.Entries[i].Key < info.Entries[j].Key })
	return info, nil
}

package testsupport

import (
	"testing"

	"vocalize/internal/config"
	"vocalize/internal/kvstore"
)

// MustOpenStore opens the SQLite state store described by cfg and registers
// cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *kvstore.SQLiteStore {
	t.Helper()

	store, err := kvstore.Open(t.Context(), cfg.Storage.StatePath)
	if err != nil {
		t.Fatalf("kvstore.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

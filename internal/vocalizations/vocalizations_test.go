package vocalizations_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"vocalize/internal/api"
	"vocalize/internal/apierr"
	"vocalize/internal/cache"
	"vocalize/internal/connectivity"
	"vocalize/internal/kvstore"
	"vocalize/internal/vault"
	"vocalize/internal/vocalizations"
)

type fixture struct {
	svc     *vocalizations.Service
	store   *kvstore.Memory
	vault   *vault.Vault
	cache   *cache.Cache
	checker *connectivity.Static
	calls   *atomic.Int32
}

func newFixture(t *testing.T, handler http.HandlerFunc) *fixture {
	t.Helper()
	calls := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	store := kvstore.NewMemory()
	v := vault.New(store)
	client, err := api.New(api.Config{BaseURL: srv.URL, APIKey: "k"}, v, api.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	c := cache.New(store)
	checker := connectivity.NewStatic(true)
	return &fixture{
		svc:     vocalizations.New(client, c, checker, nil),
		store:   store,
		vault:   v,
		cache:   c,
		checker: checker,
		calls:   calls,
	}
}

func (f *fixture) login(t *testing.T, userID, role string) {
	t.Helper()
	if err := f.vault.SetCredentials(context.Background(), vault.Credentials{AccessToken: "tok", RefreshToken: "r", UserID: userID, Role: role}); err != nil {
		t.Fatalf("SetCredentials: %v", err)
	}
}

func reply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestListUsesCacheWhileFresh(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vocalizacoes" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		reply(w, http.StatusOK, []map[string]any{{"id": 1, "nome": "choro", "descricao": "choro alto"}})
	})
	f.login(t, "42", "user")
	ctx := context.Background()

	first, err := f.svc.List(ctx, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	second, err := f.svc.List(ctx, false)
	if err != nil {
		t.Fatalf("List again: %v", err)
	}
	if f.calls.Load() != 1 {
		t.Fatalf("expected exactly one network fetch, got %d", f.calls.Load())
	}
	if len(first) != 1 || first[0] != second[0] || first[0].Name != "choro" {
		t.Fatalf("unexpected lists %+v %+v", first, second)
	}

	f.checker.Set(false)
	offline, err := f.svc.List(ctx, true)
	if err != nil || len(offline) != 1 || offline[0] != first[0] {
		t.Fatalf("offline list must match cached data, got %+v %v", offline, err)
	}
}

func TestCreateTwiceDoesNotDuplicate(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusCreated, map[string]any{"id": 5, "nome": "riso", "descricao": "riso curto"})
	})
	f.login(t, "42", "user")
	ctx := context.Background()

	for range 2 {
		if _, err := f.svc.Create(ctx, "riso", "riso curto"); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	entry, ok, _ := cache.Read[vocalizations.Vocalization](ctx, f.cache, vocalizations.CacheKey)
	if !ok || len(entry.Data) != 1 || entry.Data[0].ID != 5 {
		t.Fatalf("expected a single cached label, got %+v", entry.Data)
	}
}

func TestCreateRequiresNameAndDescription(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusCreated, map[string]any{})
	})
	if _, err := f.svc.Create(context.Background(), "riso", "  "); !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.calls.Load() != 0 {
		t.Fatal("validation must happen before any request")
	}
}

func TestDeleteRequiresAdminWithoutNetwork(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	f.login(t, "42", "user")

	err := f.svc.Delete(context.Background(), 3)
	if !apierr.IsKind(err, apierr.KindPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if f.calls.Load() != 0 {
		t.Fatalf("expected zero network calls, got %d", f.calls.Load())
	}
}

func TestAdminDeletePatchesCache(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/vocalizacoes/1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusNoContent)
	})
	f.login(t, "1", vault.RoleAdmin)
	ctx := context.Background()
	_ = cache.Write(ctx, f.cache, vocalizations.CacheKey, []vocalizations.Vocalization{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}})

	if err := f.svc.Delete(ctx, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	entry, _, _ := cache.Read[vocalizations.Vocalization](ctx, f.cache, vocalizations.CacheKey)
	if len(entry.Data) != 1 || entry.Data[0].ID != 2 {
		t.Fatalf("expected deleted label to be removed from cache, got %+v", entry.Data)
	}
}

func TestUpdateOwnerOrAdmin(t *testing.T) {
	f := newFixture(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["nome"] != "novo" {
			t.Errorf("unexpected body %v", body)
		}
		reply(w, http.StatusOK, map[string]any{})
	})
	f.login(t, "42", "user")
	ctx := context.Background()
	_ = cache.Write(ctx, f.cache, vocalizations.CacheKey, []vocalizations.Vocalization{{ID: 7, Name: "velho", Description: "d"}})

	other := int64(9)
	if err := f.svc.Update(ctx, 7, vocalizations.Update{Name: "novo", OwnerID: &other}); !apierr.IsKind(err, apierr.KindPermissionDenied) {
		t.Fatalf("expected permission error for foreign label, got %v", err)
	}
	if f.calls.Load() != 0 {
		t.Fatal("rejected update must not reach the network")
	}

	owner := int64(42)
	if err := f.svc.Update(ctx, 7, vocalizations.Update{Name: "novo", OwnerID: &owner}); err != nil {
		t.Fatalf("owner update: %v", err)
	}
	entry, _, _ := cache.Read[vocalizations.Vocalization](ctx, f.cache, vocalizations.CacheKey)
	if entry.Data[0].Name != "novo" || entry.Data[0].Description != "d" {
		t.Fatalf("expected merged cache record, got %+v", entry.Data[0])
	}
}

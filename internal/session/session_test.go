package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"vocalize/internal/api"
	"vocalize/internal/apierr"
	"vocalize/internal/cache"
	"vocalize/internal/kvstore"
	"vocalize/internal/navigation"
	"vocalize/internal/notifications"
	"vocalize/internal/session"
	"vocalize/internal/testsupport"
	"vocalize/internal/vault"
)

type call struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

type harness struct {
	store    *kvstore.Memory
	vault    *vault.Vault
	nav      *navigation.Recorder
	notifier *notifications.Recorder
	manager  *session.Manager

	mu    sync.Mutex
	calls []call
}

func newHarness(t *testing.T, handler func(w http.ResponseWriter, c call)) *harness {
	t.Helper()
	h := &harness{
		store:    kvstore.NewMemory(),
		nav:      &navigation.Recorder{},
		notifier: &notifications.Recorder{},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := call{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
		_ = json.NewDecoder(r.Body).Decode(&c.Body)
		h.mu.Lock()
		h.calls = append(h.calls, c)
		h.mu.Unlock()
		handler(w, c)
	}))
	t.Cleanup(srv.Close)

	h.vault = vault.New(h.store)
	cfg := api.Config{BaseURL: srv.URL, APIKey: "test-key"}
	auth, err := api.New(cfg, h.vault, api.WithHTTPClient(srv.Client()), api.WithNavigator(h.nav), api.WithNotifier(h.notifier))
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	public, err := api.NewPublic(cfg, api.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("api.NewPublic: %v", err)
	}
	h.manager = session.New(auth, public, h.vault,
		session.WithCache(cache.New(h.store)),
		session.WithNavigator(h.nav),
		session.WithNotifier(h.notifier),
	)
	return h
}

func (h *harness) Calls() []call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]call(nil), h.calls...)
}

func (h *harness) value(t *testing.T, key string) string {
	t.Helper()
	v, _, err := h.store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get %s: %v", key, err)
	}
	return v
}

func reply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestLoginStoresSessionAndRunsGate(t *testing.T) {
	access := testsupport.MintToken(t, "42", "user", time.Hour)
	h := newHarness(t, func(w http.ResponseWriter, c call) {
		switch c.Path {
		case "/auth/login":
			if c.Body["email"] != "ana@example.com" || c.Body["senha"] != "pw" {
				t.Errorf("unexpected login body %v", c.Body)
			}
			reply(w, http.StatusOK, map[string]string{"access_token": access, "refresh_token": "r1"})
		case "/usuarios/42":
			if c.Auth != "Bearer "+access {
				t.Errorf("profile must use the new token, got %q", c.Auth)
			}
			reply(w, http.StatusOK, map[string]any{"nome": "Ana", "acesso_permitido": true})
		default:
			t.Errorf("unexpected path %s", c.Path)
		}
	})
	ctx := context.Background()
	_ = h.store.Set(ctx, cache.KeyAPIVersion, cache.APIVersion)

	status, err := h.manager.Login(ctx, "ana@example.com", "pw", true)
	if err != nil || status != session.StatusSuccess {
		t.Fatalf("Login = %s, %v", status, err)
	}
	creds, _ := h.vault.Credentials(ctx)
	if creds.UserID != "42" || creds.Role != "user" || creds.AccessToken != access || creds.RefreshToken != "r1" {
		t.Fatalf("unexpected credentials %+v", creds)
	}
	if !h.vault.HasRememberedCredentials(ctx) {
		t.Fatal("expected remembered credentials")
	}
	if h.value(t, session.KeyUsername) != "Ana" || h.value(t, session.KeyAccessGranted) != "true" {
		t.Fatal("expected profile keys to be stored")
	}
	if h.nav.Last() != navigation.RouteMain {
		t.Fatalf("expected main route, got %q", h.nav.Last())
	}
	if h.notifier.Count("cache_reset") != 0 {
		t.Fatal("matching api version must not reset the cache")
	}
}

func TestLoginUnverified(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ call) {
		reply(w, http.StatusForbidden, map[string]string{"detail": apierr.UnverifiedDetail})
	})
	ctx := context.Background()

	status, err := h.manager.Login(ctx, "ana@example.com", "pw", true)
	if status != session.StatusUnverified || !apierr.IsKind(err, apierr.KindUnverifiedAccount) {
		t.Fatalf("Login = %s, %v", status, err)
	}
	if token, _ := h.vault.AccessToken(ctx); token != "" {
		t.Fatal("unverified login must not store tokens")
	}
	if h.vault.HasRememberedCredentials(ctx) {
		t.Fatal("unverified login must not remember credentials")
	}
}

func TestLoginErrorStatus(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, _ call) {
		reply(w, http.StatusUnauthorized, map[string]string{"detail": "Credenciais inválidas"})
	})
	status, err := h.manager.Login(context.Background(), "ana@example.com", "bad", false)
	if status != session.StatusError || apierr.Message(err) != "Credenciais inválidas" {
		t.Fatalf("Login = %s, %v", status, err)
	}
	if len(h.nav.Routes()) != 0 {
		t.Fatal("a rejected login must not navigate")
	}
}

func TestLoginProfileFailureFallsBackAndResetsOldCache(t *testing.T) {
	access := testsupport.MintToken(t, "7", "user", time.Hour)
	h := newHarness(t, func(w http.ResponseWriter, c call) {
		if c.Path == "/auth/login" {
			reply(w, http.StatusOK, map[string]string{"access_token": access, "refresh_token": "r"})
			return
		}
		reply(w, http.StatusInternalServerError, map[string]string{"detail": "down"})
	})
	ctx := context.Background()
	_ = h.store.Set(ctx, cache.KeyAPIVersion, "0.9.0")
	_ = h.store.Set(ctx, "vocalizations", `{"data":[],"timestamp":1}`)

	status, err := h.manager.Login(ctx, "maria.silva@example.com", "pw", false)
	if err != nil || status != session.StatusSuccess {
		t.Fatalf("Login = %s, %v", status, err)
	}
	if got := h.value(t, session.KeyUsername); got != "Maria Silva" {
		t.Fatalf("username = %q", got)
	}
	if len(h.nav.Routes()) != 0 {
		t.Fatal("gate must not run without a profile")
	}
	if _, ok, _ := h.store.Get(ctx, "vocalizations"); ok {
		t.Fatal("versioned cache should be dropped")
	}
	if h.notifier.Count("cache_reset") != 1 {
		t.Fatalf("expected one cache reset notification, got %d", h.notifier.Count("cache_reset"))
	}
	if h.vault.HasRememberedCredentials(ctx) {
		t.Fatal("remember=false must not store credentials")
	}
}

func TestLogoutKeepsRecordingsAndRememberedLogin(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, c call) {
		if c.Path != "/auth/logout" || c.Auth != "Bearer tok" || c.Body["refresh_token"] != "r" {
			t.Errorf("unexpected logout call %+v", c)
		}
		reply(w, http.StatusInternalServerError, map[string]string{"detail": "down"})
	})
	ctx := context.Background()
	_ = h.vault.SetCredentials(ctx, vault.Credentials{AccessToken: "tok", RefreshToken: "r", UserID: "1", Role: "user"})
	_ = h.vault.SaveRememberedCredentials(ctx, "ana@example.com", "pw")
	_ = h.store.Set(ctx, vault.KeyRecordings, "[]")
	_ = h.store.Set(ctx, "vocalizations", "{}")

	if err := h.manager.Logout(ctx, false); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	keys, _ := h.store.Keys(ctx)
	want := map[string]bool{vault.KeyRecordings: true, vault.KeySavedEmail: true, vault.KeySavedPass: true}
	if len(keys) != len(want) {
		t.Fatalf("unexpected remaining keys %v", keys)
	}
	for _, key := range keys {
		if !want[key] {
			t.Fatalf("unexpected remaining key %s", key)
		}
	}
	if h.nav.Last() != navigation.RouteLogin {
		t.Fatalf("expected login route, got %q", h.nav.Last())
	}

	if err := h.manager.Logout(ctx, true); err != nil {
		t.Fatalf("Logout clearing credentials: %v", err)
	}
	if h.vault.HasRememberedCredentials(ctx) {
		t.Fatal("credentials should be cleared")
	}
	if len(h.Calls()) != 1 {
		t.Fatalf("second logout has no tokens and must not call the server, got %d calls", len(h.Calls()))
	}
}

func TestRegisterValidatesBeforeNetwork(t *testing.T) {
	status := http.StatusCreated
	h := newHarness(t, func(w http.ResponseWriter, c call) {
		if c.Body["aceite_termos"] != true || c.Body["celular"] != "11999999999" {
			t.Errorf("unexpected body %v", c.Body)
		}
		reply(w, status, map[string]any{})
	})
	ctx := context.Background()
	valid := session.Registration{Name: "Ana", Email: "ana@example.com", Phone: "11999999999", Password: "pw", ConfirmPassword: "pw", AcceptTerms: true}

	bad := []session.Registration{
		{Email: "ana@example.com", Phone: "1", Password: "pw", ConfirmPassword: "pw", AcceptTerms: true},
		{Name: "Ana", Email: "ana@example.com", Phone: "1", Password: "pw", ConfirmPassword: "pw"},
		{Name: "Ana", Email: "ana@example", Phone: "1", Password: "pw", ConfirmPassword: "pw", AcceptTerms: true},
		{Name: "Ana", Email: "ana@example.com", Phone: "1", Password: "pw", ConfirmPassword: "other", AcceptTerms: true},
	}
	for i, r := range bad {
		if err := h.manager.Register(ctx, r); !apierr.IsKind(err, apierr.KindValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	if len(h.Calls()) != 0 {
		t.Fatal("invalid forms must not reach the network")
	}

	if err := h.manager.Register(ctx, valid); err != nil {
		t.Fatalf("Register: %v", err)
	}
	status = http.StatusOK
	if err := h.manager.Register(ctx, valid); !apierr.IsKind(err, apierr.KindServerRejected) {
		t.Fatalf("non-201 success must fail, got %v", err)
	}
}

func TestAccountCodeRequestsValidateBeforeNetwork(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, c call) {
		if c.Body["email"] != "ana@example.com" {
			t.Errorf("unexpected body %v", c.Body)
		}
		reply(w, http.StatusOK, map[string]any{})
	})
	ctx := context.Background()

	invalid := map[string]func() error{
		"resend bad email":  func() error { return h.manager.SendConfirmationCode(ctx, "ana") },
		"confirm bad email": func() error { return h.manager.ConfirmRegistration(ctx, "ana@example", "1234") },
		"confirm no code":   func() error { return h.manager.ConfirmRegistration(ctx, "ana@example.com", "  ") },
		"reset bad email":   func() error { return h.manager.RequestPasswordReset(ctx, "") },
	}
	for name, fn := range invalid {
		if err := fn(); !apierr.IsKind(err, apierr.KindValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
	if len(h.Calls()) != 0 {
		t.Fatalf("invalid input reached the network: %v", h.Calls())
	}

	if err := h.manager.SendConfirmationCode(ctx, " ana@example.com "); err != nil {
		t.Fatalf("SendConfirmationCode: %v", err)
	}
	if err := h.manager.ConfirmRegistration(ctx, "ana@example.com", "1234"); err != nil {
		t.Fatalf("ConfirmRegistration: %v", err)
	}
	if err := h.manager.RequestPasswordReset(ctx, "ana@example.com"); err != nil {
		t.Fatalf("RequestPasswordReset: %v", err)
	}
	if got := len(h.Calls()); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestResetPasswordUpdatesRememberedPassword(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, c call) {
		if c.Body["codigo_confirmacao"] != float64(123456) || c.Body["nova_senha"] != "new" {
			t.Errorf("unexpected body %v", c.Body)
		}
		reply(w, http.StatusOK, map[string]any{})
	})
	ctx := context.Background()
	_ = h.vault.SaveRememberedCredentials(ctx, "ana@example.com", "old")

	if err := h.manager.ResetPassword(ctx, "ana@example.com", "12a", "new"); !apierr.IsKind(err, apierr.KindValidation) {
		t.Fatalf("expected validation error for non-numeric code, got %v", err)
	}
	if len(h.Calls()) != 0 {
		t.Fatal("bad code must not reach the network")
	}
	if err := h.manager.ResetPassword(ctx, "ana@example.com", "123456", "new"); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	creds, _, _ := h.vault.RememberedCredentials(ctx)
	if creds.Password != "new" {
		t.Fatalf("remembered password = %q", creds.Password)
	}
}

func TestIsAuthenticated(t *testing.T) {
	fresh := testsupport.MintToken(t, "1", "user", time.Hour)
	h := newHarness(t, func(w http.ResponseWriter, c call) {
		if c.Path != "/auth/refresh" || c.Body["refresh_token"] != "r" {
			t.Errorf("unexpected call %+v", c)
		}
		reply(w, http.StatusOK, map[string]string{"access_token": fresh, "refresh_token": "r2"})
	})
	ctx := context.Background()

	if h.manager.IsAuthenticated(ctx) {
		t.Fatal("no token and no remembered login is signed out")
	}

	_ = h.vault.SetCredentials(ctx, vault.Credentials{AccessToken: fresh, RefreshToken: "r", UserID: "1", Role: "user"})
	if !h.manager.IsAuthenticated(ctx) || len(h.Calls()) != 0 {
		t.Fatal("a valid token needs no network")
	}

	expired := testsupport.MintToken(t, "1", "user", -time.Minute)
	_ = h.vault.SetCredentials(ctx, vault.Credentials{AccessToken: expired, RefreshToken: "r", UserID: "1", Role: "user"})
	if !h.manager.IsAuthenticated(ctx) {
		t.Fatal("expired token with refresh token should renew")
	}
	if token, _ := h.vault.AccessToken(ctx); token != fresh {
		t.Fatal("renewed token should be stored")
	}
}

func TestGenerateInviteCode(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, c call) {
		if c.Method != http.MethodPost || c.Path != "/usuarios/gerar-codigo-convite" || c.Auth != "Bearer tok" {
			t.Errorf("unexpected call %+v", c)
		}
		reply(w, http.StatusOK, map[string]string{"codigo_convite": "ABC123"})
	})
	ctx := context.Background()
	_ = h.vault.SetCredentials(ctx, vault.Credentials{AccessToken: "tok", RefreshToken: "r", UserID: "1", Role: "admin"})

	code, err := h.manager.GenerateInviteCode(ctx)
	if err != nil || code != "ABC123" {
		t.Fatalf("GenerateInviteCode = %q, %v", code, err)
	}
}

func TestEvaluateAccess(t *testing.T) {
	nav := &navigation.Recorder{}
	ctx := context.Background()
	if got := session.EvaluateAccess(ctx, nav, true); got != navigation.RouteMain {
		t.Fatalf("granted route = %q", got)
	}
	if got := session.EvaluateAccess(ctx, nav, false); got != navigation.RouteAwaitingAccess {
		t.Fatalf("denied route = %q", got)
	}
	if routes := nav.Routes(); len(routes) != 2 {
		t.Fatalf("expected two navigations, got %v", routes)
	}
}

func TestDisplayName(t *testing.T) {
	if got := session.DisplayName("joao_pedro@example.com"); got != "Joao Pedro" {
		t.Fatalf("DisplayName = %q", got)
	}
}

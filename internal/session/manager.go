package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"vocalize/internal/api"
	"vocalize/internal/apierr"
	"vocalize/internal/authtoken"
	"vocalize/internal/cache"
	"vocalize/internal/logging"
	"vocalize/internal/navigation"
	"vocalize/internal/notifications"
	"vocalize/internal/vault"
)

// Status is the outcome of a login attempt.
type Status string

const (
	StatusSuccess    Status = "success"
	StatusUnverified Status = "unverified"
	StatusError      Status = "error"
)

const cacheResetReason = "Dados antigos foram limpos para garantir compatibilidade"

// Option customises a Manager.
type Option func(*Manager)

// WithCache enables the API version check after login.
func WithCache(c *cache.Cache) Option {
	return func(m *Manager) {
		m.cache = c
	}
}

// WithNavigator sets where the Manager sends route changes. nil keeps the no-op navigator.
func WithNavigator(nav navigation.Navigator) Option {
	return func(m *Manager) {
		if nav != nil {
			m.navigator = nav
		}
	}
}

// WithNotifier sets the notification service. nil keeps the default.
func WithNotifier(svc notifications.Service) Option {
	return func(m *Manager) {
		if svc != nil {
			m.notifier = svc
		}
	}
}

// WithClock overrides the time used to judge token expiry.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the base logger. nil discards session logs.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager runs the session flows. auth is the authenticated client; public
// sends calls that must never trigger a session renewal.
type Manager struct {
	auth      *api.Client
	public    *api.Client
	vault     *vault.Vault
	cache     *cache.Cache
	navigator navigation.Navigator
	notifier  notifications.Service
	now       func() time.Time
	logger    *slog.Logger
}

// New builds a Manager.
func New(auth, public *api.Client, v *vault.Vault, opts ...Option) *Manager {
	m := &Manager{
		auth:      auth,
		public:    public,
		vault:     v,
		navigator: navigation.Nop,
		notifier:  notifications.NewNoop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.NewComponentLogger(m.logger, "session")
	return m
}

// Login signs in with email and password. A 403 for an unconfirmed account
// yields StatusUnverified; every other failure yields StatusError. The error
// is returned alongside the status for callers that show it.
func (m *Manager) Login(ctx context.Context, email, password string, remember bool) (Status, error) {
	pair, claims, err := m.public.Authenticate(ctx, email, password)
	if err != nil {
		if apierr.IsKind(err, apierr.KindUnverifiedAccount) {
			m.logger.Info("login refused for unverified account",
				logging.String(logging.FieldEventType, "login_unverified"),
			)
			return StatusUnverified, err
		}
		logging.WarnWithContext(m.logger, "login failed", "login_failed",
			logging.String(logging.FieldErrorKind, string(apierr.KindOf(err))),
			logging.Error(err),
			logging.String(logging.FieldImpact, "user stays signed out"),
		)
		return StatusError, err
	}

	if err := m.vault.SetCredentials(ctx, vault.Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserID:       claims.Subject,
		Role:         claims.Role,
	}); err != nil {
		return StatusError, apierr.Wrap(apierr.KindStorageCorruption, "could not store the session", err)
	}
	if remember {
		if err := m.vault.SaveRememberedCredentials(ctx, email, password); err != nil {
			logging.WarnWithContext(m.logger, "remembered credentials not saved", "remember_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "automatic re-login unavailable"),
			)
		}
	}

	m.checkCacheVersion(ctx)
	m.loadProfile(ctx, claims, pair.AccessToken, email)

	m.logger.Info("login succeeded",
		logging.String(logging.FieldEventType, "login_succeeded"),
		logging.String(logging.FieldUserID, claims.Subject),
		logging.String("role", claims.Role),
	)
	return StatusSuccess, nil
}

func (m *Manager) checkCacheVersion(ctx context.Context) {
	if m.cache == nil {
		return
	}
	reset, err := cache.CheckVersion(ctx, m.cache)
	if err != nil {
		logging.WarnWithContext(m.logger, "cache version check failed", "cache_version_check_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "cached data may predate the current API"),
		)
		return
	}
	if reset {
		if err := m.notifier.NotifyCacheReset(ctx, cacheResetReason); err != nil {
			m.logger.Debug("cache reset notification failed", logging.Error(err))
		}
	}
}

// loadProfile records the display name and access flag, then runs the
// access gate. A failed lookup only stores the fallback name.
func (m *Manager) loadProfile(ctx context.Context, claims authtoken.Claims, accessToken, email string) {
	profile, err := m.fetchProfile(ctx, claims.Subject, accessToken)
	if err != nil {
		logging.WarnWithContext(m.logger, "profile lookup failed", "profile_lookup_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "display name falls back to the email"),
		)
		if err := m.vault.Store().Set(ctx, KeyUsername, DisplayName(email)); err != nil {
			m.logger.Debug("username not stored", logging.Error(err))
		}
		return
	}
	if err := m.storeProfile(ctx, profile, email); err != nil {
		m.logger.Debug("profile not stored", logging.Error(err))
	}
	EvaluateAccess(ctx, m.navigator, profile.AccessGranted)
}

// AutoLogin replays a login with remembered credentials. It reports false
// when none are stored or the login did not succeed.
func (m *Manager) AutoLogin(ctx context.Context) bool {
	creds, ok, err := m.vault.RememberedCredentials(ctx)
	if err != nil || !ok {
		return false
	}
	status, _ := m.Login(ctx, creds.Email, creds.Password, false)
	return status == StatusSuccess
}

// Logout revokes the refresh token when possible, clears local session data
// and returns to login. The recording queue always survives; remembered
// credentials survive unless clearCredentials is set.
func (m *Manager) Logout(ctx context.Context, clearCredentials bool) error {
	creds, err := m.vault.Credentials(ctx)
	if err == nil && creds.AccessToken != "" && creds.RefreshToken != "" {
		err := m.public.Do(ctx, api.Request{
			Method: http.MethodPost,
			Path:   api.PathLogout,
			Body:   map[string]string{"refresh_token": creds.RefreshToken},
			Header: http.Header{"Authorization": {"Bearer " + creds.AccessToken}},
		}, nil)
		if err != nil {
			logging.WarnWithContext(m.logger, "server logout failed", "logout_remote_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "refresh token stays valid on the server until it expires"),
			)
		}
	}

	var result error
	if err := m.vault.ClearSession(ctx, clearCredentials); err != nil {
		logging.WarnWithContext(m.logger, "session clear failed, removing tokens only", "logout_clear_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "cached data stays on disk"),
		)
		result = m.vault.ClearTokens(ctx)
		if clearCredentials {
			result = errors.Join(result, m.vault.ClearRememberedCredentials(ctx))
		}
	}
	m.navigator.Navigate(ctx, navigation.RouteLogin)
	m.logger.Info("logged out",
		logging.String(logging.FieldEventType, "logout"),
		logging.Bool("cleared_credentials", clearCredentials),
	)
	return result
}

// IsAuthenticated reports whether a usable session exists, renewing an
// expired one and falling back to remembered credentials.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	token, err := m.vault.AccessToken(ctx)
	if err != nil || token == "" {
		return m.vault.HasRememberedCredentials(ctx) && m.AutoLogin(ctx)
	}

	claims, err := authtoken.Decode(token)
	if err != nil {
		m.logger.Debug("stored token unreadable", logging.Error(err))
		return m.vault.HasRememberedCredentials(ctx) && m.AutoLogin(ctx)
	}
	if claims.Valid(m.now()) {
		return true
	}

	if _, err := m.auth.RefreshSession(ctx); err != nil {
		m.logger.Debug("session renewal failed", logging.Error(err))
		return false
	}
	return true
}

package vault

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"vocalize/internal/kvstore"
)

// Persisted keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserID       = "userId"
	KeyRole         = "role"
	KeySavedEmail   = "saved_email"
	KeySavedPass    = "saved_password"
	KeyRecordings   = "recordings"

	// Written by earlier app versions; cleared with the session.
	keyLegacyToken   = "token"
	keyLegacyExpires = "tokenExpires"
)

// RoleAdmin is the role claim granting administrative operations.
const RoleAdmin = "admin"

// AuthKeys lists every key removed by ClearTokens.
var AuthKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUserID, KeyRole, keyLegacyToken, keyLegacyExpires}

// Credentials is the persisted session record.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Role         string
}

// IsAdmin reports whether the session carries the admin role.
func (c Credentials) IsAdmin() bool { return c.Role == RoleAdmin }

// Remembered holds the opt-in login credentials used for silent re-login.
type Remembered struct {
	Email    string
	Password string
}

// Vault reads and writes credentials.
type Vault struct {
	store kvstore.Store
}

// New returns a Vault over store.
func New(store kvstore.Store) *Vault {
	return &Vault{store: store}
}

// Store exposes the underlying key-value store.
func (v *Vault) Store() kvstore.Store { return v.store }

func (v *Vault) get(ctx context.Context, key string) (string, error) {
	value, _, err := v.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return value, nil
}

// Credentials returns the stored record. Missing keys read as empty strings.
func (v *Vault) Credentials(ctx context.Context) (Credentials, error) {
	var creds Credentials
	var err error
	if creds.AccessToken, err = v.get(ctx, KeyAccessToken); err != nil {
		return Credentials{}, err
	}
	if creds.RefreshToken, err = v.get(ctx, KeyRefreshToken); err != nil {
		return Credentials{}, err
	}
	if creds.UserID, err = v.get(ctx, KeyUserID); err != nil {
		return Credentials{}, err
	}
	if creds.Role, err = v.get(ctx, KeyRole); err != nil {
		return Credentials{}, err
	}
	return creds, nil
}

// AccessToken returns the stored access token, or "" when signed out.
func (v *Vault) AccessToken(ctx context.Context) (string, error) {
	return v.get(ctx, KeyAccessToken)
}

// RefreshToken returns the stored refresh token.
func (v *Vault) RefreshToken(ctx context.Context) (string, error) {
	return v.get(ctx, KeyRefreshToken)
}

// UserID returns the id of the signed-in user.
func (v *Vault) UserID(ctx context.Context) (string, error) {
	return v.get(ctx, KeyUserID)
}

// Role returns the stored user role.
func (v *Vault) Role(ctx context.Context) (string, error) {
	return v.get(ctx, KeyRole)
}

// SetCredentials writes all four fields atomically. Empty user id or role
// are stored as empty strings so stale values never survive a new login.
func (v *Vault) SetCredentials(ctx context.Context, creds Credentials) error {
	if strings.TrimSpace(creds.AccessToken) == "" {
		return fmt.Errorf("store credentials: access token is empty")
	}
	if err := v.store.MultiSet(ctx, map[string]string{
		KeyAccessToken:  creds.AccessToken,
		KeyRefreshToken: creds.RefreshToken,
		KeyUserID:       creds.UserID,
		KeyRole:         creds.Role,
	}); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}

// SetTokenPair replaces only the tokens, keeping user id and role.
func (v *Vault) SetTokenPair(ctx context.Context, accessToken, refreshToken string) error {
	pairs := map[string]string{KeyAccessToken: accessToken}
	if refreshToken != "" {
		pairs[KeyRefreshToken] = refreshToken
	}
	if err := v.store.MultiSet(ctx, pairs); err != nil {
		return fmt.Errorf("store token pair: %w", err)
	}
	return nil
}

// ClearTokens removes the credential record. Remembered credentials and the
// recording queue are kept.
func (v *Vault) ClearTokens(ctx context.Context) error {
	if err := v.store.MultiRemove(ctx, AuthKeys...); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	return nil
}

// SaveRememberedCredentials stores email and password for silent re-login.
func (v *Vault) SaveRememberedCredentials(ctx context.Context, email, password string) error {
	if err := v.store.MultiSet(ctx, map[string]string{
		KeySavedEmail: strings.TrimSpace(email),
		KeySavedPass:  password,
	}); err != nil {
		return fmt.Errorf("remember credentials: %w", err)
	}
	return nil
}

// RememberedCredentials returns the stored pair and whether both halves exist.
func (v *Vault) RememberedCredentials(ctx context.Context) (Remembered, bool, error) {
	email, err := v.get(ctx, KeySavedEmail)
	if err != nil {
		return Remembered{}, false, err
	}
	password, err := v.get(ctx, KeySavedPass)
	if err != nil {
		return Remembered{}, false, err
	}
	if email == "" || password == "" {
		return Remembered{}, false, nil
	}
	return Remembered{Email: email, Password: password}, true, nil
}

// HasRememberedCredentials reports whether a complete remembered login exists.
// Read errors count as absent.
func (v *Vault) HasRememberedCredentials(ctx context.Context) bool {
	_, ok, err := v.RememberedCredentials(ctx)
	return err == nil && ok
}

// ClearRememberedCredentials removes the remembered email and password.
func (v *Vault) ClearRememberedCredentials(ctx context.Context) error {
	if err := v.store.MultiRemove(ctx, KeySavedEmail, KeySavedPass); err != nil {
		return fmt.Errorf("forget credentials: %w", err)
	}
	return nil
}

// UpdateRememberedPassword replaces the remembered password when the
// remembered email matches email. It reports whether an update happened.
func (v *Vault) UpdateRememberedPassword(ctx context.Context, email, password string) (bool, error) {
	saved, err := v.get(ctx, KeySavedEmail)
	if err != nil {
		return false, err
	}
	if saved == "" || !strings.EqualFold(saved, strings.TrimSpace(email)) {
		return false, nil
	}
	if err := v.store.Set(ctx, KeySavedPass, password); err != nil {
		return false, fmt.Errorf("update remembered password: %w", err)
	}
	return true, nil
}

// ClearSession removes every key except the recording queue. Remembered
// credentials are kept unless includeRemembered is set.
func (v *Vault) ClearSession(ctx context.Context, includeRemembered bool) error {
	keys, err := v.store.Keys(ctx)
	if err != nil {
		return fmt.Errorf("list keys: %w", err)
	}
	keep := []string{KeyRecordings}
	if !includeRemembered {
		keep = append(keep, KeySavedEmail, KeySavedPass)
	}
	remove := make([]string, 0, len(keys))
	for _, key := range keys {
		if slices.Contains(keep, key) {
			continue
		}
		remove = append(remove, key)
	}
	if err := v.store.MultiRemove(ctx, remove...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

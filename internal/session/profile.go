package session

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vocalize/internal/api"
	"vocalize/internal/apierr"
)

// Profile keys written at login.
const (
	KeyUsername      = "username"
	KeyAccessGranted = "acessoPermitido"
)

// Profile is the user record returned by /usuarios/:id.
type Profile struct {
	Name          string `json:"nome"`
	Email         string `json:"email"`
	AccessGranted bool   `json:"acesso_permitido"`
}

// StoredProfile is what the last login recorded locally.
type StoredProfile struct {
	Username      string
	AccessGranted bool
	// Known is false when no profile answer was ever stored.
	Known bool
}

func userPath(userID string) string { return "/usuarios/" + userID }

// DisplayName derives a name from an email's local part.
func DisplayName(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	local = strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(local)
	return cases.Title(language.BrazilianPortuguese).String(strings.TrimSpace(local))
}

// fetchProfile reads the profile with an explicit bearer on the public
// client, so a rejected token does not start a renewal.
func (m *Manager) fetchProfile(ctx context.Context, userID, accessToken string) (Profile, error) {
	if userID == "" {
		return Profile{}, apierr.New(apierr.KindValidation, "token without subject")
	}
	var p Profile
	err := m.public.Do(ctx, api.Request{
		Method: http.MethodGet,
		Path:   userPath(userID),
		Header: http.Header{"Authorization": {"Bearer " + accessToken}},
	}, &p)
	return p, err
}

// Profile fetches the signed-in user's profile and records it locally.
func (m *Manager) Profile(ctx context.Context) (Profile, error) {
	userID, err := m.vault.UserID(ctx)
	if err != nil {
		return Profile{}, apierr.Wrap(apierr.KindStorageCorruption, "read session", err)
	}
	if userID == "" {
		return Profile{}, apierr.New(apierr.KindAuthExpired, "not signed in")
	}
	var p Profile
	if err := m.auth.Get(ctx, userPath(userID), nil, &p); err != nil {
		return Profile{}, err
	}
	if err := m.storeProfile(ctx, p, p.Email); err != nil {
		return p, err
	}
	return p, nil
}

// StoredProfile returns the profile recorded by the last login.
func (m *Manager) StoredProfile(ctx context.Context) (StoredProfile, error) {
	store := m.vault.Store()
	name, _, err := store.Get(ctx, KeyUsername)
	if err != nil {
		return StoredProfile{}, fmt.Errorf("read username: %w", err)
	}
	raw, ok, err := store.Get(ctx, KeyAccessGranted)
	if err != nil {
		return StoredProfile{}, fmt.Errorf("read access flag: %w", err)
	}
	granted, parseErr := strconv.ParseBool(raw)
	return StoredProfile{
		Username:      name,
		AccessGranted: granted,
		Known:         ok && parseErr == nil,
	}, nil
}

func (m *Manager) storeProfile(ctx context.Context, p Profile, email string) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = DisplayName(email)
	}
	return m.vault.Store().MultiSet(ctx, map[string]string{
		KeyUsername:      name,
		KeyAccessGranted: strconv.FormatBool(p.AccessGranted),
	})
}

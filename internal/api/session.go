package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"vocalize/internal/apierr"
	"vocalize/internal/authtoken"
	"vocalize/internal/logging"
	"vocalize/internal/navigation"
	"vocalize/internal/vault"
)

// Auth endpoints.
const (
	PathLogin   = "/auth/login"
	PathRefresh = "/auth/refresh"
	PathLogout  = "/auth/logout"
)

// ErrRenewalFailed is wrapped by renewal errors when neither the refresh
// token nor remembered credentials produced a new session.
var ErrRenewalFailed = errors.New("session renewal failed")

// TokenPair is the token body returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
}

// LoginRequest is the /auth/login body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

// Authenticate exchanges email and password for a token pair and decodes the
// access token's claims. Nothing is persisted.
func (c *Client) Authenticate(ctx context.Context, email, password string) (TokenPair, authtoken.Claims, error) {
	var pair TokenPair
	req := Request{
		Method: http.MethodPost,
		Path:   PathLogin,
		Body:   LoginRequest{Email: strings.TrimSpace(email), Password: password},
	}
	resp, err := c.exchange(ctx, req)
	if err != nil {
		return TokenPair{}, authtoken.Claims{}, err
	}
	if err := resp.Decode(&pair); err != nil {
		return TokenPair{}, authtoken.Claims{}, err
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return TokenPair{}, authtoken.Claims{}, apierr.New(apierr.KindServerRejected, "tokens missing from login response")
	}
	claims, err := authtoken.Decode(pair.AccessToken)
	if err != nil {
		return TokenPair{}, authtoken.Claims{}, apierr.Wrap(apierr.KindServerRejected, "login returned an unreadable access token", err)
	}
	return pair, claims, nil
}

// exchange sends req without bearer decoration or 401 recovery, so auth
// endpoints cannot recurse into renewal.
func (c *Client) exchange(ctx context.Context, req Request) (*Response, error) {
	payload, contentType, err := encodeBody(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindValidation, "invalid request body", err)
	}
	plain := *c
	plain.authenticated = false
	resp, _, err := plain.roundTrip(ctx, preparedRequest{Request: req, payload: payload, contentType: contentType})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apierr.FromResponse(resp.StatusCode, resp.Body)
	}
	return resp, nil
}

// RefreshSession renews the session through the shared coordinator and
// returns the new access token. Unlike 401 recovery it never clears the
// vault or navigates.
func (c *Client) RefreshSession(ctx context.Context) (string, error) {
	if !c.authenticated {
		return "", errors.New("refresh session: client is not authenticated")
	}
	token, _, err := c.coordinator.Do(ctx, c.renew)
	if err != nil {
		return "", apierr.Wrap(apierr.KindAuthExpired, "could not renew the session", err)
	}
	return token, nil
}

// recoverUnauthorized is the response stage for a first-attempt 401.
func (c *Client) recoverUnauthorized(ctx context.Context, req preparedRequest, sentBearer string, original *apierr.Error) (*Response, error) {
	// Another caller may have renewed the session between our send and the
	// 401 arriving; retry with the stored token instead of renewing again.
	if current, err := c.vault.AccessToken(ctx); err == nil && current != "" && sentBearer != "" && current != sentBearer {
		return c.retry(ctx, req, current)
	}

	token, leader, err := c.coordinator.Do(ctx, c.renew)
	if err != nil {
		if leader {
			// The renewal itself failed; waiters already got the same outcome.
			c.endSession(context.WithoutCancel(ctx), err)
		}
		if ctx.Err() != nil {
			return nil, apierr.Wrap(apierr.KindNetworkUnavailable, "request cancelled during session renewal", ctx.Err())
		}
		return nil, apierr.Wrap(apierr.KindAuthPermanentFailure, "session expired, sign in again", original)
	}
	if ctx.Err() != nil {
		return nil, apierr.Wrap(apierr.KindNetworkUnavailable, "request cancelled during session renewal", ctx.Err())
	}
	return c.retry(ctx, req, token)
}

func (c *Client) retry(ctx context.Context, req preparedRequest, token string) (*Response, error) {
	req.retried = true
	req.Header = req.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return c.send(ctx, req)
}

// renew runs inside the coordinator: refresh token first, remembered
// credentials second.
func (c *Client) renew(ctx context.Context) (string, error) {
	var failures []error

	refreshToken, err := c.vault.RefreshToken(ctx)
	if err != nil {
		failures = append(failures, err)
	}
	if refreshToken != "" {
		token, err := c.refresh(ctx, refreshToken)
		if err == nil {
			c.logger.Info("session refreshed",
				logging.String(logging.FieldEventType, "token_refreshed"),
			)
			return token, nil
		}
		failures = append(failures, fmt.Errorf("refresh token: %w", err))
		logging.WarnWithContext(c.logger, "token refresh failed", "token_refresh_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "falling back to remembered credentials"),
			logging.String(logging.FieldImpact, "session may require a new login"),
		)
	}

	remembered, ok, err := c.vault.RememberedCredentials(ctx)
	if err != nil {
		failures = append(failures, err)
	}
	if ok {
		token, err := c.relogin(ctx, remembered)
		if err == nil {
			c.logger.Info("Sessão renovada",
				logging.String(logging.FieldEventType, "session_renewed"),
			)
			if notifyErr := c.notifier.NotifySessionRenewed(ctx); notifyErr != nil {
				c.logger.Debug("session renewal notification failed", logging.Error(notifyErr))
			}
			return token, nil
		}
		failures = append(failures, fmt.Errorf("remembered credentials: %w", err))
	}

	return "", fmt.Errorf("%w: %w", ErrRenewalFailed, errors.Join(failures...))
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (string, error) {
	resp, err := c.exchange(ctx, Request{
		Method: http.MethodPost,
		Path:   PathRefresh,
		Body:   map[string]string{"refresh_token": refreshToken},
	})
	if err != nil {
		return "", err
	}
	var pair TokenPair
	if err := resp.Decode(&pair); err != nil {
		return "", err
	}
	if pair.AccessToken == "" {
		return "", errors.New("refresh response missing access_token")
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	if err := c.vault.SetTokenPair(ctx, pair.AccessToken, pair.RefreshToken); err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

func (c *Client) relogin(ctx context.Context, creds vault.Remembered) (string, error) {
	pair, claims, err := c.Authenticate(ctx, creds.Email, creds.Password)
	if err != nil {
		return "", err
	}
	if err := c.vault.SetCredentials(ctx, vault.Credentials{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserID:       claims.Subject,
		Role:         claims.Role,
	}); err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

// endSession clears the credential record and sends the user to login.
// Remembered credentials and the recording queue are left alone.
func (c *Client) endSession(ctx context.Context, cause error) {
	logging.WarnWithContext(c.logger, "session ended; sign-in required", "session_ended",
		logging.Alert("sign_in_required"),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, "run vocalize login"),
		logging.String(logging.FieldImpact, "authenticated requests fail until the next login"),
	)
	if err := c.vault.ClearTokens(ctx); err != nil {
		logging.ErrorWithContext(c.logger, "clear tokens failed", "session_clear_failed", logging.Error(err))
	}
	c.navigator.Navigate(ctx, navigation.RouteLogin)
}

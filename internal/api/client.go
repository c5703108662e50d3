package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"vocalize/internal/apierr"
	"vocalize/internal/logging"
	"vocalize/internal/navigation"
	"vocalize/internal/notifications"
	"vocalize/internal/vault"
)

const (
	userAgent       = "vocalize/0.1.0"
	errorBodyLimit  = 4096
	responseLimit   = 32 << 20
	defaultTimeout  = 30 * time.Second
	headerAPIKey    = "X-API-Key"
	contentTypeJSON = "application/json"
)

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config holds the service endpoint settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP backend.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithLogger sets the logger; the client tags it with its component name.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithNavigator sets where the client sends the login route after a session
// ends.
func WithNavigator(nav navigation.Navigator) Option {
	return func(c *Client) {
		if nav != nil {
			c.navigator = nav
		}
	}
}

// WithNotifier sets the service told about silent session renewals.
func WithNotifier(svc notifications.Service) Option {
	return func(c *Client) {
		if svc != nil {
			c.notifier = svc
		}
	}
}

// WithCoordinator shares a renewal coordinator. Clients built without one
// get a private Coordinator.
func WithCoordinator(coord *Coordinator) Option {
	return func(c *Client) {
		if coord != nil {
			c.coordinator = coord
		}
	}
}

// Client issues requests against the vocalization API.
type Client struct {
	baseURL string
	apiKey  string

	http        HTTPDoer
	vault       *vault.Vault
	coordinator *Coordinator
	navigator   navigation.Navigator
	notifier    notifications.Service
	logger      *slog.Logger

	authenticated bool
}

// New builds the authenticated client. Requests carry the vault's bearer
// token and recover from 401 responses by renewing the session.
func New(cfg Config, v *vault.Vault, opts ...Option) (*Client, error) {
	if v == nil {
		return nil, errors.New("api client: vault is nil")
	}
	c, err := newClient(cfg, opts...)
	if err != nil {
		return nil, err
	}
	c.vault = v
	c.authenticated = true
	return c, nil
}

// NewPublic builds a client without bearer injection or 401 recovery.
func NewPublic(cfg Config, opts ...Option) (*Client, error) {
	return newClient(cfg, opts...)
}

func newClient(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api client: base URL is empty")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("api client: parse base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL:   base,
		apiKey:    strings.TrimSpace(cfg.APIKey),
		http:      &http.Client{Timeout: timeout},
		navigator: navigation.Nop,
		notifier:  notifications.NewNoop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.coordinator == nil {
		c.coordinator = NewCoordinator()
	}
	c.logger = logging.NewComponentLogger(c.logger, "api")
	return c, nil
}

// Coordinator exposes the renewal coordinator.
func (c *Client) Coordinator() *Coordinator { return c.coordinator }

// Vault returns the vault backing the authenticated client, or nil.
func (c *Client) Vault() *vault.Vault { return c.vault }

// Send executes req. Non-2xx responses are returned as *apierr.Error; the
// Response is returned only on success.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	payload, contentType, err := encodeBody(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindValidation, "invalid request body", err)
	}
	prepared := preparedRequest{Request: req, payload: payload, contentType: contentType}
	return c.send(ctx, prepared)
}

func (c *Client) send(ctx context.Context, req preparedRequest) (*Response, error) {
	resp, bearer, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.authenticated {
		original := apierr.FromResponse(resp.StatusCode, resp.Body)
		if req.retried {
			c.logger.Debug("retried request unauthorized",
				logging.String(logging.FieldMethod, req.Method),
				logging.String(logging.FieldPath, req.Path),
			)
			return nil, apierr.Wrap(apierr.KindAuthExpired, "session expired", original)
		}
		return c.recoverUnauthorized(ctx, req, bearer, original)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apierr.FromResponse(resp.StatusCode, resp.Body)
	}
	return resp, nil
}

// roundTrip performs one HTTP exchange and reports the bearer token it sent.
func (c *Client) roundTrip(ctx context.Context, req preparedRequest) (*Response, string, error) {
	target, err := c.resolve(req.Path, req.Query)
	if err != nil {
		return nil, "", apierr.Wrap(apierr.KindValidation, "invalid request path", err)
	}

	var body io.Reader
	if req.payload != nil {
		body = bytes.NewReader(req.payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, "", apierr.Wrap(apierr.KindValidation, "build request", err)
	}
	bearer, err := c.decorate(ctx, httpReq, req)
	if err != nil {
		return nil, "", err
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", apierr.Wrap(apierr.KindNetworkUnavailable, "request cancelled", ctxErr)
		}
		c.logger.Debug("request failed",
			logging.String(logging.FieldMethod, req.Method),
			logging.String(logging.FieldPath, req.Path),
			logging.Error(err),
		)
		return nil, "", apierr.Wrap(apierr.KindNetworkUnavailable, "could not reach the server", err)
	}
	defer resp.Body.Close()

	limit := int64(responseLimit)
	if resp.StatusCode >= 300 {
		limit = errorBodyLimit
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, "", apierr.Wrap(apierr.KindNetworkUnavailable, "read response", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Debug("request completed",
		logging.String(logging.FieldMethod, req.Method),
		logging.String(logging.FieldPath, req.Path),
		logging.Int(logging.FieldStatus, resp.StatusCode),
		logging.Duration("elapsed", time.Since(started)),
	)
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, bearer, nil
}

// decorate applies the request stage headers and returns the bearer token
// that was attached, if any.
func (c *Client) decorate(ctx context.Context, httpReq *http.Request, req preparedRequest) (string, error) {
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", contentTypeJSON)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if c.apiKey != "" {
		httpReq.Header.Set(headerAPIKey, c.apiKey)
	}
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	if explicit := httpReq.Header.Get("Authorization"); explicit != "" {
		return strings.TrimSpace(strings.TrimPrefix(explicit, "Bearer ")), nil
	}
	if !c.authenticated {
		return "", nil
	}
	token, err := c.vault.AccessToken(ctx)
	if err != nil {
		return "", apierr.Wrap(apierr.KindStorageCorruption, "read access token", err)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return token, nil
}

func (c *Client) resolve(path string, query url.Values) (string, error) {
	path = strings.TrimSpace(path)
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return "", fmt.Errorf("absolute URL %q not allowed", path)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target, nil
}

// Get issues a GET and decodes the JSON response into out when non-nil.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, out)
}

// Post issues a POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, out)
}

// Patch issues a PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, Request{Method: http.MethodPatch, Path: path, Body: body}, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, nil)
}

// Do sends req and decodes the JSON response into out when non-nil.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	resp, err := c.Send(ctx, req)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return resp.Decode(out)
}

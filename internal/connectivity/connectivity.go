// Package connectivity answers "is the API reachable right now?" for the
// cache-backed fetchers.
package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"vocalize/internal/logging"
)

// Checker reports whether the device is currently online.
type Checker interface {
	Online(ctx context.Context) bool
}

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// HTTPChecker considers the device online when url answers any HTTP response
// within timeout. Status codes are ignored; only transport failures count as
// offline.
type HTTPChecker struct {
	url     string
	client  HTTPDoer
	timeout time.Duration
	logger  *slog.Logger
}

// NewHTTPChecker builds an HTTPChecker for url. A nil client uses http.DefaultClient.
func NewHTTPChecker(url string, client HTTPDoer, timeout time.Duration, logger *slog.Logger) *HTTPChecker {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPChecker{
		url:     strings.TrimSpace(url),
		client:  client,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "connectivity"),
	}
}

func (c *HTTPChecker) Online(ctx context.Context) bool {
	if c == nil || c.url == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		c.logger.Debug("connectivity request invalid", logging.Error(err))
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("connectivity check failed; treating as offline",
			logging.String(logging.FieldEventType, "connectivity_offline"),
			logging.Error(err),
		)
		return false
	}
	_ = resp.Body.Close()
	return true
}

// Static is a Checker with a fixed, switchable answer.
type Static struct {
	online atomic.Bool
}

// NewStatic returns a Static checker reporting online.
func NewStatic(online bool) *Static {
	s := &Static{}
	s.online.Store(online)
	return s
}

func (s *Static) Online(context.Context) bool { return s.online.Load() }

// Set changes the reported state.
func (s *Static) Set(online bool) { s.online.Store(online) }

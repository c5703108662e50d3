package api

import (
	"context"
	"errors"
	"sync"
)

// RefreshState is the Coordinator's state.
type RefreshState int

const (
	StateIdle RefreshState = iota
	StateRefreshing
)

func (s RefreshState) String() string {
	if s == StateRefreshing {
		return "refreshing"
	}
	return "idle"
}

// errRefreshAborted is delivered to waiters when the leader's renewal
// function panics.
var errRefreshAborted = errors.New("session renewal aborted")

type outcome struct {
	token string
	err   error
}

// Coordinator serialises session renewal. At most one renewal runs at a time;
// callers arriving while it runs are queued and receive its outcome in the
// order they arrived.
type Coordinator struct {
	mu      sync.Mutex
	state   RefreshState
	waiters []chan outcome
}

// NewCoordinator returns an idle Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{}
}

// Do runs fn if no renewal is in flight and returns its result with
// leader=true. Otherwise it waits for the in-flight renewal and returns that
// result with leader=false, or ctx.Err() if ctx ends first.
//
// fn runs under a context that keeps ctx's values but not its cancellation:
// the outcome is shared with every waiter, so the leader giving up must not
// abort it.
func (c *Coordinator) Do(ctx context.Context, fn func(context.Context) (string, error)) (token string, leader bool, err error) {
	c.mu.Lock()
	if c.state == StateRefreshing {
		ch := make(chan outcome, 1)
		c.waiters = append(c.waiters, ch)
		c.mu.Unlock()

		select {
		case out := <-ch:
			return out.token, false, out.err
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}
	c.state = StateRefreshing
	c.mu.Unlock()

	out := outcome{err: errRefreshAborted}
	defer func() { c.release(out) }()

	out.token, out.err = fn(context.WithoutCancel(ctx))
	return out.token, true, out.err
}

func (c *Coordinator) release(out outcome) {
	c.mu.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.state = StateIdle
	c.mu.Unlock()

	for _, ch := range waiters {
		ch <- out
	}
}

// State reports whether a renewal is in flight.
func (c *Coordinator) State() RefreshState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Waiting reports how many callers are queued behind the in-flight renewal.
func (c *Coordinator) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

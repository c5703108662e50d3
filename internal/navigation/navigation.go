// Package navigation carries route signals from the session layer to whatever
// surface presents them. The CLI prints the route; tests record it.
package navigation

import (
	"context"
	"log/slog"
	"sync"

	"vocalize/internal/logging"
)

// Route names a destination screen.
type Route string

const (
	RouteLogin          Route = "login"
	RouteMain           Route = "main"
	RouteAwaitingAccess Route = "awaiting_access"
)

// Navigator receives route changes.
type Navigator interface {
	Navigate(ctx context.Context, route Route)
}

// Func adapts a function to Navigator.
type Func func(ctx context.Context, route Route)

func (f Func) Navigate(ctx context.Context, route Route) { f(ctx, route) }

// NewLogNavigator returns a Navigator that logs every route change.
func NewLogNavigator(logger *slog.Logger) Navigator {
	logger = logging.NewComponentLogger(logger, "navigation")
	return Func(func(_ context.Context, route Route) {
		logger.Info("navigate",
			logging.String(logging.FieldEventType, "navigate"),
			logging.String("route", string(route)),
		)
	})
}

// Nop ignores route changes.
var Nop Navigator = Func(func(context.Context, Route) {})

// Recorder keeps every route it receives.
type Recorder struct {
	mu     sync.Mutex
	routes []Route
}

func (r *Recorder) Navigate(_ context.Context, route Route) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, route)
}

// Routes returns the received routes in order.
func (r *Recorder) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Route(nil), r.routes...)
}

// Last returns the most recent route, or "" when none.
func (r *Recorder) Last() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.routes) == 0 {
		return ""
	}
	return r.routes[len(r.routes)-1]
}

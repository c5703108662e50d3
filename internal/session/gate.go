package session

import (
	"context"

	"vocalize/internal/navigation"
)

// EvaluateAccess routes a signed-in user: granted users go to the main
// screen, everyone else waits for approval. The chosen route is returned.
func EvaluateAccess(ctx context.Context, nav navigation.Navigator, granted bool) navigation.Route {
	route := navigation.RouteAwaitingAccess
	if granted {
		route = navigation.RouteMain
	}
	if nav != nil {
		nav.Navigate(ctx, route)
	}
	return route
}

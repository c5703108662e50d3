package navigation_test

import (
	"context"
	"testing"

	"vocalize/internal/navigation"
)

func TestRecorderKeepsOrder(t *testing.T) {
	rec := &navigation.Recorder{}
	if rec.Last() != "" {
		t.Fatalf("expected empty last route, got %q", rec.Last())
	}
	ctx := context.Background()
	rec.Navigate(ctx, navigation.RouteMain)
	rec.Navigate(ctx, navigation.RouteLogin)

	routes := rec.Routes()
	if len(routes) != 2 || routes[0] != navigation.RouteMain || routes[1] != navigation.RouteLogin {
		t.Fatalf("unexpected routes: %v", routes)
	}
	if rec.Last() != navigation.RouteLogin {
		t.Fatalf("Last = %q", rec.Last())
	}
}

func TestFuncAdapter(t *testing.T) {
	var got navigation.Route
	nav := navigation.Func(func(_ context.Context, route navigation.Route) { got = route })
	nav.Navigate(context.Background(), navigation.RouteAwaitingAccess)
	if got != navigation.RouteAwaitingAccess {
		t.Fatalf("got %q", got)
	}
	navigation.Nop.Navigate(context.Background(), navigation.RouteMain)
	navigation.NewLogNavigator(nil).Navigate(context.Background(), navigation.RouteMain)
}

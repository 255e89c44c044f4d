package httputils

import (
	"context"
	"net/http"
)

// UnmatchedRoute labels requests that no route served
const UnmatchedRoute = "unmatched"

type routeKey struct{}

type routeHolder struct {
	route string
}

// ContextWithRoute returns a context in which SetRoute can record the route
// serving the request, and a function reading the recorded route back.
func ContextWithRoute(ctx context.Context) (context.Context, func() string) {
	h := &routeHolder{route: UnmatchedRoute}
	return context.WithValue(ctx, routeKey{}, h), func() string { return h.route }
}

// SetRoute records the route serving the request. It is a no-op when the
// context was not prepared with ContextWithRoute.
func SetRoute(r *http.Request, route string) {
	if h, ok := r.Context().Value(routeKey{}).(*routeHolder); ok && route != "" {
		h.route = route
	}
}

package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/dmitrijs2005/healthkeeper/internal/client/services"
)

var screenNames = map[services.Route]string{
	services.RouteLanding:         "welcome",
	services.RouteLogin:           "login",
	services.RouteSignup:          "signup",
	services.RouteAshaDashboard:   "ASHA worker dashboard",
	services.RouteAdminDashboard:  "admin dashboard",
	services.RouteNGODashboard:    "NGO dashboard",
	services.RouteClinicDashboard: "clinic dashboard",
}

func screenName(r services.Route) string {
	if name, ok := screenNames[r]; ok {
		return name
	}
	return string(r)
}

// Router is the navigation surface of the terminal client. It tracks the
// current screen and announces every change.
type Router struct {
	mu       sync.Mutex
	current  services.Route
	out      io.Writer
	onChange func(ctx context.Context, to services.Route)
}

func NewRouter(out io.Writer) *Router {
	return &Router{current: services.RouteLanding, out: out}
}

// OnChange registers fn to run after every screen change.
func (r *Router) OnChange(fn func(ctx context.Context, to services.Route)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

func (r *Router) Navigate(ctx context.Context, to services.Route) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	if r.current == to {
		r.mu.Unlock()
		return nil
	}
	r.current = to
	_, err := fmt.Fprintf(r.out, "-> %s\n", screenName(to))
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn(ctx, to)
	}
	return err
}

func (r *Router) Current() services.Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

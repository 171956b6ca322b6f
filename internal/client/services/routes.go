package services

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/healthkeeper/internal/client/models"
)

type Route string

const (
	RouteLanding Route = "/"
	RouteLogin   Route = "/(auth)/login"
	RouteSignup  Route = "/(auth)/signup"

	RouteAshaDashboard   Route = "/ashaDashboard"
	RouteAdminDashboard  Route = "/adminDashboard"
	RouteNGODashboard    Route = "/ngoDashboard"
	RouteClinicDashboard Route = "/clinicDashboard"
)

// UnauthenticatedOnly reports whether r is a surface for signed-out users,
// which a signed-in user is redirected away from.
func (r Route) UnauthenticatedOnly() bool {
	return r == RouteLanding || r == "" || strings.HasPrefix(string(r), "/(auth)")
}

// RouteForRole maps a role to its home surface. Unknown roles go to the
// landing page.
func RouteForRole(role models.Role) Route {
	switch role {
	case models.RoleAshaWorker:
		return RouteAshaDashboard
	case models.RoleAdmin:
		return RouteAdminDashboard
	case models.RoleNGO:
		return RouteNGODashboard
	case models.RoleClinic:
		return RouteClinicDashboard
	}
	return RouteLanding
}

// Navigator is the navigation surface driven by the session. Navigate may
// fail transiently while the surface is not ready.
type Navigator interface {
	Navigate(ctx context.Context, r Route) error
	Current() Route
}

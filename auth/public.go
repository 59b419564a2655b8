package auth

// Auth-relevant route paths. The router and the gate both refer to these
// so the special cases cannot drift apart.
const (
	PathLogin    = "/api/users/login"
	PathRegister = "/api/users/register"
	PathLogout   = "/api/users/logout"
	PathEvents   = "/api/events"
	PathHealth   = "/health"
)

// PublicRoute marks an endpoint as reachable without authentication.
// An exact rule matches the path verbatim; a prefix rule matches any
// path that starts with it.
type PublicRoute struct {
	Path    string
	Methods []string
	Exact   bool
}

// publicRoutes is the single source of truth for which endpoints bypass
// authentication. Both the global gate and any route-level guard consult
// it through IsPublicRoute.
var publicRoutes = []PublicRoute{
	{Path: PathHealth, Methods: []string{"GET"}, Exact: true},
	{Path: PathLogin, Methods: []string{"POST"}, Exact: true},
	{Path: PathRegister, Methods: []string{"POST"}, Exact: true},
	{Path: PathEvents, Methods: []string{"GET"}, Exact: false},
}

// IsPublicRoute reports whether the (path, method) pair requires no
// authentication.
func IsPublicRoute(path, method string) bool {
	for _, route := range publicRoutes {
		if !route.matches(path, method) {
			continue
		}
		return true
	}
	return false
}

func (r PublicRoute) matches(path, method string) bool {
	methodOK := false
	for _, m := range r.Methods {
		if m == method {
			methodOK = true
			break
		}
	}
	if !methodOK {
		return false
	}

	if r.Exact {
		return path == r.Path
	}
	return len(path) >= len(r.Path) && path[:len(r.Path)] == r.Path
}

package auth

// Decision is the outcome of a route guard evaluation: either the request
// may proceed, or it is redirected.
type Decision struct {
	Allowed  bool
	Redirect string
}

// Allow lets the navigation proceed.
var Allow = Decision{Allowed: true}

// RedirectTo denies the navigation and names the path to send the client to.
func RedirectTo(path string) Decision {
	return Decision{Redirect: path}
}

// RouteConfig is the single shared route classification used by the guard,
// the HTTP controller and provider configuration. Declaring it once avoids
// divergent public-path lists in multiple guards, which makes redirects
// non-deterministic.
type RouteConfig struct {
	// PublicPaths are always reachable, authenticated or not.
	PublicPaths []string
	// LoginPath and RegisterPath are the authentication entry paths.
	LoginPath    string
	RegisterPath string
	// LandingPath is where authenticated users end up when they request an
	// authentication entry path.
	LandingPath string
}

// DefaultRouteConfig mirrors the application's route classification.
func DefaultRouteConfig() RouteConfig {
	return RouteConfig{
		PublicPaths:  []string{"/", "/login", "/register", "/confirm"},
		LoginPath:    "/login",
		RegisterPath: "/register",
		LandingPath:  "/dashboard",
	}
}

// RouteGuard decides navigation access as a pure function of the requested
// path and the auth state.
type RouteGuard struct {
	cfg    RouteConfig
	public map[string]struct{}
}

// NewRouteGuard builds a guard over the shared route configuration.
func NewRouteGuard(cfg RouteConfig) *RouteGuard {
	public := make(map[string]struct{}, len(cfg.PublicPaths))
	for _, p := range cfg.PublicPaths {
		public[p] = struct{}{}
	}
	return &RouteGuard{cfg: cfg, public: public}
}

// Config returns the route configuration the guard was built with.
func (g *RouteGuard) Config() RouteConfig {
	return g.cfg
}

// Evaluate applies the policy: authenticated users requesting an
// authentication entry path land on the landing path, public paths are
// always allowed, everything else requires an identity.
func (g *RouteGuard) Evaluate(path string, st State) Decision {
	if st.IsLoggedIn() && (path == g.cfg.LoginPath || path == g.cfg.RegisterPath) {
		return RedirectTo(g.cfg.LandingPath)
	}

	if _, ok := g.public[path]; ok {
		return Allow
	}

	if !st.IsLoggedIn() {
		return RedirectTo(g.cfg.LoginPath)
	}

	return Allow
}

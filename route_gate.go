package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// RouteClass classifies page paths for the route gate
type RouteClass int

const (
	// RoutePublic is never gated
	RoutePublic RouteClass = iota
	// RouteAuthOnly pages are meant for signed out visitors
	RouteAuthOnly
	// RouteProtected pages need a valid session
	RouteProtected
)

func (r RouteClass) String() string {
	switch r {
	case RouteAuthOnly:
		return "auth_only"
	case RouteProtected:
		return "protected"
	}
	return "public"
}

// GateAction is the outcome of a gate decision
type GateAction int

const (
	GateAllow GateAction = iota
	GateRedirect
)

// RedirectTarget names where a redirect goes, the gate maps it to a path
type RedirectTarget int

const (
	TargetNone RedirectTarget = iota
	TargetSignIn
	TargetProtectedArea
)

// Decision is what the gate does with a request
type Decision struct {
	Action      GateAction
	Target      RedirectTarget
	ClearCookie bool
}

// Decide is the route gate policy. It only depends on its arguments.
//
//	protected, no token        -> redirect to sign in
//	protected, invalid token   -> redirect to sign in, clear cookie
//	protected, valid token     -> allow
//	auth only, valid token     -> redirect to protected area
//	auth only, invalid token   -> allow, clear cookie
//	auth only, no token        -> allow
//	public                     -> allow
func Decide(class RouteClass, tokenPresent, tokenValid bool) Decision {
	valid := tokenPresent && tokenValid
	stale := tokenPresent && !tokenValid

	switch class {
	case RouteProtected:
		if valid {
			return Decision{Action: GateAllow}
		}
		return Decision{Action: GateRedirect, Target: TargetSignIn, ClearCookie: stale}
	case RouteAuthOnly:
		if valid {
			return Decision{Action: GateRedirect, Target: TargetProtectedArea}
		}
		return Decision{Action: GateAllow, ClearCookie: stale}
	}
	return Decision{Action: GateAllow}
}

// RouteTable maps paths to route classes. Protected entries match the
// path and everything below it, auth only entries match exactly.
type RouteTable struct {
	Protected []string
	AuthOnly  []string
}

// DefaultRouteTable is the dashboard layout
func DefaultRouteTable() RouteTable {
	return RouteTable{
		Protected: []string{"/dashboard"},
		AuthOnly:  []string{"/", "/signin", "/signup"},
	}
}

// Classify returns the class of path
func (t RouteTable) Classify(path string) RouteClass {
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}

	for _, p := range t.Protected {
		if path == p || strings.HasPrefix(path, strings.TrimRight(p, "/")+"/") {
			return RouteProtected
		}
	}

	for _, p := range t.AuthOnly {
		if path == p {
			return RouteAuthOnly
		}
	}

	return RoutePublic
}

// RouteGate applies Decide to page requests
type RouteGate struct {
	routes        RouteTable
	validator     TokenValidator
	transport     *RouteAuthenticator
	signInPath    string
	dashboardPath string
	contextKey    string
	logger        Logger
}

type RouteGateOption func(*RouteGate)

func WithRouteTable(t RouteTable) RouteGateOption {
	return func(g *RouteGate) {
		g.routes = t
	}
}

// WithGateTargets sets the sign in and protected area paths
func WithGateTargets(signIn, dashboard string) RouteGateOption {
	return func(g *RouteGate) {
		if signIn != "" {
			g.signInPath = signIn
		}
		if dashboard != "" {
			g.dashboardPath = dashboard
		}
	}
}

func WithGateLogger(logger Logger) RouteGateOption {
	return func(g *RouteGate) {
		g.logger = logger
	}
}

// NewRouteGate returns a gate backed by validator
func NewRouteGate(validator TokenValidator, transport *RouteAuthenticator, opts ...RouteGateOption) *RouteGate {
	g := &RouteGate{
		routes:        DefaultRouteTable(),
		validator:     validator,
		transport:     transport,
		signInPath:    "/signin",
		dashboardPath: "/dashboard",
		contextKey:    DefaultContextKey,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	g.logger = normalizeLogger(g.logger, "gate")

	return g
}

// Handler returns the fiber middleware. A validator failure, panics
// included, counts as an invalid token.
func (g *RouteGate) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		class := g.routes.Classify(c.Path())
		if class == RoutePublic {
			return c.Next()
		}

		token := g.transport.TokenFromRequest(c)
		present := token != ""

		var claims AuthClaims
		valid := false
		if present {
			var err error
			claims, err = SafeValidate(g.validator, token)
			valid = err == nil
			if err != nil {
				g.logger.Debug("route gate rejected token", "path", c.Path(), "error", err)
			}
		}

		d := Decide(class, present, valid)

		if d.ClearCookie {
			g.transport.ClearToken(c)
		}

		if d.Action == GateRedirect {
			return c.Redirect(g.targetPath(d.Target), RedirectStatus(c.Method()))
		}

		if valid {
			c.Locals(g.contextKey, claims)
			c.SetUserContext(WithClaimsContext(c.UserContext(), claims))
		}

		return c.Next()
	}
}

func (g *RouteGate) targetPath(t RedirectTarget) string {
	if t == TargetProtectedArea {
		return g.dashboardPath
	}
	return g.signInPath
}

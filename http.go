package auth

import (
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// DefaultCookieName is the cookie carrying the session token
const DefaultCookieName = "token"

// RouteAuthenticator owns the cookie transport. Setting and clearing the
// session cookie goes through SetToken and ClearToken only, so the
// attributes are identical on every path.
type RouteAuthenticator struct {
	cookieName     string
	cookieDuration time.Duration
	secure         bool
	now            func() time.Time
	Logger         Logger
}

func NewHTTPAuthenticator(cfg Config) *RouteAuthenticator {
	cookieDuration := DefaultTokenTTL
	if cfg.GetTokenTTL() > 0 {
		cookieDuration = cfg.GetTokenTTL()
	}

	name := cfg.GetCookieName()
	if name == "" {
		name = DefaultCookieName
	}

	return &RouteAuthenticator{
		cookieName:     name,
		cookieDuration: cookieDuration,
		secure:         cfg.GetCookieSecure(),
		now:            time.Now,
		Logger:         defaultLogger("http"),
	}
}

func (a *RouteAuthenticator) CookieName() string {
	return a.cookieName
}

func (a *RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// SetToken writes the session cookie
func (a *RouteAuthenticator) SetToken(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     a.cookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.cookieDuration.Seconds()),
		Expires:  a.now().Add(a.cookieDuration),
		HTTPOnly: true,
		Secure:   a.secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// ClearToken expires the session cookie with the same attributes it was set with
func (a *RouteAuthenticator) ClearToken(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     a.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  a.now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   a.secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

// TokenFromRequest returns the session token from the cookie, falling
// back to an Authorization bearer header.
func (a *RouteAuthenticator) TokenFromRequest(c *fiber.Ctx) string {
	if token := strings.TrimSpace(c.Cookies(a.cookieName)); token != "" {
		return token
	}
	return BearerToken(c.Get(fiber.HeaderAuthorization))
}

// BearerToken extracts the token from an Authorization header value
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RedirectStatus is 302 for safe methods and 303 otherwise so the
// browser follows up with a GET.
func RedirectStatus(method string) int {
	if method == http.MethodGet || method == http.MethodHead {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteError renders err as JSON. Internal failures are logged with their
// cause and replied with a generic message.
func WriteError(c *fiber.Ctx, logger Logger, err error) error {
	rich := AsError(err)

	if rich.Category == goerrors.CategoryInternal {
		normalizeLogger(logger, "http").Error(
			"request failed",
			"path", c.Path(),
			"error", err,
			"details", print.MaybePrettyJSON(rich.Metadata),
		)
		return c.Status(http.StatusInternalServerError).JSON(ErrorResponse{
			Error: ErrInternal.Message,
			Code:  TextCodeInternal,
		})
	}

	res := ErrorResponse{
		Error: rich.Message,
		Code:  rich.TextCode,
	}
	if len(rich.Metadata) > 0 {
		res.Details = maps.Clone(rich.Metadata)
	}

	return c.Status(StatusCode(rich)).JSON(res)
}

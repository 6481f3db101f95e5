package server

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"

	auth "github.com/goliatone/go-auth-dashboard"
)

//go:embed views
var viewsFS embed.FS

// NewViewEngine returns the django engine over the embedded page templates
func NewViewEngine() (*django.Engine, error) {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		return nil, err
	}
	return django.NewFileSystem(http.FS(sub), ".html"), nil
}

// Pages renders the server side pages. Access control is left to the
// route gate mounted in front of them.
type Pages struct {
	auther    auth.Authenticator
	transport *auth.RouteAuthenticator
	signIn    string
}

func NewPages(auther auth.Authenticator, transport *auth.RouteAuthenticator) *Pages {
	return &Pages{
		auther:    auther,
		transport: transport,
		signIn:    "/signin",
	}
}

// Register mounts the page routes on r
func (p *Pages) Register(r fiber.Router) {
	r.Get("/", p.Home).Name("pages.home")
	r.Get("/signin", p.SignIn).Name("pages.signin")
	r.Get("/signup", p.SignUp).Name("pages.signup")
	r.Get("/dashboard", p.Dashboard).Name("pages.dashboard")
	r.Get("/signout", p.SignOut).Name("pages.signout")
}

// Home only forwards, signed in visitors never reach it
func (p *Pages) Home(c *fiber.Ctx) error {
	return c.Redirect(p.signIn, auth.RedirectStatus(c.Method()))
}

func (p *Pages) SignIn(c *fiber.Ctx) error {
	return c.Render("signin", auth.MergeTemplateData(c, map[string]any{
		"title": "Sign In",
	}))
}

func (p *Pages) SignUp(c *fiber.Ctx) error {
	return c.Render("signup", auth.MergeTemplateData(c, map[string]any{
		"title":               "Sign Up",
		"min_password_length": auth.MinPasswordLength,
		"password_symbols":    auth.PasswordSymbols,
	}))
}

func (p *Pages) Dashboard(c *fiber.Ctx) error {
	return c.Render("dashboard", auth.MergeTemplateData(c, map[string]any{
		"title": "Dashboard",
	}))
}

// SignOut clears the session cookie and sends the visitor to sign in
func (p *Pages) SignOut(c *fiber.Ctx) error {
	p.auther.SignOut(c.UserContext(), p.transport.TokenFromRequest(c))
	p.transport.ClearToken(c)
	return c.Redirect(p.signIn, auth.RedirectStatus(c.Method()))
}

package auth

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterAuthRoutes mounts the JSON auth endpoints on r
func RegisterAuthRoutes(r fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	r.Post(controller.Routes.SignUp, controller.limited(controller.SignUp)...).
		Name("auth.signup")

	r.Post(controller.Routes.SignIn, controller.limited(controller.SignIn)...).
		Name("auth.signin")

	r.Post(controller.Routes.SignOut, controller.SignOut).
		Name("auth.signout")

	r.Get(controller.Routes.Verify, controller.Verify).
		Name("auth.verify")

	return controller
}

type AuthControllerRoutes struct {
	SignUp  string
	SignIn  string
	SignOut string
	Verify  string
}

type AuthController struct {
	Logger    Logger
	Routes    *AuthControllerRoutes
	Auther    Authenticator
	Transport *RouteAuthenticator
	// Limiter guards the credential endpoints when set
	Limiter fiber.Handler
	now     func() time.Time
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithControllerAuthenticator(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithControllerTransport(transport *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Transport = transport
		return c
	}
}

func WithControllerLimiter(limiter fiber.Handler) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Limiter = limiter
		return c
	}
}

func WithControllerClock(now func() time.Time) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if now != nil {
			c.now = now
		}
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Routes: &AuthControllerRoutes{
			SignUp:  "/signup",
			SignIn:  "/signin",
			SignOut: "/signout",
			Verify:  "/verify",
		},
		now: time.Now,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	c.Logger = normalizeLogger(c.Logger, "controller")

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Transport == nil {
		panic("Missing RouteAuthenticator in auth controller...")
	}

	return c
}

func (a *AuthController) limited(h fiber.Handler) []fiber.Handler {
	if a.Limiter == nil {
		return []fiber.Handler{h}
	}
	return []fiber.Handler{a.Limiter, h}
}

// SignUpResponse is the body of a successful sign up
type SignUpResponse struct {
	Message string         `json:"message"`
	User    AccountSummary `json:"user"`
}

// SignInResponse is the body of a successful sign in
type SignInResponse struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Message   string `json:"message"`
}

// SignOutResponse is the body of every sign out
type SignOutResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// VerifyResponse is the body of the verify endpoint
type VerifyResponse struct {
	IsAuthenticated bool              `json:"isAuthenticated"`
	User            map[string]string `json:"user,omitempty"`
}

func (a *AuthController) SignUp(c *fiber.Ctx) error {
	payload := new(SignUpRequest)
	if err := c.BodyParser(payload); err != nil {
		return WriteError(c, a.Logger, Derive(ErrInvalidPayload, err))
	}

	account, err := a.Auther.SignUp(c.UserContext(), *payload)
	if err != nil {
		return WriteError(c, a.Logger, err)
	}

	return c.Status(http.StatusCreated).JSON(SignUpResponse{
		Message: "User created successfully",
		User:    account.Summary(),
	})
}

func (a *AuthController) SignIn(c *fiber.Ctx) error {
	payload := new(SignInRequest)
	if err := c.BodyParser(payload); err != nil {
		return WriteError(c, a.Logger, Derive(ErrInvalidPayload, err))
	}

	res, err := a.Auther.SignIn(c.UserContext(), *payload)
	if err != nil {
		return WriteError(c, a.Logger, err)
	}

	a.Transport.SetToken(c, res.Token)

	return c.Status(http.StatusOK).JSON(SignInResponse{
		Token:     res.Token,
		Email:     res.Account.Email,
		FirstName: res.Account.FirstName,
		LastName:  res.Account.LastName,
		Message:   "Login successful",
	})
}

// SignOut always succeeds and always clears the cookie
func (a *AuthController) SignOut(c *fiber.Ctx) error {
	a.Auther.SignOut(c.UserContext(), a.Transport.TokenFromRequest(c))
	a.Transport.ClearToken(c)

	return c.Status(http.StatusOK).JSON(SignOutResponse{
		Message:   "Signed out successfully",
		Timestamp: a.now().UTC(),
	})
}

func (a *AuthController) Verify(c *fiber.Ctx) error {
	session, err := a.Auther.SessionFromToken(a.Transport.TokenFromRequest(c))
	if err != nil || session == nil {
		return c.Status(http.StatusUnauthorized).JSON(VerifyResponse{IsAuthenticated: false})
	}

	return c.Status(http.StatusOK).JSON(VerifyResponse{
		IsAuthenticated: true,
		User:            session.UserView(),
	})
}

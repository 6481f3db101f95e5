package auth_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-dashboard"
)

func newControllerApp(t *testing.T, f *authFixture, opts ...auth.AuthControllerOption) (*fiber.App, *auth.AuthController) {
	t.Helper()

	transport := auth.NewHTTPAuthenticator(newMockConfig())

	app := fiber.New()
	opts = append([]auth.AuthControllerOption{
		auth.WithControllerAuthenticator(f.auther),
		auth.WithControllerTransport(transport),
		auth.WithControllerClock(func() time.Time { return f.now }),
	}, opts...)
	controller := auth.RegisterAuthRoutes(app.Group("/api/auth"), opts...)

	return app, controller
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestControllerSignUp(t *testing.T) {
	f := newAuthFixture(t)
	app, _ := newControllerApp(t, f)

	f.store.On("FindByEmail", mock.Anything, "john@example.com").Return(nil, auth.ErrAccountNotFound)
	f.store.On("Create", mock.Anything, "john@example.com", mock.AnythingOfType("string"), "John", "Doe").
		Return(&auth.Account{ID: uuid.New(), FirstName: "John", LastName: "Doe", Email: "john@example.com", PasswordHash: "hash"}, nil)

	resp := postJSON(t, app, "/api/auth/signup", validSignUp())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody[map[string]any](t, resp)
	assert.Equal(t, "User created successfully", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "john@example.com", user["email"])
	assert.NotContains(t, user, "passwordHash")
	assert.NotContains(t, user, "password")
}

func TestControllerSignUpErrors(t *testing.T) {
	f := newAuthFixture(t)
	app, _ := newControllerApp(t, f)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, auth.TextCodeInvalidPayload, decodeBody[auth.ErrorResponse](t, resp).Code)

	weak := validSignUp()
	weak.Password = "short1!"
	resp = postJSON(t, app, "/api/auth/signup", weak)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeBody[auth.ErrorResponse](t, resp)
	assert.Equal(t, auth.TextCodeWeakPassword, body.Code)
	assert.Equal(t, "Password must be at least 8 characters long", body.Error)

	f.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestControllerSignInSetsCookie(t *testing.T) {
	f := newAuthFixture(t)
	app, _ := newControllerApp(t, f)

	account := storedAccount(t, "Password123!")
	f.store.On("FindByEmail", mock.Anything, "john@example.com").Return(account, nil)
	f.store.On("UpdateLastLogin", mock.Anything, account.ID, f.now).Return(nil)

	resp := postJSON(t, app, "/api/auth/signin", auth.SignInRequest{Email: "john@example.com", Password: "Password123!"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookie := findCookie(resp, "token")
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	body := decodeBody[auth.SignInResponse](t, resp)
	assert.Equal(t, cookie.Value, body.Token)
	assert.Equal(t, "Login successful", body.Message)
	assert.Equal(t, "John", body.FirstName)

	session, err := f.auther.SessionFromToken(body.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), session.UserID)
}

func TestControllerSignInFailure(t *testing.T) {
	f := newAuthFixture(t)
	app, _ := newControllerApp(t, f)

	f.store.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, auth.ErrAccountNotFound)

	resp := postJSON(t, app, "/api/auth/signin", auth.SignInRequest{Email: "nobody@example.com", Password: "Password123!"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Nil(t, findCookie(resp, "token"))

	body := decodeBody[auth.ErrorResponse](t, resp)
	assert.Equal(t, auth.TextCodeInvalidCredentials, body.Code)
	assert.Equal(t, "Invalid email or password", body.Error)
}

func TestControllerVerifyAndSignOut(t *testing.T) {
	f := newAuthFixture(t)
	app, _ := newControllerApp(t, f)

	token, _, err := f.tokens.Issue(johnIdentity(), 0)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	verified := decodeBody[auth.VerifyResponse](t, resp)
	assert.True(t, verified.IsAuthenticated)
	assert.Equal(t, "john@example.com", verified.User["email"])

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, decodeBody[auth.VerifyResponse](t, resp).IsAuthenticated)

	req = httptest.NewRequest(http.MethodGet, "/api/auth/verify", nil)
	req.Header.Set("Authorization", "Bearer "+token+"x")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// sign out succeeds with or without a session
	for _, withCookie := range []bool{true, false} {
		req = httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
		if withCookie {
			req.AddCookie(&http.Cookie{Name: "token", Value: token})
		}
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		cleared := findCookie(resp, "token")
		require.NotNil(t, cleared)
		assert.Empty(t, cleared.Value)

		out := decodeBody[auth.SignOutResponse](t, resp)
		assert.Equal(t, "Signed out successfully", out.Message)
		assert.True(t, out.Timestamp.Equal(f.now))
	}

	assert.Equal(t, []auth.AuthEventType{auth.AuthEventSignOut, auth.AuthEventSignOut}, f.sink.Types())
}

func TestControllerLimiterGuardsCredentialRoutes(t *testing.T) {
	f := newAuthFixture(t)

	calls := 0
	limiter := func(c *fiber.Ctx) error {
		calls++
		return auth.WriteError(c, nil, auth.ErrRateLimited)
	}
	app, _ := newControllerApp(t, f, auth.WithControllerLimiter(limiter))

	resp := postJSON(t, app, "/api/auth/signin", auth.SignInRequest{Email: "john@example.com", Password: "x"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, auth.TextCodeRateLimited, decodeBody[auth.ErrorResponse](t, resp).Code)

	resp = postJSON(t, app, "/api/auth/signup", validSignUp())
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "sign out is never limited")

	assert.Equal(t, 2, calls)
	f.store.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}

func TestNewAuthControllerRequiresDependencies(t *testing.T) {
	assert.Panics(t, func() { auth.NewAuthController() })

	f := newAuthFixture(t)
	assert.Panics(t, func() {
		auth.NewAuthController(auth.WithControllerAuthenticator(f.auther))
	})
}

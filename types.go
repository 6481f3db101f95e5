package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Logger is the logging contract used across the package. hclog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes embedded in a session token
type Identity interface {
	ID() string
	Email() string
	FirstName() string
	LastName() string
}

// Authenticator holds the session use cases
type Authenticator interface {
	SignUp(ctx context.Context, req SignUpRequest) (*Account, error)
	SignIn(ctx context.Context, req SignInRequest) (*SignInResult, error)
	SignOut(ctx context.Context, token string) *SessionObject
	SessionFromToken(token string) (*SessionObject, error)
}

// AccountStore persists accounts. Implementations must enforce email
// uniqueness themselves and report violations as ErrDuplicateEmail.
type AccountStore interface {
	Create(ctx context.Context, email, passwordHash, firstName, lastName string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Account, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetKeyID() string
	GetRetiredSecrets() map[string]string
	GetTokenTTL() time.Duration
	GetIssuer() string
	GetAudience() []string
	GetCookieName() string
	GetCookieSecure() bool
	GetBcryptCost() int
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

func defaultLogger(name ...string) Logger {
	n := "auth"
	if len(name) > 0 && name[0] != "" {
		n = "auth." + name[0]
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:  n,
		Level: hclog.Info,
	})
}

func normalizeLogger(l Logger, name string) Logger {
	if l == nil {
		return defaultLogger(name)
	}
	return l
}

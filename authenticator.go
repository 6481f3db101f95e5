package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultStoreTimeout bounds every store call made by the use cases
const DefaultStoreTimeout = 5 * time.Second

// SignInResult is returned by a successful sign in
type SignInResult struct {
	Token     string
	ExpiresAt time.Time
	Account   *Account
}

type Auther struct {
	store        AccountStore
	tokenService TokenService
	hasher       PasswordAuthenticator
	logger       Logger
	eventSink    EventSink
	storeTimeout time.Duration
	now          func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(store AccountStore, tokenService TokenService) *Auther {
	return &Auther{
		store:        store,
		tokenService: tokenService,
		hasher:       NewBcryptHasher(0),
		logger:       defaultLogger("authenticator"),
		eventSink:    noopEventSink{},
		storeTimeout: DefaultStoreTimeout,
		now:          time.Now,
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger, "authenticator")
	return s
}

// WithEventSink configures an EventSink for emitting auth events.
func (s *Auther) WithEventSink(sink EventSink) *Auther {
	s.eventSink = normalizeEventSink(sink)
	return s
}

func (s *Auther) WithPasswordHasher(hasher PasswordAuthenticator) *Auther {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

func (s *Auther) WithStoreTimeout(d time.Duration) *Auther {
	if d > 0 {
		s.storeTimeout = d
	}
	return s
}

func (s *Auther) WithClock(now func() time.Time) *Auther {
	if now != nil {
		s.now = now
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// SignUp validates the request and creates the account.
func (s *Auther) SignUp(ctx context.Context, req SignUpRequest) (*Account, error) {
	req = req.Normalize()

	if err := req.Validate(); err != nil {
		s.emit(ctx, AuthEvent{EventType: AuthEventSignUpFailure, Email: req.Email, Reason: textCode(err)})
		return nil, err
	}

	// fast path only, the store owns uniqueness
	_, err := s.withStore(ctx, func(ctx context.Context) (*Account, error) {
		return s.store.FindByEmail(ctx, req.Email)
	})
	switch {
	case err == nil:
		s.emit(ctx, AuthEvent{EventType: AuthEventSignUpFailure, Email: req.Email, Reason: TextCodeDuplicateEmail})
		return nil, ErrDuplicateEmail
	case !errors.Is(err, ErrAccountNotFound):
		s.logger.Error("SignUp account lookup failed", "error", err)
		return nil, internalError(err)
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("SignUp failed to hash password", "error", err)
		return nil, internalError(err)
	}

	account, err := s.withStore(ctx, func(ctx context.Context) (*Account, error) {
		return s.store.Create(ctx, req.Email, hash, req.FirstName, req.LastName)
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			s.emit(ctx, AuthEvent{EventType: AuthEventSignUpFailure, Email: req.Email, Reason: TextCodeDuplicateEmail})
			return nil, ErrDuplicateEmail
		}
		s.logger.Error("SignUp failed to create account", "error", err)
		return nil, internalError(err)
	}

	s.emit(ctx, AuthEvent{
		EventType: AuthEventSignUpSuccess,
		UserID:    account.ID.String(),
		Email:     account.Email,
	})

	return account, nil
}

// SignIn verifies the credentials and issues a session token.
// Unknown email and wrong password are indistinguishable to the caller.
func (s *Auther) SignIn(ctx context.Context, req SignInRequest) (*SignInResult, error) {
	req = req.Normalize()

	if err := req.Validate(); err != nil {
		s.emit(ctx, AuthEvent{EventType: AuthEventSignInFailure, Email: req.Email, Reason: textCode(err)})
		return nil, err
	}

	account, err := s.withStore(ctx, func(ctx context.Context) (*Account, error) {
		return s.store.FindByEmail(ctx, req.Email)
	})
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			// spend the same bcrypt time as a real comparison
			_ = s.hasher.ComparePasswordAndHash(req.Password, s.dummyPasswordHash())
			s.emit(ctx, AuthEvent{EventType: AuthEventSignInFailure, Email: req.Email, Reason: "unknown_email"})
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("SignIn account lookup failed", "error", err)
		return nil, internalError(err)
	}

	if err := s.hasher.ComparePasswordAndHash(req.Password, account.PasswordHash); err != nil {
		if !errors.Is(err, ErrMismatchedHashAndPassword) {
			s.logger.Error("SignIn password comparison failed", "account", account.ID, "error", err)
		}
		s.emit(ctx, AuthEvent{
			EventType: AuthEventSignInFailure,
			UserID:    account.ID.String(),
			Email:     account.Email,
			Reason:    "bad_password",
		})
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokenService.Issue(account.Identity(), 0)
	if err != nil {
		s.logger.Error("SignIn failed to issue token", "error", err)
		return nil, internalError(err)
	}

	loginAt := s.now().UTC()
	if _, err := s.withStore(ctx, func(ctx context.Context) (*Account, error) {
		return nil, s.store.UpdateLastLogin(ctx, account.ID, loginAt)
	}); err != nil {
		// the session is valid regardless of the bookkeeping write
		s.logger.Warn("SignIn failed to record last login", "account", account.ID, "error", err)
	} else {
		account.LastLogin = &loginAt
	}

	s.emit(ctx, AuthEvent{
		EventType: AuthEventSignInSuccess,
		UserID:    account.ID.String(),
		Email:     account.Email,
	})

	return &SignInResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   account,
	}, nil
}

// SignOut never fails. Tokens are stateless so nothing is revoked; the
// returned session is nil when token was missing or invalid.
func (s *Auther) SignOut(ctx context.Context, token string) *SessionObject {
	var session *SessionObject
	if token != "" {
		if claims, err := SafeValidate(s.tokenService, token); err == nil {
			session = SessionFromClaims(claims)
		}
	}

	event := AuthEvent{EventType: AuthEventSignOut}
	if session != nil {
		event.UserID = session.UserID
		event.Email = session.Email
	}
	s.emit(ctx, event)

	return session
}

// SessionFromToken validates token and returns the session it carries
func (s *Auther) SessionFromToken(token string) (*SessionObject, error) {
	if token == "" {
		return nil, ErrUnableToFindSession
	}

	claims, err := SafeValidate(s.tokenService, token)
	if err != nil {
		return nil, err
	}

	return SessionFromClaims(claims), nil
}

func (s *Auther) withStore(ctx context.Context, fn func(context.Context) (*Account, error)) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return fn(ctx)
}

func (s *Auther) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.HashPassword("dummy-password-for-timing")
		if err != nil {
			s.logger.Warn("failed to prepare dummy hash", "error", err)
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func (s *Auther) emit(ctx context.Context, event AuthEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.eventSink.Record(ctx, event); err != nil {
		s.logger.Warn("auth event sink failed", "event", event.EventType, "error", err)
	}
}

func internalError(err error) *goerrors.Error {
	return Derive(ErrInternal, err)
}

func textCode(err error) string {
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode
	}
	return ""
}

package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the session lifetime when none is configured
const DefaultTokenTTL = 24 * time.Hour

// DefaultKeyID is the kid header stamped on tokens when none is configured
const DefaultKeyID = "primary"

// TokenService issues and validates session tokens
type TokenService interface {
	TokenValidator
	Issue(identity Identity, ttl time.Duration) (string, time.Time, error)
	SignClaims(claims *JWTClaims) (string, error)
}

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	keyID      string
	retired    map[string][]byte
	ttl        time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	keyfunc    jwt.Keyfunc
	now        func() time.Time
	logger     Logger
}

// TokenServiceOption configures a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithTokenIssuer sets the iss claim, validated on parse
func WithTokenIssuer(issuer string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.issuer = issuer
	}
}

// WithTokenAudience sets the aud claim, validated on parse
func WithTokenAudience(audience ...string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.audience = jwt.ClaimStrings(audience)
	}
}

// WithRetiredSecrets keeps accepting tokens signed with older secrets.
// Keys are the kid the token was stamped with.
func WithRetiredSecrets(secrets map[string]string) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		for kid, secret := range secrets {
			if kid == "" || secret == "" {
				continue
			}
			ts.retired[kid] = []byte(secret)
		}
	}
}

// WithTokenClock overrides the clock used for iat/exp
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.logger = logger
	}
}

// NewTokenService creates a new TokenService instance. It fails when no
// signing key is given, there is no fallback secret.
func NewTokenService(signingKey []byte, keyID string, ttl time.Duration, opts ...TokenServiceOption) (*TokenServiceImpl, error) {
	if len(signingKey) == 0 {
		return nil, ErrMissingSigningKey
	}

	if keyID == "" {
		keyID = DefaultKeyID
	}

	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	ts := &TokenServiceImpl{
		signingKey: signingKey,
		keyID:      keyID,
		retired:    map[string][]byte{},
		ttl:        ttl,
		now:        time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	ts.logger = normalizeLogger(ts.logger, "tokens")

	given := map[string]keyfunc.GivenKey{}
	for kid, secret := range ts.retired {
		given[kid] = keyfunc.NewGivenCustom(secret, keyfunc.GivenKeyOptions{
			Algorithm: jwt.SigningMethodHS256.Alg(),
		})
	}
	given[ts.keyID] = keyfunc.NewGivenCustom(ts.signingKey, keyfunc.GivenKeyOptions{
		Algorithm: jwt.SigningMethodHS256.Alg(),
	})
	ts.keyfunc = keyfunc.NewGiven(given).Keyfunc

	return ts, nil
}

// NewTokenServiceFromConfig builds the token service from auth Config
func NewTokenServiceFromConfig(cfg Config, opts ...TokenServiceOption) (*TokenServiceImpl, error) {
	base := []TokenServiceOption{
		WithTokenIssuer(cfg.GetIssuer()),
		WithTokenAudience(cfg.GetAudience()...),
		WithRetiredSecrets(cfg.GetRetiredSecrets()),
	}
	return NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetKeyID(),
		cfg.GetTokenTTL(),
		append(base, opts...)...,
	)
}

// TTL returns the default token lifetime
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Issue mints a token for identity. A non positive ttl uses the default.
// It returns the signed token and its expiration time.
func (ts *TokenServiceImpl) Issue(identity Identity, ttl time.Duration) (string, time.Time, error) {
	if identity == nil {
		return "", time.Time{}, deriveMessage(ErrInternal, nil, "identity must not be nil")
	}

	if ttl <= 0 {
		ttl = ts.ttl
	}

	now := ts.now()
	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(iat.Add(ttl))

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.audience,
			IssuedAt:  iat,
			ExpiresAt: exp,
		},
		UID:          identity.ID(),
		EmailAddress: identity.Email(),
		GivenName:    identity.FirstName(),
		FamilyName:   identity.LastName(),
	}

	token, err := ts.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, exp.Time, nil
}

// SignClaims signs claims with the active key and stamps its kid
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", deriveMessage(ErrInternal, nil, "claims must not be nil")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = ts.keyID

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", deriveMessage(ErrInternal, err, "failed to sign JWT")
	}

	return signed, nil
}

// Validate parses and validates a token string, returning structured claims.
// Failures are classified as malformed, bad signature or expired.
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenMalformed
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, ts.keyfunc, parserOptions...)
	if err != nil {
		ts.logger.Debug("token rejected", "error", err)
		return nil, classifyTokenError(err)
	}

	if !token.Valid || claims.UserID() == "" {
		return nil, ErrTokenMalformed
	}

	if !ts.acceptsAudience(claims.Audience) {
		ts.logger.Debug("token rejected", "error", jwt.ErrTokenInvalidAudience, "aud", claims.Audience)
		return nil, Derive(ErrTokenMalformed, jwt.ErrTokenInvalidAudience)
	}

	return claims, nil
}

// acceptsAudience reports whether aud names at least one configured
// audience
func (ts *TokenServiceImpl) acceptsAudience(aud jwt.ClaimStrings) bool {
	if len(ts.audience) == 0 {
		return true
	}
	return slices.ContainsFunc(aud, func(a string) bool {
		return slices.Contains(ts.audience, a)
	})
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return Derive(ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return Derive(ErrTokenSignatureInvalid, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return Derive(ErrTokenExpired, err)
	}
	return Derive(ErrTokenMalformed, err)
}

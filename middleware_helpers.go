package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-auth-dashboard/middleware/jwtware"
)

// ValidationListener aliases the jwtware listener so consumers can use auth helpers directly.
type ValidationListener = jwtware.ValidationListener

// ContextEnricherAdapter stores jwtware claims in the standard context
// when they carry the full AuthClaims surface.
func ContextEnricherAdapter(c context.Context, claims jwtware.AuthClaims) context.Context {
	authClaims, ok := claims.(AuthClaims)
	if !ok {
		return c
	}
	return WithClaimsContext(c, authClaims)
}

// JWTValidator adapts a TokenValidator to the jwtware contract. Panics
// raised while validating count as malformed tokens.
func JWTValidator(validator TokenValidator) jwtware.TokenValidator {
	return jwtware.TokenValidatorFunc(func(token string) (jwtware.AuthClaims, error) {
		claims, err := SafeValidate(validator, token)
		if err != nil {
			return nil, err
		}
		return claims, nil
	})
}

// ProtectedAPI guards JSON endpoints. It reads the session cookie first and
// the bearer header second, answering 401 with the standard error body.
func ProtectedAPI(validator TokenValidator, transport *RouteAuthenticator, listeners ...ValidationListener) fiber.Handler {
	cfg := jwtware.Config{
		TokenValidator:  JWTValidator(validator),
		TokenLookup:     "cookie:" + transport.CookieName() + ",header:" + fiber.HeaderAuthorization,
		ContextKey:      DefaultContextKey,
		ContextEnricher: ContextEnricherAdapter,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var rich *goerrors.Error
			if !goerrors.As(err, &rich) {
				err = Derive(ErrInvalidToken, err)
			}
			return WriteError(c, transport.Logger, err)
		},
	}
	RegisterValidationListeners(&cfg, listeners...)
	return jwtware.New(cfg)
}

// RegisterValidationListeners appends listeners to a jwtware.Config in a safe, reusable way.
func RegisterValidationListeners(cfg *jwtware.Config, listeners ...ValidationListener) {
	if cfg == nil || len(listeners) == 0 {
		return
	}
	cfg.ValidationListeners = append(cfg.ValidationListeners, listeners...)
}

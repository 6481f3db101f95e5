package auth

// TokenValidator validates tokens and extracts claims without tying callers
// to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// TokenValidatorFunc adapts a function into a TokenValidator.
type TokenValidatorFunc func(tokenString string) (AuthClaims, error)

// Validate satisfies the TokenValidator interface.
func (f TokenValidatorFunc) Validate(tokenString string) (AuthClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(tokenString)
}

// SafeValidate runs validator and reports any panic as a malformed token
func SafeValidate(validator TokenValidator, tokenString string) (claims AuthClaims, err error) {
	if validator == nil {
		return nil, ErrTokenMalformed
	}

	defer func() {
		if r := recover(); r != nil {
			claims = nil
			err = Derive(ErrTokenMalformed, nil).WithMetadata(map[string]any{"panic": r})
		}
	}()

	return validator.Validate(tokenString)
}

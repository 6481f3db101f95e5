package auth

import (
	"errors"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

// Text codes sent to clients in the "code" field of error bodies
const (
	TextCodeInvalidPayload     = "INVALID_PAYLOAD"
	TextCodeMissingField       = "MISSING_FIELD"
	TextCodeInvalidEmailFormat = "INVALID_EMAIL_FORMAT"
	TextCodeWeakPassword       = "WEAK_PASSWORD"
	TextCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeInvalidToken       = "INVALID_TOKEN"
	TextCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
	TextCodeRateLimited        = "RATE_LIMITED"
	TextCodeInternal           = "INTERNAL_ERROR"
	TextCodeMissingSigningKey  = "MISSING_SIGNING_KEY"
)

// MetadataReason is the metadata key carrying the rule or token failure
// that produced an error. It is sent to clients as details.reason.
const MetadataReason = "reason"

var (
	ErrInvalidPayload = goerrors.New("invalid request payload", goerrors.CategoryValidation).
				WithTextCode(TextCodeInvalidPayload).
				WithCode(goerrors.CodeBadRequest)

	ErrMissingField = goerrors.New("All fields are required", goerrors.CategoryValidation).
			WithTextCode(TextCodeMissingField).
			WithCode(goerrors.CodeBadRequest)

	ErrInvalidEmailFormat = goerrors.New("Invalid email format", goerrors.CategoryValidation).
				WithTextCode(TextCodeInvalidEmailFormat).
				WithCode(goerrors.CodeBadRequest)

	ErrWeakPassword = goerrors.New("Password does not meet requirements", goerrors.CategoryValidation).
			WithTextCode(TextCodeWeakPassword).
			WithCode(goerrors.CodeBadRequest)

	// ErrDuplicateEmail answers 400 rather than 409, clients treat it as a
	// form error.
	ErrDuplicateEmail = goerrors.New("Email already exists", goerrors.CategoryConflict).
				WithTextCode(TextCodeDuplicateEmail).
				WithCode(goerrors.CodeBadRequest)

	ErrInvalidCredentials = goerrors.New("Invalid email or password", goerrors.CategoryAuth).
				WithTextCode(TextCodeInvalidCredentials).
				WithCode(goerrors.CodeUnauthorized)

	ErrAccountNotFound = goerrors.New("account not found", goerrors.CategoryNotFound).
				WithTextCode(TextCodeAccountNotFound).
				WithCode(goerrors.CodeNotFound)

	ErrRateLimited = goerrors.New("Too many requests, please try again later", goerrors.CategoryRateLimit).
			WithTextCode(TextCodeRateLimited).
			WithCode(goerrors.CodeTooManyRequests)

	ErrInternal = goerrors.New("Internal server error", goerrors.CategoryInternal).
			WithTextCode(TextCodeInternal).
			WithCode(goerrors.CodeInternal)

	ErrMissingSigningKey = goerrors.New("token signing key is not configured", goerrors.CategoryInternal).
				WithTextCode(TextCodeMissingSigningKey)
)

// TokenFailureReason tells why a token was rejected
type TokenFailureReason string

const (
	TokenMalformed    TokenFailureReason = "malformed"
	TokenBadSignature TokenFailureReason = "bad_signature"
	TokenExpired      TokenFailureReason = "expired"
)

// ErrInvalidToken is the parent of every token failure, errors.Is matches it
// for all of them.
var ErrInvalidToken = goerrors.New("Invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeUnauthorized)

var (
	ErrTokenMalformed        = tokenError("token is malformed", TokenMalformed)
	ErrTokenSignatureInvalid = tokenError("token signature is invalid", TokenBadSignature)
	ErrTokenExpired          = tokenError("token is expired", TokenExpired)
)

func tokenError(message string, reason TokenFailureReason) *goerrors.Error {
	return goerrors.Wrap(ErrInvalidToken, goerrors.CategoryAuth, message).
		WithTextCode(TextCodeInvalidToken).
		WithCode(goerrors.CodeUnauthorized).
		WithMetadata(map[string]any{MetadataReason: string(reason)})
}

// ErrMismatchedHashAndPassword is returned when a password does not match its hash
var ErrMismatchedHashAndPassword = errors.New("password does not match hash")

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password can not be empty")

// ErrUnableToFindSession is the error when our request has no token
var ErrUnableToFindSession = errors.New("unable to find session")

// Derive returns a copy of sentinel that callers may annotate with
// WithMetadata. The sentinel itself is never mutated, errors.Is matches
// both the sentinel and cause.
func Derive(sentinel *goerrors.Error, cause error) *goerrors.Error {
	e := sentinel.Clone()
	if cause != nil {
		e.Source = goerrors.Join(sentinel, cause)
	} else {
		e.Source = sentinel
	}
	return e
}

func deriveMessage(sentinel *goerrors.Error, cause error, message string) *goerrors.Error {
	e := Derive(sentinel, cause)
	e.Message = message
	return e
}

// AsError returns err as a rich error. Anything that is not already
// a *goerrors.Error is treated as an internal failure.
func AsError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich
	}
	return Derive(ErrInternal, err)
}

// StatusCode returns the HTTP status for e
func StatusCode(e *goerrors.Error) int {
	if e == nil {
		return http.StatusInternalServerError
	}
	if e.Code != 0 {
		return e.Code
	}
	switch e.Category {
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict:
		return http.StatusBadRequest
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// ErrorReason returns the reason recorded on the nearest rich error in
// the chain of err, or "".
func ErrorReason(err error) string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return ""
	}
	reason, _ := rich.Metadata[MetadataReason].(string)
	return reason
}

// TokenFailure returns the reason a token was rejected, if err is a token error
func TokenFailure(err error) (TokenFailureReason, bool) {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != TextCodeInvalidToken {
		return "", false
	}
	reason, _ := rich.Metadata[MetadataReason].(string)
	if reason == "" {
		return "", false
	}
	return TokenFailureReason(reason), true
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	reason, ok := TokenFailure(err)
	return ok && reason == TokenExpired
}

// IsMalformedError will check for malformed tokens
func IsMalformedError(err error) bool {
	reason, ok := TokenFailure(err)
	return ok && reason == TokenMalformed
}

package auth

import (
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// SignUpRequest is the sign up payload
type SignUpRequest struct {
	FirstName string `json:"firstName" form:"firstName"`
	LastName  string `json:"lastName" form:"lastName"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
}

// Normalize trims the free text fields. Passwords are kept as sent.
func (r SignUpRequest) Normalize() SignUpRequest {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	return r
}

// Validate checks required fields, then the email format, then the
// password policy. The first failing stage is reported.
func (r SignUpRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required),
		validation.Field(&r.LastName, validation.Required),
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
	if err != nil {
		return missingFieldError(err)
	}

	if !IsValidEmail(r.Email) {
		return ErrInvalidEmailFormat
	}

	return ValidatePasswordPolicy(r.Password)
}

// SignInRequest is the sign in payload
type SignInRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r SignInRequest) Normalize() SignInRequest {
	r.Email = strings.TrimSpace(r.Email)
	return r
}

// Validate only checks presence, credentials are checked by SignIn
func (r SignInRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
	if err != nil {
		e := missingFieldError(err)
		e.Message = "Email and password are required"
		return e
	}
	return nil
}

func missingFieldError(err error) *goerrors.Error {
	fields := []string{}
	if verrs, ok := err.(validation.Errors); ok {
		for name := range verrs {
			fields = append(fields, name)
		}
	}
	slices.Sort(fields)
	return Derive(ErrMissingField, err).
		WithMetadata(map[string]any{"fields": fields})
}

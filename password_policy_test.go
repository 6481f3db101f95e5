package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-auth-dashboard"
)

func TestValidatePasswordPolicy(t *testing.T) {
	tests := []struct {
		password string
		reason   string
		message  string
	}{
		{password: "Password123!"},
		{password: "", reason: "length", message: "Password must be at least 8 characters long"},
		{password: "short1!", reason: "length", message: "Password must be at least 8 characters long"},
		{password: "longenough1!", reason: "uppercase", message: "Password must contain at least 1 uppercase letter"},
		{password: "LONGENOUGH1!", reason: "lowercase", message: "Password must contain at least 1 lowercase letter"},
		{password: "LongEnough!", reason: "digit", message: "Password must contain at least 1 number"},
		{password: "LongEnough1", reason: "symbol", message: "Password must contain at least 1 special character (!@#$%^&*)"},
		{password: "LongEnough1?", reason: "symbol"},
		{password: "Sh0rt!", reason: "length"},
		{password: "Password123!~", reason: "charset", message: "Password may only contain letters, numbers and !@#$%^&*"},
		{password: "Pass word123!", reason: "charset"},
		{password: "Pässword123!", reason: "charset"},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := auth.ValidatePasswordPolicy(tt.password)
			if tt.reason == "" {
				assert.NoError(t, err)
				return
			}

			assert.ErrorIs(t, err, auth.ErrWeakPassword)
			assert.Equal(t, tt.reason, auth.ErrorReason(err))
			if tt.message != "" {
				assert.Equal(t, tt.message, auth.AsError(err).Message)
			}
		})
	}
}

func TestIsValidEmail(t *testing.T) {
	valid := []string{"john@example.com", "john.doe+tag@mail.example.co", "a_b-c@sub-domain.io"}
	invalid := []string{"", "john", "john@", "@example.com", "john@example", "john@example.c", "john doe@example.com"}

	for _, e := range valid {
		assert.True(t, auth.IsValidEmail(e), e)
	}
	for _, e := range invalid {
		assert.False(t, auth.IsValidEmail(e), e)
	}
}

func TestSignUpRequestValidate(t *testing.T) {
	req := auth.SignUpRequest{FirstName: " ", LastName: "Doe", Password: "x"}.Normalize()

	err := req.Validate()
	assert.ErrorIs(t, err, auth.ErrMissingField)
	assert.Equal(t, []string{"email", "firstName"}, auth.AsError(err).Metadata["fields"])

	ok := auth.SignUpRequest{FirstName: "John", LastName: "Doe", Email: " john@example.com ", Password: "Password123!"}.Normalize()
	assert.Equal(t, "john@example.com", ok.Email)
	assert.NoError(t, ok.Validate())
}

func TestSignInRequestValidate(t *testing.T) {
	assert.NoError(t, auth.SignInRequest{Email: "john@example.com", Password: "x"}.Validate())
	assert.ErrorIs(t, auth.SignInRequest{Password: "x"}.Validate(), auth.ErrMissingField)
	assert.ErrorIs(t, auth.SignInRequest{Email: "john@example.com"}.Validate(), auth.ErrMissingField)
}

package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-auth-dashboard"
)

func TestJWTClaimsAccessors(t *testing.T) {
	iat := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	claims := &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(24 * time.Hour)),
		},
		EmailAddress: "john@example.com",
		GivenName:    "John",
		FamilyName:   "Doe",
	}

	assert.Equal(t, "user-1", claims.Subject())
	assert.Equal(t, "user-1", claims.UserID(), "falls back to the subject")
	assert.Equal(t, "john@example.com", claims.Email())
	assert.Equal(t, "John", claims.FirstName())
	assert.Equal(t, "Doe", claims.LastName())
	assert.True(t, claims.IssuedAt().Equal(iat))
	assert.True(t, claims.Expires().Equal(iat.Add(24*time.Hour)))

	claims.UID = "user-2"
	assert.Equal(t, "user-2", claims.UserID())
}

func TestJWTClaimsZeroTimes(t *testing.T) {
	claims := &auth.JWTClaims{}
	assert.True(t, claims.Expires().IsZero())
	assert.True(t, claims.IssuedAt().IsZero())
}

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/goliatone/go-auth-dashboard"
)

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
			wantErr:  false,
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true, // bcrypt can hash empty strings!
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := auth.HashPasswordWithCost(tt.password, bcrypt.MinCost)
			if tt.wantErr {
				assert.ErrorIs(t, err, auth.ErrNoEmptyString)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.NotContains(t, hash, tt.password)
		})
	}
}

func TestHashPasswordSalted(t *testing.T) {
	a, err := auth.HashPasswordWithCost("Password123!", bcrypt.MinCost)
	require.NoError(t, err)
	b, err := auth.HashPasswordWithCost("Password123!", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashPasswordCost(t *testing.T) {
	hash, err := auth.HashPasswordWithCost("Password123!", bcrypt.MinCost+1)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)

	hash, err = auth.HashPasswordWithCost("Password123!", 99)
	require.NoError(t, err)
	cost, err = bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultBcryptCost, cost, "out of range cost falls back to the default")
}

func TestComparePasswordAndHash(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.HashPassword("Password123!")
	require.NoError(t, err)

	assert.NoError(t, hasher.ComparePasswordAndHash("Password123!", hash))
	assert.ErrorIs(t, hasher.ComparePasswordAndHash("password123!", hash), auth.ErrMismatchedHashAndPassword)

	err = auth.ComparePasswordAndHash("Password123!", "not-a-hash")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, auth.ErrMismatchedHashAndPassword)
}

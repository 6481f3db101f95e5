// Package storetest runs the same behaviour checks against every
// auth.AccountStore implementation.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-dashboard"
)

// Factory returns an empty store for a single test
type Factory func(t *testing.T) auth.AccountStore

// Run exercises store behaviour shared by all implementations
func Run(t *testing.T, newStore Factory) {
	t.Run("create and find", func(t *testing.T) {
		testCreateAndFind(t, newStore(t))
	})
	t.Run("duplicate email", func(t *testing.T) {
		testDuplicateEmail(t, newStore(t))
	})
	t.Run("concurrent duplicate email", func(t *testing.T) {
		testConcurrentDuplicate(t, newStore(t))
	})
	t.Run("email match is exact", func(t *testing.T) {
		testEmailExact(t, newStore(t))
	})
	t.Run("not found", func(t *testing.T) {
		testNotFound(t, newStore(t))
	})
	t.Run("update last login", func(t *testing.T) {
		testUpdateLastLogin(t, newStore(t))
	})
}

func testCreateAndFind(t *testing.T, s auth.AccountStore) {
	ctx := context.Background()

	created, err := s.Create(ctx, "john@example.com", "hash", "John", "Doe")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.Nil(t, created.LastLogin)

	byEmail, err := s.FindByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)
	assert.Equal(t, "John", byEmail.FirstName)
	assert.Equal(t, "Doe", byEmail.LastName)

	byID, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "john@example.com", byID.Email)
	assert.WithinDuration(t, created.CreatedAt, byID.CreatedAt, time.Second)
}

func testDuplicateEmail(t *testing.T, s auth.AccountStore) {
	ctx := context.Background()

	_, err := s.Create(ctx, "jane@example.com", "hash", "Jane", "Doe")
	require.NoError(t, err)

	_, err = s.Create(ctx, "jane@example.com", "other", "Janet", "Doe")
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrDuplicateEmail), "got %v", err)
}

func testConcurrentDuplicate(t *testing.T, s auth.AccountStore) {
	ctx := context.Background()
	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
		others    []error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Create(ctx, "race@example.com", fmt.Sprintf("hash-%d", i), "Race", "Condition")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, auth.ErrDuplicateEmail):
				conflicts++
			default:
				others = append(others, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, conflicts)
}

func testEmailExact(t *testing.T, s auth.AccountStore) {
	ctx := context.Background()

	_, err := s.Create(ctx, "Case@Example.com", "hash", "Case", "Sensitive")
	require.NoError(t, err)

	_, err = s.FindByEmail(ctx, "case@example.com")
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
}

func testNotFound(t *testing.T, s auth.AccountStore) {
	ctx := context.Background()

	_, err := s.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)

	_, err = s.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)

	err = s.UpdateLastLogin(ctx, uuid.New(), time.Now())
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
}

func testUpdateLastLogin(t *testing.T, s auth.AccountStore) {
	ctx := context.Background()

	created, err := s.Create(ctx, "login@example.com", "hash", "Log", "In")
	require.NoError(t, err)

	at := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	require.NoError(t, s.UpdateLastLogin(ctx, created.ID, at))

	found, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLogin)
	assert.True(t, at.Equal(*found.LastLogin), "want %s got %s", at, found.LastLogin)
}

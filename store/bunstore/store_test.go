package bunstore_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-dashboard"
	"github.com/goliatone/go-auth-dashboard/store/bunstore"
	"github.com/goliatone/go-auth-dashboard/store/storetest"
)

func newStore(t *testing.T) auth.AccountStore {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := bunstore.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestBunStore(t *testing.T) {
	storetest.Run(t, newStore)
}

func TestBunStoreMigrateIsIdempotent(t *testing.T) {
	s := newStore(t).(*bunstore.Store)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestBunStoreAccountsRepository(t *testing.T) {
	ctx := context.Background()
	s := newStore(t).(*bunstore.Store)

	created, err := s.Create(ctx, "repo@example.com", "hash", "Repo", "Sitory")
	require.NoError(t, err)

	byEmail, err := s.Accounts().GetByIdentifier(ctx, "repo@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := s.Accounts().GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "repo@example.com", byID.Email)

	_, err = s.Accounts().GetByIdentifier(ctx, "missing@example.com")
	assert.True(t, repository.IsRecordNotFound(err), "got %v", err)

	_, err = s.FindByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
}

package pgstore_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-auth-dashboard"
	"github.com/goliatone/go-auth-dashboard/store/pgstore"
	"github.com/goliatone/go-auth-dashboard/store/storetest"
)

// Set AUTHDASH_TEST_POSTGRES_DSN to a scratch database to run these tests.
// The accounts table is truncated before every case.
func TestPgStore(t *testing.T) {
	dsn := os.Getenv("AUTHDASH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("AUTHDASH_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()

	s, err := pgstore.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(ctx))

	storetest.Run(t, func(t *testing.T) auth.AccountStore {
		_, err := s.Pool().Exec(ctx, "TRUNCATE accounts")
		require.NoError(t, err)
		return s
	})
}

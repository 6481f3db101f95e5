package bunstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolationUsesDriverCode(t *testing.T) {
	ctx := context.Background()

	s, err := Open("file:unique_violation?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))

	_, err = s.Create(ctx, "dup@example.com", "hash", "Dup", "Licate")
	require.NoError(t, err)

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO accounts (id, first_name, last_name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		"00000000-0000-0000-0000-000000000001", "Dup", "Licate", "dup@example.com", "hash", "2024-01-01 00:00:00",
	)
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err), "driver error: %v", err)
	assert.True(t, isUniqueViolation(fmt.Errorf("insert account: %w", err)))

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO accounts (id, first_name, last_name, email, password_hash, created_at) VALUES (?, NULL, ?, ?, ?, ?)",
		"00000000-0000-0000-0000-000000000002", "Null", "null@example.com", "hash", "2024-01-01 00:00:00",
	)
	require.Error(t, err)
	assert.False(t, isUniqueViolation(err), "not null is a different constraint")

	assert.False(t, isUniqueViolation(errors.New("UNIQUE constraint failed: accounts.email")))
}

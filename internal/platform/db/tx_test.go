package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestIsSerializationFailure(t *testing.T) {
	conflict := &pgconn.PgError{Code: "40001", Message: "could not serialize access due to concurrent update"}
	require.True(t, IsSerializationFailure(conflict))
	require.True(t, IsSerializationFailure(fmt.Errorf("platform/db: commit tx: %w", conflict)))
	require.False(t, IsSerializationFailure(&pgconn.PgError{Code: "23505"}))
	require.False(t, IsSerializationFailure(errors.New("boom")))
	require.False(t, IsSerializationFailure(nil))
}

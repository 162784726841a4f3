package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationNamesOrdered(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	require.Equal(t, "001_schema.sql", names[0])
	require.Contains(t, names, "002_user_connections.sql")
	require.IsIncreasing(t, names)
}

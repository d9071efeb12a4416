package db

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteDSNEnablesForeignKeys(t *testing.T) {
	assert.Equal(t, ":memory:?_foreign_keys=on", sqliteDSN(":memory:"))
	assert.Equal(t, "file:x.db?cache=shared&_foreign_keys=on", sqliteDSN("file:x.db?cache=shared"))
	assert.Equal(t, "file:x.db?_fk=1", sqliteDSN("file:x.db?_fk=1"))
}

func TestConnectRejectsUnknownDriver(t *testing.T) {
	_, err := Connect(context.Background(), "mysql", "dsn")
	require.Error(t, err)
}

func TestMigrateCreatesSchema(t *testing.T) {
	ctx := context.Background()
	database, err := Connect(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, Migrate(ctx, database))
	// idempotent
	require.NoError(t, Migrate(ctx, database))

	for _, table := range []string{"users", "items", "conversations", "messages", "saved_items", "sessions"} {
		var count int
		err := database.GetContext(ctx, &count, `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table)
		require.NoError(t, err)
		assert.Equal(t, 1, count, table)
	}

	var fk int
	require.NoError(t, database.GetContext(ctx, &fk, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, fk)
}

func TestMigrateLogsThroughZerolog(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = prev })

	ctx := context.Background()
	database, err := Connect(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, Migrate(ctx, database))
	assert.Contains(t, buf.String(), `"component":"goose"`)
	assert.Contains(t, buf.String(), "00001_init.sql")
}

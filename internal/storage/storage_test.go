package storage

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrateSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "fitcoach.db")

	db, err := Open(context.Background(), "sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	logger := log.New(io.Discard)
	require.NoError(t, Migrate(db, logger))
	// Second run is a no-op.
	require.NoError(t, Migrate(db, logger))

	for _, table := range []string{"user_profiles", "plan_history", "conversation_log"} {
		var n int
		err := db.Get(&n, `SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		require.NoError(t, err)
		assert.Equal(t, 1, n, table)
	}

	// Plan points are individual columns.
	rows, err := db.Queryx(`SELECT * FROM user_profiles`)
	require.NoError(t, err)
	cols, err := rows.Columns()
	require.NoError(t, err)
	require.NoError(t, rows.Close())
	assert.Contains(t, cols, "plan_1")
	assert.Contains(t, cols, "plan_10")
}

func TestRebindUsesDriverPlaceholders(t *testing.T) {
	db, err := Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "rebind.db"))
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, "SELECT 1 WHERE a = ?", db.Rebind("SELECT 1 WHERE a = ?"))
}

package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteEnsuresSchema(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "schema.db")
	h, err := Open(context.Background(), DriverSQLite, dsn)
	require.NoError(t, err)
	defer h.Close()

	for _, table := range []string{"submissions", "event_log"} {
		var name string
		err := h.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=$1`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}

	// idempotent
	require.NoError(t, ensureSchema(context.Background(), h, DriverSQLite))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), Driver("oracle"), "")
	assert.ErrorContains(t, err, "unsupported driver")
}

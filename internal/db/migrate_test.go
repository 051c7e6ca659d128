package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMigrationsDir = "../../migrations"

func TestMigrateUpAndDown(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "migrate_test.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.MigrateUp(testMigrationsDir))

	version, dirty, err := db.MigrateVersion(testMigrationsDir)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.EqualValues(t, 1, version)

	// The migrated schema is usable.
	require.NoError(t, db.RecordEvent(Event{
		ID: "migrate-smoke", Operation: "unlock", Lock: 1, Success: true, Status: "open",
	}))

	// Up again is a no-op, not an error.
	require.NoError(t, db.MigrateUp(testMigrationsDir))

	require.NoError(t, db.MigrateDown(testMigrationsDir))
	version, _, err = db.MigrateVersion(testMigrationsDir)
	require.NoError(t, err)
	assert.Zero(t, version)
}

func TestMigrateForce(t *testing.T) {
	db, err := OpenDB(filepath.Join(t.TempDir(), "force_test.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.MigrateUp(testMigrationsDir))
	require.NoError(t, db.MigrateForce(testMigrationsDir, 1))

	version, dirty, err := db.MigrateVersion(testMigrationsDir)
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
	assert.False(t, dirty)
}

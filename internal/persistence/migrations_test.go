package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFilesOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"0002_reports.sql", "0001_init.sql", "README.md", "0003_notes.SQL"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("SELECT 1;"), 0o600))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "0000_dir.sql"), 0o700))

	files, err := migrationFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_init.sql", "0002_reports.sql", "0003_notes.SQL"}, files)
}

func TestMigrationFilesMissingDir(t *testing.T) {
	_, err := migrationFiles(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestNilHandles(t *testing.T) {
	var pg *Postgres
	var rd *Redis
	assert.Nil(t, pg.Pool())
	assert.Nil(t, rd.Client())
	assert.ErrorIs(t, pg.Ping(t.Context()), ErrPostgresDisabled)
	assert.ErrorIs(t, rd.Ping(t.Context()), ErrRedisDisabled)
	pg.Close()
	rd.Close()
}

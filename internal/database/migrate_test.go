package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationFiles_Paired(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}

	assert.Equal(t, ups, downs, "every up migration needs a matching down migration")
}

func TestMigrationFiles_CreateCoreTables(t *testing.T) {
	b, err := fs.ReadFile(migrationFiles, "migrations/000001_init.up.sql")
	require.NoError(t, err)

	sql := string(b)
	for _, table := range []string{"users", "projects", "resources"} {
		assert.Contains(t, sql, "CREATE TABLE "+table+" (")
	}
}

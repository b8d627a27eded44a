package migrations

import (
	"bytes"
	"database/sql"
	"io/fs"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-calendar/internal/logger"
)

func migrationNames(t *testing.T, driver string) []string {
	entries, err := fs.ReadDir(sqlFS, "sql/"+driver)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql"} {
		t.Run(driver, func(t *testing.T) {
			names := migrationNames(t, driver)
			require.NotEmpty(t, names)
			for _, name := range names {
				var pair string
				switch {
				case strings.HasSuffix(name, ".up.sql"):
					pair = strings.TrimSuffix(name, ".up.sql") + ".down.sql"
				case strings.HasSuffix(name, ".down.sql"):
					pair = strings.TrimSuffix(name, ".down.sql") + ".up.sql"
				default:
					t.Fatalf("unexpected file %s", name)
				}
				assert.Contains(t, names, pair)
			}
		})
	}
	assert.Equal(t, migrationNames(t, "postgres"), migrationNames(t, "mysql"))
}

func TestSchemaMigrationCreatesEveryTable(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql"} {
		raw, err := fs.ReadFile(sqlFS, "sql/"+driver+"/000001_schema.up.sql")
		require.NoError(t, err)
		for _, table := range []string{"members", "responsibilities", "addresses", "events", "event_schedules", "event_slots", "event_registrations"} {
			assert.Contains(t, string(raw), "CREATE TABLE IF NOT EXISTS "+table+" (", "%s: %s", driver, table)
		}
	}
}

func TestInitializeRejectsUnsupportedDriver(t *testing.T) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	defer bunDB.Close()

	r := NewRunner(bunDB, MigrateOptions{Driver: "sqlite"}, logger.NewWithWriter(&bytes.Buffer{}))
	assert.ErrorContains(t, r.RunMigrations(), `no migrations for driver "sqlite"`)
	assert.False(t, Supports("sqlite"))
	assert.True(t, Supports("postgres"))
	assert.True(t, Supports("mysql"))
	assert.NoError(t, r.Close())
}

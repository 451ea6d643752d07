package database_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/ordermgmt/internal/config"
	"github.com/iliyamo/ordermgmt/internal/database"
	"github.com/iliyamo/ordermgmt/internal/database/dbtest"
)

func TestMigrate_SeedsRoles(t *testing.T) {
	db := dbtest.New(t)

	rows, err := db.Query("SELECT name FROM roles ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		require.NoError(t, rows.Scan(&n))
		names = append(names, n)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"ADMIN", "CUSTOMER"}, names)
}

func TestMigrate_IsIdempotentAndReversible(t *testing.T) {
	db := dbtest.New(t)
	cfg := config.DBConfig{Driver: config.DriverSQLite, Path: ":memory:"}

	require.NoError(t, database.Migrate(db, cfg, database.Up), "second up is a no-op")
	require.NoError(t, database.Migrate(db, cfg, database.Down))

	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='users'").Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMySQLDSN(t *testing.T) {
	dsn := database.MySQLDSN(config.DBConfig{
		User: "app", Pass: "secret", Host: "db", Port: "3306", Name: "ordermgmt",
	})
	assert.True(t, strings.HasPrefix(dsn, "app:secret@tcp(db:3306)/ordermgmt?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "clientFoundRows=true")
	assert.NotContains(t, dsn, "multiStatements")

	mig := database.MigrationDSN(config.DBConfig{
		User: "app", Pass: "secret", Host: "db", Port: "3306", Name: "ordermgmt",
	})
	assert.Contains(t, mig, "multiStatements=true")
	assert.Contains(t, mig, "clientFoundRows=true")
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := database.Open(config.DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}

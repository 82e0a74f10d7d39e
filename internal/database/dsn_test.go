package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "portal", Name: "portal"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=portal dbname=portal sslmode=disable", dsn)

	dsn, err = buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.campus.example",
		Port:     6543,
		Password: "pass",
		Options:  map[string]string{"sslmode": "require", "search_path": "portal"},
	})
	require.NoError(t, err)
	require.Equal(t, "host=db.campus.example port=6543 user=user dbname=db password=pass search_path=portal sslmode=require", dsn)

	_, err = buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "portal", Name: "portal"})
	require.NoError(t, err)
	require.Equal(t, "portal@tcp(127.0.0.1:3306)/portal?charset=utf8mb4&loc=UTC&parseTime=True", dsn)

	dsn, err = buildMySQLDSN(Config{User: "u", Password: "p", Name: "db", Host: "mysql", Port: 3307, Options: map[string]string{"tls": "skip-verify"}})
	require.NoError(t, err)
	require.Equal(t, "u:p@tcp(mysql:3307)/db?charset=utf8mb4&loc=UTC&parseTime=True&tls=skip-verify", dsn)

	_, err = buildMySQLDSN(Config{Host: "localhost"})
	require.Error(t, err)
}

func TestDSNOverrideWins(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "postgres://x"})
	require.NoError(t, err)
	require.Equal(t, "postgres://x", dsn)

	dsn, err = sqliteDSN(Config{Path: ":memory:"})
	require.NoError(t, err)
	require.Equal(t, sqliteMemoryDSN, dsn)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.ErrorContains(t, err, "unsupported database driver")
}

func TestOpenSQLiteAndMigrate(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite", DSN: "file:dsn_test?mode=memory&cache=shared"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	require.NoError(t, AutoMigrate(db))
	require.True(t, db.Migrator().HasTable("cache_entries"))
	require.True(t, db.Migrator().HasTable("audit_logs"))
}

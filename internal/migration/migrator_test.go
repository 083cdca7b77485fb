package migration

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/glebarez/go-sqlite" // register pure-Go SQLite driver
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "memory.db")
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewMigrator(t *testing.T) {
	t.Run("nil db", func(t *testing.T) {
		_, err := NewMigrator(nil, nil)
		assert.Error(t, err)
	})

	t.Run("default table name", func(t *testing.T) {
		db := openTestDB(t)
		m, err := NewMigrator(db, nil)
		require.NoError(t, err)
		defer m.Close()

		assert.Equal(t, "schema_migrations", m.config.TableName)

		var count int
		err = db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'`).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("custom table name", func(t *testing.T) {
		db := openTestDB(t)
		m, err := NewMigrator(db, &Config{TableName: "memory_schema_versions"})
		require.NoError(t, err)
		defer m.Close()

		var count int
		err = db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'memory_schema_versions'`).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestMigratorUp(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m, err := NewMigrator(db, nil)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Up(ctx))

	version, dirty, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// Core tables exist and the FTS index tracks inserts through triggers.
	_, err = db.Exec(`INSERT INTO facts (fact_type, content, timestamp, source_day) VALUES ('world', 'the sky is blue', 1700000000000, '2023-11-14')`)
	require.NoError(t, err)

	var hits int
	err = db.QueryRow(`SELECT count(*) FROM fact_fts WHERE fact_fts MATCH '"sky"'`).Scan(&hits)
	require.NoError(t, err)
	assert.Equal(t, 1, hits)

	// Provenance columns from the second migration carry their defaults.
	var sourceType string
	var trustLevel float64
	err = db.QueryRow(`SELECT source_type, trust_level FROM facts LIMIT 1`).Scan(&sourceType, &trustLevel)
	require.NoError(t, err)
	assert.Equal(t, "unknown", sourceType)
	assert.Equal(t, 0.5, trustLevel)

	// A second Up is a no-op.
	require.NoError(t, m.Up(ctx))
}

func TestMigratorDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m, err := NewMigrator(db, nil)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Up(ctx))
	require.NoError(t, m.Down(ctx))

	version, dirty, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Provenance columns are gone again.
	_, err = db.Exec(`INSERT INTO facts (fact_type, content, timestamp, source_day, source_type) VALUES ('world', 'x', 1, 'd', 'user')`)
	assert.Error(t, err)

	require.NoError(t, m.DownAll(ctx))

	version, dirty, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)
}

func TestMigratorStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m, err := NewMigrator(db, nil)
	require.NoError(t, err)
	defer m.Close()

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "core_schema", statuses[0].Name)
	assert.Equal(t, "fact_provenance", statuses[1].Name)
	for _, s := range statuses {
		assert.False(t, s.Applied)
	}

	require.NoError(t, m.Up(ctx))

	statuses, err = m.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	for _, s := range statuses {
		assert.True(t, s.Applied)
		assert.False(t, s.Dirty)
	}

	info, err := m.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(2), info.CurrentVersion)
	assert.Equal(t, 2, info.TotalMigrations)
	assert.Equal(t, 2, info.AppliedMigrations)
	assert.Equal(t, 0, info.PendingMigrations)
}

func TestMigratorGotoAndForce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m, err := NewMigrator(db, nil)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Goto(ctx, 1))

	version, _, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, m.Force(ctx, 2))

	version, dirty, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)
}

func TestSQLiteDriverLock(t *testing.T) {
	db := openTestDB(t)

	d, err := newSQLiteDriver(db, "")
	require.NoError(t, err)

	require.NoError(t, d.Lock())
	assert.ErrorIs(t, d.Lock(), database.ErrLocked)
	require.NoError(t, d.Unlock())
	assert.ErrorIs(t, d.Unlock(), database.ErrNotLocked)
}

func TestSQLiteDriverVersion(t *testing.T) {
	db := openTestDB(t)

	d, err := newSQLiteDriver(db, "")
	require.NoError(t, err)

	version, dirty, err := d.Version()
	require.NoError(t, err)
	assert.Equal(t, database.NilVersion, version)
	assert.False(t, dirty)

	require.NoError(t, d.SetVersion(5, true))

	version, dirty, err = d.Version()
	require.NoError(t, err)
	assert.Equal(t, 5, version)
	assert.True(t, dirty)

	require.NoError(t, d.SetVersion(database.NilVersion, false))

	version, dirty, err = d.Version()
	require.NoError(t, err)
	assert.Equal(t, database.NilVersion, version)
	assert.False(t, dirty)
}

func TestSQLiteDriverDrop(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m, err := NewMigrator(db, nil)
	require.NoError(t, err)
	defer m.Close()

	require.NoError(t, m.Up(ctx))

	require.NoError(t, m.dbDriver.Drop())

	var count int
	err = db.QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/golang-migrate/migrate/v4/database"
)

// =============================================================================
// SQLite Driver Adapter
// =============================================================================

// sqliteDriver adapts an existing *sql.DB to the golang-migrate
// database.Driver interface. The stock sqlite drivers open their own
// connection from a URL; the memory store instead hands the migrator its
// already-configured connection, so the WAL journal, busy timeout and the
// single-writer pool apply to migrations as well.
type sqliteDriver struct {
	db     *sql.DB
	table  string
	locked atomic.Bool
}

func newSQLiteDriver(db *sql.DB, table string) (*sqliteDriver, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if table == "" {
		table = "schema_migrations"
	}

	d := &sqliteDriver{db: db, table: table}
	if err := d.ensureVersionTable(); err != nil {
		return nil, err
	}
	return d, nil
}

// Open is part of database.Driver but this driver is constructed from an
// existing connection, never from a URL.
func (d *sqliteDriver) Open(string) (database.Driver, error) {
	return nil, errors.New("sqlite driver must be constructed from an existing connection")
}

// Close is a no-op. The connection belongs to the caller, and closing it
// here would tear the store down together with the migrator.
func (d *sqliteDriver) Close() error {
	return nil
}

// Lock takes the in-process migration lock. SQLite has a single writer, so
// a process-local flag is all the exclusion the migrator needs.
func (d *sqliteDriver) Lock() error {
	if !d.locked.CompareAndSwap(false, true) {
		return database.ErrLocked
	}
	return nil
}

// Unlock releases the in-process migration lock.
func (d *sqliteDriver) Unlock() error {
	if !d.locked.CompareAndSwap(true, false) {
		return database.ErrNotLocked
	}
	return nil
}

// Run executes a single migration file inside a transaction.
func (d *sqliteDriver) Run(migration io.Reader) error {
	query, err := io.ReadAll(migration)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	if _, err := tx.Exec(string(query)); err != nil {
		tx.Rollback()
		return fmt.Errorf("execute migration: %w", err)
	}
	return tx.Commit()
}

// SetVersion records the current schema version. A version of
// database.NilVersion clears the table (no migration applied).
func (d *sqliteDriver) SetVersion(version int, dirty bool) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin version tx: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM " + d.table); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear version: %w", err)
	}

	// A dirty NilVersion must still be recorded, otherwise a failed down
	// migration of the first version would leave no trace.
	if version >= 0 || (version == database.NilVersion && dirty) {
		insert := fmt.Sprintf("INSERT INTO %s (version, dirty) VALUES (?, ?)", d.table)
		if _, err := tx.Exec(insert, version, dirty); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert version: %w", err)
		}
	}

	return tx.Commit()
}

// Version returns the current schema version, or database.NilVersion when
// no migration has been applied yet.
func (d *sqliteDriver) Version() (int, bool, error) {
	var (
		version int
		dirty   bool
	)

	query := fmt.Sprintf("SELECT version, dirty FROM %s LIMIT 1", d.table)
	err := d.db.QueryRow(query).Scan(&version, &dirty)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return database.NilVersion, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("read version: %w", err)
	}
	return version, dirty, nil
}

// Drop removes every user table from the database, virtual tables first so
// their shadow tables disappear with them.
func (d *sqliteDriver) Drop() error {
	virtual, err := d.tableNames(true)
	if err != nil {
		return err
	}
	for _, name := range virtual {
		if _, err := d.db.Exec("DROP TABLE IF EXISTS " + quoteIdentifier(name)); err != nil {
			return fmt.Errorf("drop virtual table %s: %w", name, err)
		}
	}

	tables, err := d.tableNames(false)
	if err != nil {
		return err
	}
	for _, name := range tables {
		if _, err := d.db.Exec("DROP TABLE IF EXISTS " + quoteIdentifier(name)); err != nil {
			return fmt.Errorf("drop table %s: %w", name, err)
		}
	}
	return nil
}

// ensureVersionTable creates the schema version table if it does not exist.
func (d *sqliteDriver) ensureVersionTable() error {
	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (version INTEGER NOT NULL, dirty INTEGER NOT NULL)",
		d.table,
	)
	if _, err := d.db.Exec(query); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}
	return nil
}

// tableNames lists user tables, optionally restricted to virtual tables.
func (d *sqliteDriver) tableNames(virtualOnly bool) ([]string, error) {
	query := `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`
	if virtualOnly {
		query += ` AND sql LIKE 'CREATE VIRTUAL TABLE%'`
	}

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

/*
Package migration manages the memory store's SQLite schema using
golang-migrate with SQL files embedded via embed.FS.

The migrator runs over the store's existing connection instead of opening
its own, so the WAL journal, busy timeout and single-writer pool configured
at open time also govern schema changes. A small adapter implements the
golang-migrate database.Driver interface on top of that shared connection;
the migration lock is an in-process flag, which is all SQLite needs.

Core types:

  - Migrator: the interface covering Up/Down/DownAll/Steps/Goto/Force/
    Version/Status/Info/Close.
  - DefaultMigrator: the golang-migrate backed implementation, constructed
    with NewMigrator from an existing *sql.DB.
  - MigrationStatus / MigrationInfo: per-migration and summary state.

Migration files live under migrations/sqlite and follow the
NNNNNN_name.up.sql / NNNNNN_name.down.sql convention.
*/
package migration

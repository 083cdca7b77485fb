/*
Package database owns the SQLite connection behind the memory store.

# Overview

The store keeps everything in one database file opened through GORM with the
pure-Go glebarez driver. The Manager applies the store's pragma set at open
time (WAL journal, NORMAL synchronous, busy timeout, foreign keys) and caps
the pool at a single connection, which is all SQLite's one-writer model can
use anyway.

# Core types

  - Manager: holds the GORM handle and the underlying sql.DB, with
    DB()/SQLDB()/Ping()/Stats()/Close() lifecycle methods.
  - Config: file path, busy timeout and optional health check interval.
  - TransactionFunc: transaction callback type.

WithTransaction runs a single transaction; WithTransactionRetry adds
exponential backoff for busy and locked errors.
*/
package database

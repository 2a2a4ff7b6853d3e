// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package driver

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDriverName is the database/sql driver registered by go-sqlite3.
const SQLiteDriverName = "sqlite3"

type sqliteDialect struct{}

// SQLite is the dialect of SQLite and dqlite.
var SQLite Dialect = sqliteDialect{}

func (sqliteDialect) AutoIncrementKeyword() string {
	return "autoincrement"
}

func (sqliteDialect) ForeignKeyCheckSQL(on bool) string {
	if on {
		return "pragma foreign_keys=1"
	}
	return "pragma foreign_keys=0"
}

// MemoryDSN returns the DSN of an in-memory database. The database lives as
// long as its connection.
func MemoryDSN(name string) string {
	return fmt.Sprintf("file:%s?mode=memory", name)
}

// FileDSN returns the DSN of the database file for name in dir.
func FileDSN(dir, name string) string {
	return "file:" + FilePath(dir, name)
}

// FilePath returns the path of the database file for name in dir.
func FilePath(dir, name string) string {
	return filepath.Join(dir, name+".db")
}

// OpenSQLite opens a SQLite database.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*DB, error) {
	return openSQLite(ctx, SQLiteDriverName, dsn, logger)
}

func openSQLite(ctx context.Context, driverName, dsn string, logger *slog.Logger) (*DB, error) {
	db, err := Open(ctx, driverName, dsn, SQLite, logger)
	if err != nil {
		return nil, err
	}
	// Pragmas and in-memory databases are per connection.
	db.sqldb.SetMaxOpenConns(1)
	db.sqldb.SetConnMaxLifetime(0)
	db.sqldb.SetConnMaxIdleTime(0)
	return db, nil
}

// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package driver runs compiled SQL on a backing database through
// database/sql.
package driver

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/canonical/rdb/internal/typeinfo"
)

// Row is a result row keyed by column name.
type Row map[string]any

// Rows are the rows returned by a query or a batch.
type Rows []Row

// Decode stores the rows in the slice pointed to by slicePtr. The elements
// of the slice are structs with fields tagged by column name, pointers to
// such structs, or maps with string keys.
func (rs Rows) Decode(slicePtr any) error {
	rows := make([]map[string]any, len(rs))
	for i, r := range rs {
		rows[i] = r
	}
	return typeinfo.Decode(rows, slicePtr)
}

// Dialect describes the SQL dialect of a backend.
type Dialect interface {
	// AutoIncrementKeyword is the column attribute making an integer
	// primary key auto incremented.
	AutoIncrementKeyword() string
	// ForeignKeyCheckSQL returns the statement turning foreign key
	// enforcement on or off.
	ForeignKeyCheckSQL(on bool) string
}

// Native is a backing database.
type Native interface {
	Dialect
	// Query runs a single read statement.
	Query(ctx context.Context, query string) (Rows, error)
	// Run runs the statements in order on a single connection and returns
	// the rows of every select among them, concatenated. If a statement
	// fails, an open transaction is rolled back and the error is returned
	// as is.
	Run(ctx context.Context, stmts []string) (Rows, error)
	Close() error
}

// DB is a Native database backed by a sql.DB.
type DB struct {
	sqldb   *sql.DB
	dialect Dialect
	cache   *statementCache
	logger  *slog.Logger
}

var _ Native = (*DB)(nil)

// New wraps sqldb. If logger is nil, slog.Default() is used.
func New(sqldb *sql.DB, dialect Dialect, logger *slog.Logger) *DB {
	if logger == nil {
		logger = slog.Default()
	}
	return &DB{
		sqldb:   sqldb,
		dialect: dialect,
		cache:   newStatementCache(defaultCacheSize),
		logger:  logger,
	}
}

// Open opens the database with the named database/sql driver and checks
// that it can be reached.
func Open(ctx context.Context, driverName, dsn string, dialect Dialect, logger *slog.Logger) (*DB, error) {
	sqldb, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s database: %w", driverName, err)
	}
	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("cannot open %s database: %w", driverName, err)
	}
	return New(sqldb, dialect, logger), nil
}

// PlainDB returns the underlying sql.DB.
func (db *DB) PlainDB() *sql.DB {
	return db.sqldb
}

func (db *DB) AutoIncrementKeyword() string {
	return db.dialect.AutoIncrementKeyword()
}

func (db *DB) ForeignKeyCheckSQL(on bool) string {
	return db.dialect.ForeignKeyCheckSQL(on)
}

// Query runs a read statement. The statement is prepared once and reused by
// later calls with the same SQL, as long as it stays among the most recently
// used ones.
func (db *DB) Query(ctx context.Context, query string) (Rows, error) {
	stmt, release, err := db.cache.prepare(ctx, db.sqldb, query)
	if err != nil {
		db.logger.ErrorContext(ctx, "cannot prepare statement", "sql", query, "err", err)
		return nil, err
	}
	defer release()
	rows, err := stmt.QueryContext(ctx)
	if err != nil {
		db.logger.ErrorContext(ctx, "query failed", "sql", query, "err", err)
		return nil, err
	}
	return scanRows(rows)
}

// Run implements Native.Run.
func (db *DB) Run(ctx context.Context, stmts []string) (Rows, error) {
	conn, err := db.sqldb.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	var result Rows
	inTx := false
	for _, s := range stmts {
		if isQuery(s) {
			var rows *sql.Rows
			rows, err = conn.QueryContext(ctx, s)
			if err == nil {
				var rs Rows
				rs, err = scanRows(rows)
				result = append(result, rs...)
			}
		} else {
			_, err = conn.ExecContext(ctx, s)
		}
		if err != nil {
			db.logger.ErrorContext(ctx, "statement failed", "sql", s, "err", err)
			if inTx {
				// The context may be done already; the rollback must still
				// happen before the connection returns to the pool.
				if _, rerr := conn.ExecContext(context.Background(), "rollback"); rerr != nil {
					db.logger.ErrorContext(ctx, "rollback failed", "err", rerr)
				}
			}
			return nil, err
		}
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "begin", "begin transaction":
			inTx = true
		case "commit", "rollback", "end":
			inTx = false
		}
	}
	db.logger.DebugContext(ctx, "ran statements", "count", len(stmts), "rows", len(result))
	return result, nil
}

// Close closes the cached statements and the database.
func (db *DB) Close() error {
	db.cache.close()
	return db.sqldb.Close()
}

func isQuery(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(s, "select") || strings.HasPrefix(s, "with")
}

// scanRows reads and closes rows.
func scanRows(rows *sql.Rows) (Rows, error) {
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var result Rows
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = vals[i]
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package rdb

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/canonical/rdb/internal/driver"
	"github.com/canonical/rdb/internal/errs"
	"github.com/canonical/rdb/internal/expr"
	"github.com/canonical/rdb/internal/schema"
	"github.com/canonical/rdb/internal/txn"
)

// StorageType selects the backing database of a connection.
type StorageType string

const (
	// Persistent stores the database in a SQLite file.
	Persistent StorageType = "persistent"
	// Temporary keeps the database in memory for the life of the
	// connection.
	Temporary StorageType = "temporary"
	// Dqlite stores the database in a dqlite cluster. It requires a build
	// with the libdqlite tag.
	Dqlite StorageType = "dqlite"
)

// Options holds the options used by [Open].
type Options struct {
	// StorageType defaults to Temporary.
	StorageType StorageType
	// Dir is the directory of persistent database files and of the dqlite
	// node data. It defaults to the working directory.
	Dir string
	// Address and Cluster configure the dqlite node.
	Address string
	Cluster []string
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (opts *Options) withDefaults() Options {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	if o.StorageType == "" {
		o.StorageType = Temporary
	}
	if o.Dir == "" {
		o.Dir = "."
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

const (
	createCatalogTable  = `create table if not exists ` + expr.CatalogTable + ` (name text, db text)`
	createCatalogColumn = `create table if not exists ` + expr.CatalogColumn + ` (name text, db text, tbl text, type text)`
)

// Open opens the named database and loads its schema.
func Open(ctx context.Context, name string, opts *Options) (*Connection, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := opts.withDefaults()

	var native driver.Native
	var err error
	switch o.StorageType {
	case Temporary:
		native, err = driver.OpenSQLite(ctx, driver.MemoryDSN(name), o.Logger)
	case Persistent:
		if err := os.MkdirAll(o.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create database directory: %w", err)
		}
		native, err = driver.OpenSQLite(ctx, driver.FileDSN(o.Dir, name), o.Logger)
	case Dqlite:
		native, err = driver.OpenDqlite(ctx, driver.DqliteConfig{
			Dir:     o.Dir,
			Address: o.Address,
			Cluster: o.Cluster,
		}, name, o.Logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", o.StorageType)
	}
	if err != nil {
		return nil, err
	}

	conn := NewConnection(name, native, o.Logger)
	if err := conn.init(ctx); err != nil {
		native.Close()
		return nil, err
	}
	o.Logger.DebugContext(ctx, "database opened", "db", name, "storage", string(o.StorageType),
		"tables", len(conn.registry.Tables()))
	return conn, nil
}

// Drop removes the named database. Only persistent databases have anything
// to remove.
func Drop(ctx context.Context, name string, opts *Options) error {
	o := opts.withDefaults()
	switch o.StorageType {
	case Temporary:
		return nil
	case Persistent:
		err := os.Remove(driver.FilePath(o.Dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	return errs.Unsupportedf("cannot drop %s database", o.StorageType)
}

// Connection is a connection to a database and its schema.
type Connection struct {
	name     string
	native   driver.Native
	registry *schema.Registry
	logger   *slog.Logger
}

// NewConnection returns a connection using native as its database. The
// schema starts empty. If logger is nil, slog.Default() is used.
func NewConnection(name string, native driver.Native, logger *slog.Logger) *Connection {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connection{
		name:     name,
		native:   native,
		registry: schema.NewRegistry(name),
		logger:   logger.With("db", name),
	}
}

// init turns foreign key checks on, creates the catalog and loads the schema
// recorded in it.
func (c *Connection) init(ctx context.Context) error {
	_, err := c.native.Run(ctx, []string{
		c.native.ForeignKeyCheckSQL(true),
		createCatalogTable,
		createCatalogColumn,
	})
	if err != nil {
		return fmt.Errorf("cannot create catalog: %w", err)
	}

	rows, err := c.native.Query(ctx, `select name, tbl, type from `+expr.CatalogColumn+
		` where db = `+sqlString(c.name)+` order by rowid`)
	if err != nil {
		return fmt.Errorf("cannot load schema: %w", err)
	}
	var records []struct {
		Name  string `db:"name"`
		Table string `db:"tbl"`
		Type  string `db:"type"`
	}
	if err := rows.Decode(&records); err != nil {
		return fmt.Errorf("cannot load schema: %w", err)
	}

	var changes []schema.Change
	tables := map[string]*schema.Table{}
	for _, r := range records {
		t, ok := tables[r.Table]
		if !ok {
			t = schema.NewTable(r.Table)
			tables[r.Table] = t
			changes = append(changes, schema.Change{Name: r.Table, Table: t})
		}
		typ := schema.ColumnType(r.Type)
		if !typ.Valid() {
			return fmt.Errorf("cannot load schema: column %s.%s has unknown type %q", r.Table, r.Name, r.Type)
		}
		t.AddColumn(schema.Column{Name: r.Name, Type: typ})
	}
	c.registry.Apply(changes...)
	return nil
}

// sqlString returns s as a single quoted SQL string.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Name returns the name of the database.
func (c *Connection) Name() string {
	return c.name
}

// Schema returns the schema of the database.
func (c *Connection) Schema() *Schema {
	return &Schema{registry: c.registry}
}

// Select returns a select builder projecting the columns, or every column if
// there are none.
func (c *Connection) Select(columns ...Selectable) *SelectBuilder {
	return expr.NewSelect(columns...)
}

// Insert returns an insert builder.
func (c *Connection) Insert() *InsertBuilder {
	return expr.NewInsert(false)
}

// InsertOrReplace returns an insert builder replacing conflicting rows.
func (c *Connection) InsertOrReplace() *InsertBuilder {
	return expr.NewInsert(true)
}

// Update returns an update builder for the table.
func (c *Connection) Update(t *Table) *UpdateBuilder {
	return expr.NewUpdate(t)
}

// Delete returns a delete builder.
func (c *Connection) Delete() *DeleteBuilder {
	return expr.NewDelete()
}

// CreateTable returns a builder for a new table. The table is added to the
// schema once the transaction creating it commits.
func (c *Connection) CreateTable(name string) *TableBuilder {
	return expr.NewTableBuilder(c.native, c.name, name)
}

// Bind returns a placeholder for the index-th value of a later Bind call on
// a builder. It panics if index is negative.
func (c *Connection) Bind(index int) *Bindable {
	if index < 0 {
		panic(errs.Syntaxf("negative bindable index %d", index))
	}
	return expr.NewBindable(index)
}

// CreateTransaction returns a new transaction in the given mode.
func (c *Connection) CreateTransaction(mode TxMode) *Transaction {
	return txn.New(c.native, c.registry, mode, c.logger)
}

// Exec runs the queries in a single read-write transaction.
func (c *Connection) Exec(ctx context.Context, qs ...Query) (Rows, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.CreateTransaction(ReadWrite).Exec(ctx, qs...)
}

// Query runs a select outside of a transaction. The statement prepared for
// its SQL is cached and reused.
func (c *Connection) Query(ctx context.Context, q Query) (Rows, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ro, ok := q.(interface{ ReadOnly() bool }); !ok || !ro.ReadOnly() {
		return nil, errs.Syntaxf("only selects can be queried outside of a transaction")
	}
	stmts, err := q.Statements()
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, fmt.Errorf("internal error: select compiled to %d statements", len(stmts))
	}
	return c.native.Query(ctx, stmts[0])
}

// Close closes the database.
func (c *Connection) Close() error {
	return c.native.Close()
}

// Schema gives access to the tables of a database.
type Schema struct {
	registry *schema.Registry
}

// Name returns the name of the database.
func (s *Schema) Name() string {
	return s.registry.Name()
}

// Table returns the named table, or nil if there is no such table.
func (s *Schema) Table(name string) *Table {
	t, ok := s.registry.Table(name)
	if !ok {
		return nil
	}
	return expr.NewTable(t)
}

// Tables returns the names of the tables, sorted.
func (s *Schema) Tables() []string {
	var names []string
	for _, t := range s.registry.Tables() {
		names = append(names, t.Name())
	}
	return names
}

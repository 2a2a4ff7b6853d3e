// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package expr

import (
	"strings"

	"github.com/canonical/rdb/internal/errs"
	"github.com/canonical/rdb/internal/schema"
)

// Dialect supplies the facts about the target SQL dialect that DDL
// generation depends on.
type Dialect interface {
	// AutoIncrementKeyword is the column attribute making an integer
	// primary key auto incremented.
	AutoIncrementKeyword() string
}

const (
	// CatalogTable records the tables of each database.
	CatalogTable = `"$rdb_table"`
	// CatalogColumn records the columns of each table.
	CatalogColumn = `"$rdb_column"`
)

// PrimaryKey declares the primary key of a table.
type PrimaryKey struct {
	columns []schema.IndexedColumn
}

// PK declares a primary key over one or more columns.
func PK(names ...string) PrimaryKey {
	pk := PrimaryKey{}
	for _, name := range names {
		pk.columns = append(pk.columns, schema.IndexedColumn{Name: name, Order: schema.Asc})
	}
	return pk
}

// AutoIncrementPK declares an auto incremented primary key column.
func AutoIncrementPK(name string) PrimaryKey {
	return PrimaryKey{columns: []schema.IndexedColumn{{Name: name, Order: schema.Asc, AutoIncrement: true}}}
}

// PKColumns declares a primary key from indexed column specs.
func PKColumns(cols ...schema.IndexedColumn) PrimaryKey {
	return PrimaryKey{columns: cols}
}

// TableBuilder builds a create table statement together with the catalog
// records of the table. Once committed, the table it describes is added to
// the schema registry.
type TableBuilder struct {
	dialect     Dialect
	dbName      string
	name        string
	columns     []schema.Column
	columnType  map[string]schema.ColumnType
	primaryKey  []schema.IndexedColumn
	indices     []schema.Index
	foreignKeys []schema.ForeignKey
	err         error
}

// NewTableBuilder returns a builder for the named table of the database.
func NewTableBuilder(dialect Dialect, dbName, name string) *TableBuilder {
	return &TableBuilder{
		dialect:    dialect,
		dbName:     dbName,
		name:       name,
		columnType: map[string]schema.ColumnType{},
	}
}

func (tb *TableBuilder) setErr(err error) {
	if tb.err == nil {
		tb.err = err
	}
}

// Err returns the first declaration error.
func (tb *TableBuilder) Err() error {
	return tb.err
}

// Name returns the name of the table being built.
func (tb *TableBuilder) Name() string {
	return tb.name
}

// Column declares a column.
func (tb *TableBuilder) Column(name string, typ schema.ColumnType, notNull ...bool) *TableBuilder {
	if _, ok := tb.columnType[name]; ok {
		tb.setErr(errs.Syntaxf("duplicate column %q in table %s", name, tb.name))
		return tb
	}
	if !typ.Valid() {
		tb.setErr(errs.InvalidSchemaf("column %q has unknown type %q", name, typ))
		return tb
	}
	col := schema.Column{Name: name, Type: typ}
	if len(notNull) > 0 {
		col.NotNull = notNull[0]
	}
	tb.columnType[name] = typ
	tb.columns = append(tb.columns, col)
	return tb
}

// PrimaryKey declares the primary key. The columns must already be declared
// and must not be blobs or objects; an auto incremented key must be a single
// numeric column.
func (tb *TableBuilder) PrimaryKey(pk PrimaryKey) *TableBuilder {
	if tb.primaryKey != nil {
		tb.setErr(errs.Syntaxf("primary key of %s declared twice", tb.name))
		return tb
	}
	if len(pk.columns) == 0 {
		tb.setErr(errs.Syntaxf("empty primary key in table %s", tb.name))
		return tb
	}
	for _, c := range pk.columns {
		typ, ok := tb.columnType[c.Name]
		if !ok {
			tb.setErr(errs.Syntaxf("primary key column %q not found in table %s", c.Name, tb.name))
			return tb
		}
		if !typ.Indexable() {
			tb.setErr(errs.InvalidSchemaf("primary key column %q cannot be of type %s", c.Name, typ))
			return tb
		}
		if c.AutoIncrement {
			if len(pk.columns) > 1 {
				tb.setErr(errs.InvalidSchemaf("auto increment primary key %q must be a single column", c.Name))
				return tb
			}
			if !typ.IsNumeric() {
				tb.setErr(errs.InvalidSchemaf("auto increment column %q must be numeric, got %s", c.Name, typ))
				return tb
			}
		}
		if c.Order != "" && !c.Order.Valid() {
			tb.setErr(errs.Syntaxf("invalid sort order %q", c.Order))
			return tb
		}
	}
	tb.primaryKey = pk.columns
	return tb
}

// Index declares a secondary index.
func (tb *TableBuilder) Index(idx schema.Index) *TableBuilder {
	for _, other := range tb.indices {
		if other.Name == idx.Name {
			tb.setErr(errs.Syntaxf("duplicate index %q in table %s", idx.Name, tb.name))
			return tb
		}
	}
	if idx.Unique && idx.Type == schema.Fulltext {
		tb.setErr(errs.Syntaxf("index %q cannot be both unique and fulltext", idx.Name))
		return tb
	}
	if len(idx.Columns) == 0 {
		tb.setErr(errs.Syntaxf("index %q has no columns", idx.Name))
		return tb
	}
	for _, c := range idx.Columns {
		typ, ok := tb.columnType[c.Name]
		if !ok {
			tb.setErr(errs.Syntaxf("index column %q not found in table %s", c.Name, tb.name))
			return tb
		}
		if !typ.Indexable() {
			tb.setErr(errs.InvalidSchemaf("index column %q cannot be of type %s", c.Name, typ))
			return tb
		}
	}
	tb.indices = append(tb.indices, idx)
	return tb
}

// ForeignKey declares that the local column references remote, written as
// "table.column".
func (tb *TableBuilder) ForeignKey(name, local, remote string) *TableBuilder {
	for _, other := range tb.foreignKeys {
		if other.Name == name {
			tb.setErr(errs.Syntaxf("duplicate foreign key %q in table %s", name, tb.name))
			return tb
		}
	}
	if _, ok := tb.columnType[local]; !ok {
		tb.setErr(errs.Syntaxf("foreign key column %q not found in table %s", local, tb.name))
		return tb
	}
	remoteTable, remoteColumn, ok := strings.Cut(remote, ".")
	if !ok || remoteTable == "" || remoteColumn == "" {
		tb.setErr(errs.Syntaxf("foreign key %q must reference table.column, got %q", name, remote))
		return tb
	}
	tb.foreignKeys = append(tb.foreignKeys, schema.ForeignKey{
		Name:         name,
		Local:        local,
		RemoteTable:  remoteTable,
		RemoteColumn: remoteColumn,
	})
	return tb
}

func (tb *TableBuilder) autoIncrementColumn() string {
	if len(tb.primaryKey) == 1 && tb.primaryKey[0].AutoIncrement {
		return tb.primaryKey[0].Name
	}
	return ""
}

func indexedColumnSQL(c schema.IndexedColumn) string {
	if c.Order == schema.Desc {
		return c.Name + " desc"
	}
	return c.Name
}

// createSQL returns the create table statement.
func (tb *TableBuilder) createSQL() (string, error) {
	if tb.err != nil {
		return "", tb.err
	}
	if len(tb.columns) == 0 {
		return "", errs.InvalidSchemaf("table %s has no columns", tb.name)
	}

	autoIncrement := tb.autoIncrementColumn()
	var b sqlBuilder
	b.write("create table ", tb.name, " (")
	writeCommaSeparatedList(&b, ", ", tb.columns, func(_ int, c schema.Column) string {
		// The dialect expresses auto increment as a column attribute.
		if c.Name == autoIncrement {
			return c.Name + " integer primary key " + tb.dialect.AutoIncrementKeyword()
		}
		def := c.Name + " " + c.Type.SQLType()
		if c.NotNull {
			def += " not null"
		}
		return def
	})
	if tb.primaryKey != nil && autoIncrement == "" {
		b.write(", primary key (")
		writeCommaSeparatedList(&b, ", ", tb.primaryKey, func(_ int, c schema.IndexedColumn) string {
			return indexedColumnSQL(c)
		})
		b.write(")")
	}
	for _, fk := range tb.foreignKeys {
		b.write(", constraint ", fk.Name, " foreign key (", fk.Local, ") references ",
			fk.RemoteTable, "(", fk.RemoteColumn, ")")
	}
	b.write(")")
	return b.getSQL(), nil
}

// indexSQL returns a create index statement for each declared index.
// Fulltext indices are created as plain indices.
func (tb *TableBuilder) indexSQL() []string {
	var stmts []string
	for _, idx := range tb.indices {
		var b sqlBuilder
		b.write("create ")
		if idx.Unique {
			b.write("unique ")
		}
		b.write("index ", idx.Name, " on ", tb.name, "(")
		writeCommaSeparatedList(&b, ", ", idx.Columns, func(_ int, c schema.IndexedColumn) string {
			return indexedColumnSQL(c)
		})
		b.write(")")
		stmts = append(stmts, b.getSQL())
	}
	return stmts
}

// SQL returns the DDL of the table: the create table statement followed by
// the create index statements, separated by semicolons.
func (tb *TableBuilder) SQL() (string, error) {
	create, err := tb.createSQL()
	if err != nil {
		return "", err
	}
	return strings.Join(append([]string{create}, tb.indexSQL()...), "; "), nil
}

// Statements returns the DDL statements followed by the catalog records of
// the table and of each of its columns.
func (tb *TableBuilder) Statements() ([]string, error) {
	create, err := tb.createSQL()
	if err != nil {
		return nil, err
	}
	stmts := append([]string{create}, tb.indexSQL()...)
	stmts = append(stmts, "insert into "+CatalogTable+" values ("+quote(tb.name)+", "+quote(tb.dbName)+")")
	for _, c := range tb.columns {
		stmts = append(stmts, "insert into "+CatalogColumn+" values ("+
			quote(c.Name)+", "+quote(tb.dbName)+", "+quote(tb.name)+", "+quote(string(c.Type))+")")
	}
	return stmts, nil
}

// Schema returns the table schema described by the builder.
func (tb *TableBuilder) Schema() *schema.Table {
	t := schema.NewTable(tb.name)
	for _, c := range tb.columns {
		t.AddColumn(c)
	}
	if tb.primaryKey != nil {
		t.SetPrimaryKey(tb.primaryKey)
	}
	for _, idx := range tb.indices {
		t.AddIndex(idx)
	}
	for _, fk := range tb.foreignKeys {
		t.AddForeignKey(fk)
	}
	return t
}

// SchemaChanges returns the registry update adding the table. It must only
// be applied once the statements have been committed.
func (tb *TableBuilder) SchemaChanges() []schema.Change {
	return []schema.Change{{Name: tb.name, Table: tb.Schema()}}
}

// Bind does nothing: table declarations have no bindable values.
func (tb *TableBuilder) Bind(values ...any) *TableBuilder {
	return tb
}

// BinderMap returns an empty map.
func (tb *TableBuilder) BinderMap() BinderMap {
	return BinderMap{}
}

func (tb *TableBuilder) walkBinders(fn func(*Bindable)) {}

// Clone is not supported for table builders.
func (tb *TableBuilder) Clone() (*TableBuilder, error) {
	return nil, errs.Unsupportedf("cannot clone table builder")
}

func (tb *TableBuilder) cloneBuilder() (builder, error) {
	return nil, errs.Unsupportedf("cannot clone table builder")
}

// Finalize validates the declarations and returns them as a Statement.
// Later declarations on the builder do not affect the statement.
func (tb *TableBuilder) Finalize() (*Statement, error) {
	snapshot := &TableBuilder{
		dialect:     tb.dialect,
		dbName:      tb.dbName,
		name:        tb.name,
		columns:     append([]schema.Column(nil), tb.columns...),
		columnType:  map[string]schema.ColumnType{},
		primaryKey:  append([]schema.IndexedColumn(nil), tb.primaryKey...),
		indices:     append([]schema.Index(nil), tb.indices...),
		foreignKeys: append([]schema.ForeignKey(nil), tb.foreignKeys...),
		err:         tb.err,
	}
	if tb.primaryKey == nil {
		snapshot.primaryKey = nil
	}
	for name, typ := range tb.columnType {
		snapshot.columnType[name] = typ
	}
	return finalize(snapshot)
}

// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package schema

// Column is the definition of a single table column.
type Column struct {
	Name    string
	Type    ColumnType
	NotNull bool
}

// IndexedColumn names a column taking part in a key or an index.
type IndexedColumn struct {
	Name          string
	Order         Order
	AutoIncrement bool
}

// Index is a secondary index declared on a table.
type Index struct {
	Name    string
	Columns []IndexedColumn
	Unique  bool
	Type    IndexType
}

// ForeignKey relates a local column to a column of another table.
type ForeignKey struct {
	Name         string
	Local        string
	RemoteTable  string
	RemoteColumn string
}

// Table describes a table: its name, its ordered columns and its keys.
// A Table is built once by a table builder and must not be modified after it
// has been reported to a Registry.
type Table struct {
	name        string
	columns     []Column
	byName      map[string]int
	primaryKey  []IndexedColumn
	indices     []Index
	foreignKeys []ForeignKey
}

// NewTable returns an empty table definition.
func NewTable(name string) *Table {
	return &Table{name: name, byName: map[string]int{}}
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// AddColumn appends a column. It reports false if the name is taken.
func (t *Table) AddColumn(col Column) bool {
	if _, ok := t.byName[col.Name]; ok {
		return false
	}
	t.byName[col.Name] = len(t.columns)
	t.columns = append(t.columns, col)
	return true
}

// Column looks up a column by name.
func (t *Table) Column(name string) (Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Column{}, false
	}
	return t.columns[i], true
}

// Columns returns the columns in declaration order.
func (t *Table) Columns() []Column {
	cols := make([]Column, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// SetPrimaryKey sets the primary key columns.
func (t *Table) SetPrimaryKey(cols []IndexedColumn) {
	t.primaryKey = append([]IndexedColumn(nil), cols...)
}

// PrimaryKey returns the primary key columns, if any.
func (t *Table) PrimaryKey() []IndexedColumn {
	return append([]IndexedColumn(nil), t.primaryKey...)
}

// AddIndex appends an index declaration.
func (t *Table) AddIndex(idx Index) {
	t.indices = append(t.indices, idx)
}

// Indices returns the index declarations in declaration order.
func (t *Table) Indices() []Index {
	return append([]Index(nil), t.indices...)
}

// AddForeignKey appends a foreign key declaration.
func (t *Table) AddForeignKey(fk ForeignKey) {
	t.foreignKeys = append(t.foreignKeys, fk)
}

// ForeignKeys returns the foreign key declarations in declaration order.
func (t *Table) ForeignKeys() []ForeignKey {
	return append([]ForeignKey(nil), t.foreignKeys...)
}

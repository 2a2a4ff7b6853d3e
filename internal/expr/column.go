// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package expr

import (
	"fmt"

	"github.com/canonical/rdb/internal/schema"
)

// Column references a column of a table, possibly through a table alias.
// Columns are immutable and are shared, never owned, by predicates and
// builders.
type Column struct {
	def   schema.Column
	table string
	alias string
}

// Name returns the unqualified column name.
func (c *Column) Name() string {
	return c.def.Name
}

// Type returns the declared value type.
func (c *Column) Type() schema.ColumnType {
	return c.def.Type
}

// NotNull reports whether the column was declared not null.
func (c *Column) NotNull() bool {
	return c.def.NotNull
}

// Table returns the name of the table the column belongs to.
func (c *Column) Table() string {
	return c.table
}

// FullName returns the column name qualified by the table alias if there is
// one, by the table name otherwise.
func (c *Column) FullName() string {
	if c.alias != "" {
		return c.alias + "." + c.def.Name
	}
	return c.table + "." + c.def.Name
}

func (c *Column) selectSQL() string {
	return c.FullName()
}

// Table is a table schema as seen by queries: the schema plus an optional
// alias that qualifies its column references.
type Table struct {
	schema  *schema.Table
	alias   string
	columns []*Column
	byName  map[string]*Column
}

// NewTable wraps a table schema.
func NewTable(t *schema.Table) *Table {
	return newTable(t, "")
}

func newTable(t *schema.Table, alias string) *Table {
	tbl := &Table{schema: t, alias: alias, byName: map[string]*Column{}}
	for _, def := range t.Columns() {
		col := &Column{def: def, table: t.Name(), alias: alias}
		tbl.columns = append(tbl.columns, col)
		tbl.byName[def.Name] = col
	}
	return tbl
}

// As returns the same table under an alias. Columns of the returned table
// are qualified by the alias.
func (t *Table) As(alias string) *Table {
	return newTable(t.schema, alias)
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.schema.Name()
}

// Alias returns the alias, or the empty string.
func (t *Table) Alias() string {
	return t.alias
}

// Schema returns the underlying table schema.
func (t *Table) Schema() *schema.Table {
	return t.schema
}

// Column looks up a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	col, ok := t.byName[name]
	return col, ok
}

// Col is the same as Column except that it panics if there is no such
// column.
func (t *Table) Col(name string) *Column {
	col, ok := t.byName[name]
	if !ok {
		panic(fmt.Sprintf("table %q has no column %q", t.Name(), name))
	}
	return col
}

// Columns returns the columns in declaration order.
func (t *Table) Columns() []*Column {
	return append([]*Column(nil), t.columns...)
}

// fromSQL returns the table as written in a from or join clause.
func (t *Table) fromSQL() string {
	if t.alias != "" {
		return t.Name() + " " + t.alias
	}
	return t.Name()
}

// Selectable is an item of a select projection list.
type Selectable interface {
	selectSQL() string
}

// aggregate is a projection item computed by a function over a column.
type aggregate struct {
	fn     string
	column *Column
}

func (a *aggregate) selectSQL() string {
	if a.column == nil {
		return a.fn + "(*)"
	}
	if a.fn == "distinct" {
		return a.column.FullName()
	}
	return a.fn + "(" + a.column.FullName() + ")"
}

// FunctionProvider builds aggregate projection items.
type FunctionProvider struct{}

// Fn is the function provider.
var Fn FunctionProvider

func (FunctionProvider) Avg(c *Column) Selectable     { return &aggregate{"avg", c} }
func (FunctionProvider) Max(c *Column) Selectable     { return &aggregate{"max", c} }
func (FunctionProvider) Min(c *Column) Selectable     { return &aggregate{"min", c} }
func (FunctionProvider) Sum(c *Column) Selectable     { return &aggregate{"sum", c} }
func (FunctionProvider) Stddev(c *Column) Selectable  { return &aggregate{"stddev", c} }
func (FunctionProvider) Geomean(c *Column) Selectable { return &aggregate{"geomean", c} }

// Count counts the non-null values of the column, or the rows if no column
// is given.
func (FunctionProvider) Count(c ...*Column) Selectable {
	if len(c) == 0 {
		return &aggregate{fn: "count"}
	}
	return &aggregate{"count", c[0]}
}

// Distinct projects the column and makes the whole select distinct.
func (FunctionProvider) Distinct(c *Column) Selectable {
	return &aggregate{"distinct", c}
}

func isDistinct(s Selectable) bool {
	a, ok := s.(*aggregate)
	return ok && a.fn == "distinct"
}

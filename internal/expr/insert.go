// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package expr

import (
	"sort"

	"github.com/canonical/rdb/internal/errs"
	"github.com/canonical/rdb/internal/typeinfo"
)

// InsertBuilder builds insert statements of the form
//
//	insert [or replace ]into <table>(<c1>,<c2>) values(<v1>,<v2>), (...)
//
// The columns are those of the table, in declaration order, that at least one
// row supplies. Rows lacking one of them insert null.
type InsertBuilder struct {
	table   *Table
	rows    []map[string]any
	replace bool
	err     error
}

// NewInsert returns an insert builder. If replace is set, rows conflicting
// with existing ones replace them.
func NewInsert(replace bool) *InsertBuilder {
	return &InsertBuilder{replace: replace}
}

// Into sets the target table.
func (ib *InsertBuilder) Into(t *Table) *InsertBuilder {
	ib.table = t
	return ib
}

// Values appends rows. A row is a map from column names to values or a
// struct with fields tagged by column name, e.g. `db:"name"`.
func (ib *InsertBuilder) Values(rows ...any) *InsertBuilder {
	for _, row := range rows {
		vals, err := typeinfo.RowValues(row)
		if err != nil {
			ib.setErr(errs.Syntaxf("invalid row: %s", err))
			return ib
		}
		ib.rows = append(ib.rows, vals)
	}
	return ib
}

func (ib *InsertBuilder) setErr(err error) {
	if ib.err == nil {
		ib.err = err
	}
}

// Err returns the first configuration error.
func (ib *InsertBuilder) Err() error {
	return ib.err
}

// columns returns the names of the columns supplied by the rows.
func (ib *InsertBuilder) columns() ([]string, error) {
	supplied := map[string]bool{}
	for _, row := range ib.rows {
		for name := range row {
			supplied[name] = true
		}
	}
	var names []string
	for _, c := range ib.table.Columns() {
		if supplied[c.Name()] {
			names = append(names, c.Name())
			delete(supplied, c.Name())
		}
	}
	if len(supplied) > 0 {
		var unknown []string
		for name := range supplied {
			unknown = append(unknown, name)
		}
		// Sort for consistent error messages.
		sort.Strings(unknown)
		return nil, errs.Syntaxf("table %s has no column %q", ib.table.Name(), unknown[0])
	}
	return names, nil
}

// SQL compiles the insert statement.
func (ib *InsertBuilder) SQL() (string, error) {
	if ib.err != nil {
		return "", ib.err
	}
	if ib.table == nil {
		return "", errs.Syntaxf("insert without target table")
	}
	if len(ib.rows) == 0 {
		return "", errs.Syntaxf("insert into %s without values", ib.table.Name())
	}
	columns, err := ib.columns()
	if err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", errs.Syntaxf("insert into %s without columns", ib.table.Name())
	}

	var b sqlBuilder
	if ib.replace {
		b.write("insert or replace into ")
	} else {
		b.write("insert into ")
	}
	b.write(ib.table.Name(), "(")
	writeCommaSeparatedList(&b, ",", columns, func(_ int, name string) string {
		return name
	})
	b.write(") values")
	writeCommaSeparatedList(&b, ", ", ib.rows, func(_ int, row map[string]any) string {
		var rb sqlBuilder
		rb.write("(")
		writeCommaSeparatedList(&rb, ",", columns, func(_ int, name string) string {
			col, _ := ib.table.Column(name)
			return evalFor(col.Type(), row[name])
		})
		rb.write(")")
		return rb.getSQL()
	})
	return b.getSQL(), nil
}

// Statements returns the insert statement.
func (ib *InsertBuilder) Statements() ([]string, error) {
	return single(ib)
}

// Bind sets the values of the builder's bindables by index and returns the
// builder.
func (ib *InsertBuilder) Bind(values ...any) *InsertBuilder {
	bindValues(ib, values)
	return ib
}

// BinderMap returns the bindables used as row values.
func (ib *InsertBuilder) BinderMap() BinderMap {
	return binderMap(ib)
}

func (ib *InsertBuilder) walkBinders(fn func(*Bindable)) {
	for _, row := range ib.rows {
		// Walk in a fixed order so that the first holder of an index is
		// always the same one.
		names := make([]string, 0, len(row))
		for name := range row {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if b, ok := row[name].(*Bindable); ok {
				fn(b)
			}
		}
	}
}

// Clone returns a deep copy of the builder.
func (ib *InsertBuilder) Clone() *InsertBuilder {
	c := cloner{}
	nib := &InsertBuilder{table: ib.table, replace: ib.replace, err: ib.err}
	for _, row := range ib.rows {
		nrow := make(map[string]any, len(row))
		for name, v := range row {
			nrow[name] = c.operand(v)
		}
		nib.rows = append(nib.rows, nrow)
	}
	return nib
}

func (ib *InsertBuilder) cloneBuilder() (builder, error) {
	return ib.Clone(), nil
}

// Finalize compiles a copy of the builder into a Statement.
func (ib *InsertBuilder) Finalize() (*Statement, error) {
	return finalize(ib.Clone())
}

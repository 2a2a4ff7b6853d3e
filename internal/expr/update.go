// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package expr

import (
	"github.com/canonical/rdb/internal/errs"
)

type setter struct {
	column *Column
	value  any
}

// UpdateBuilder builds update statements of the form
//
//	update <table> set <col>=<val>, ...[ where <p>]
type UpdateBuilder struct {
	table   *Table
	setters []setter
	where   Predicate
	err     error
}

// NewUpdate returns a builder updating rows of the table.
func NewUpdate(t *Table) *UpdateBuilder {
	return &UpdateBuilder{table: t}
}

// Set assigns a value, literal or bindable, to a column of the target table.
func (ub *UpdateBuilder) Set(c *Column, value any) *UpdateBuilder {
	if c.Table() != ub.table.Name() {
		ub.setErr(errs.Syntaxf("column %s does not belong to table %s", c.FullName(), ub.table.Name()))
		return ub
	}
	ub.setters = append(ub.setters, setter{column: c, value: value})
	return ub
}

// Where sets the search condition.
func (ub *UpdateBuilder) Where(p Predicate) *UpdateBuilder {
	ub.where = p
	return ub
}

func (ub *UpdateBuilder) setErr(err error) {
	if ub.err == nil {
		ub.err = err
	}
}

// Err returns the first configuration error.
func (ub *UpdateBuilder) Err() error {
	return ub.err
}

// SQL compiles the update statement.
func (ub *UpdateBuilder) SQL() (string, error) {
	if ub.err != nil {
		return "", ub.err
	}
	if len(ub.setters) == 0 {
		return "", errs.Syntaxf("update of %s sets no columns", ub.table.Name())
	}

	var b sqlBuilder
	b.write("update ", ub.table.Name(), " set ")
	writeCommaSeparatedList(&b, ", ", ub.setters, func(_ int, s setter) string {
		return s.column.Name() + "=" + evalFor(s.column.Type(), s.value)
	})
	if ub.where != nil {
		where, err := ub.where.SQL()
		if err != nil {
			return "", err
		}
		b.write(" where ", where)
	}
	return b.getSQL(), nil
}

// Statements returns the update statement.
func (ub *UpdateBuilder) Statements() ([]string, error) {
	return single(ub)
}

// Bind sets the values of the builder's bindables by index and returns the
// builder.
func (ub *UpdateBuilder) Bind(values ...any) *UpdateBuilder {
	bindValues(ub, values)
	return ub
}

// BinderMap returns the bindables of the search condition and of the set
// values.
func (ub *UpdateBuilder) BinderMap() BinderMap {
	m := BinderMap{}
	if ub.where != nil {
		ub.where.CollectBinders(m)
	}
	for _, s := range ub.setters {
		if b, ok := s.value.(*Bindable); ok {
			m.add(b)
		}
	}
	return m
}

func (ub *UpdateBuilder) walkBinders(fn func(*Bindable)) {
	if ub.where != nil {
		ub.where.walkBinders(fn)
	}
	for _, s := range ub.setters {
		if b, ok := s.value.(*Bindable); ok {
			fn(b)
		}
	}
}

// Clone returns a deep copy of the builder.
func (ub *UpdateBuilder) Clone() *UpdateBuilder {
	c := cloner{}
	nub := &UpdateBuilder{table: ub.table, err: ub.err}
	if ub.where != nil {
		nub.where = ub.where.clone(c)
	}
	for _, s := range ub.setters {
		nub.setters = append(nub.setters, setter{column: s.column, value: c.operand(s.value)})
	}
	return nub
}

func (ub *UpdateBuilder) cloneBuilder() (builder, error) {
	return ub.Clone(), nil
}

// Finalize compiles a copy of the builder into a Statement.
func (ub *UpdateBuilder) Finalize() (*Statement, error) {
	return finalize(ub.Clone())
}

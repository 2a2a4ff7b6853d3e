// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package expr

import (
	"github.com/canonical/rdb/internal/errs"
)

// DeleteBuilder builds statements of the form
//
//	delete from <table>[ where <p>]
type DeleteBuilder struct {
	table *Table
	where Predicate
}

// NewDelete returns an empty delete builder.
func NewDelete() *DeleteBuilder {
	return &DeleteBuilder{}
}

// From sets the table to delete from.
func (db *DeleteBuilder) From(t *Table) *DeleteBuilder {
	db.table = t
	return db
}

// Where sets the search condition.
func (db *DeleteBuilder) Where(p Predicate) *DeleteBuilder {
	db.where = p
	return db
}

// SQL compiles the delete statement.
func (db *DeleteBuilder) SQL() (string, error) {
	if db.table == nil {
		return "", errs.Syntaxf("delete without target table")
	}
	sql := "delete from " + db.table.Name()
	if db.where != nil {
		where, err := db.where.SQL()
		if err != nil {
			return "", err
		}
		sql += " where " + where
	}
	return sql, nil
}

// Statements returns the delete statement.
func (db *DeleteBuilder) Statements() ([]string, error) {
	return single(db)
}

// Bind sets the values of the builder's bindables by index and returns the
// builder.
func (db *DeleteBuilder) Bind(values ...any) *DeleteBuilder {
	bindValues(db, values)
	return db
}

// BinderMap returns the bindables of the search condition.
func (db *DeleteBuilder) BinderMap() BinderMap {
	m := BinderMap{}
	if db.where != nil {
		db.where.CollectBinders(m)
	}
	return m
}

func (db *DeleteBuilder) walkBinders(fn func(*Bindable)) {
	if db.where != nil {
		db.where.walkBinders(fn)
	}
}

// Clone returns a deep copy of the builder.
func (db *DeleteBuilder) Clone() *DeleteBuilder {
	return &DeleteBuilder{table: db.table, where: ClonePredicate(db.where)}
}

func (db *DeleteBuilder) cloneBuilder() (builder, error) {
	return db.Clone(), nil
}

// Finalize compiles a copy of the builder into a Statement.
func (db *DeleteBuilder) Finalize() (*Statement, error) {
	return finalize(db.Clone())
}

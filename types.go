// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package rdb

import (
	"github.com/canonical/rdb/internal/driver"
	"github.com/canonical/rdb/internal/errs"
	"github.com/canonical/rdb/internal/expr"
	"github.com/canonical/rdb/internal/schema"
	"github.com/canonical/rdb/internal/txn"
)

// Error kinds. Use errors.Is to check the kind of an error returned by a
// builder or a transaction. Errors of the database are returned unchanged
// and are of none of these kinds.
var (
	ErrSyntax        = errs.Syntax
	ErrInvalidSchema = errs.InvalidSchema
	ErrUnsupported   = errs.Unsupported
	ErrTxState       = errs.TxState
)

type (
	Bindable      = expr.Bindable
	BinderMap     = expr.BinderMap
	Predicate     = expr.Predicate
	Column        = expr.Column
	Table         = expr.Table
	Selectable    = expr.Selectable
	Statement     = expr.Statement
	SelectBuilder = expr.SelectBuilder
	InsertBuilder = expr.InsertBuilder
	UpdateBuilder = expr.UpdateBuilder
	DeleteBuilder = expr.DeleteBuilder
	TableBuilder  = expr.TableBuilder
	PrimaryKey    = expr.PrimaryKey

	ColumnType    = schema.ColumnType
	Order         = schema.Order
	Index         = schema.Index
	IndexType     = schema.IndexType
	IndexedColumn = schema.IndexedColumn

	Transaction = txn.Transaction
	TxMode      = txn.Mode
	TxState     = txn.State
	// Query is a builder or a statement that can be attached to a
	// transaction.
	Query = txn.Query

	Row  = driver.Row
	Rows = driver.Rows
)

const (
	Integer = schema.Integer
	Number  = schema.Number
	String  = schema.String
	Date    = schema.Date
	Boolean = schema.Boolean
	Blob    = schema.Blob
	Object  = schema.Object

	Asc  = schema.Asc
	Desc = schema.Desc

	BTree    = schema.BTree
	Fulltext = schema.Fulltext

	ReadOnly  = txn.ReadOnly
	ReadWrite = txn.ReadWrite

	TxInitial    = txn.Initial
	TxStarted    = txn.Started
	TxCommitted  = txn.Committed
	TxRolledBack = txn.RolledBack
	TxFailed     = txn.Failed
)

// Fn provides the aggregate functions of select projections.
var Fn = expr.Fn

// And returns the conjunction of the predicates.
func And(preds ...Predicate) Predicate {
	return expr.And(preds...)
}

// Or returns the disjunction of the predicates.
func Or(preds ...Predicate) Predicate {
	return expr.Or(preds...)
}

// Not returns the negation of the predicate.
func Not(pred Predicate) Predicate {
	return expr.Not(pred)
}

// PK declares a primary key over one or more columns.
func PK(names ...string) PrimaryKey {
	return expr.PK(names...)
}

// AutoIncrementPK declares an auto incremented integer primary key.
func AutoIncrementPK(name string) PrimaryKey {
	return expr.AutoIncrementPK(name)
}

// PKColumns declares a primary key with per column ordering.
func PKColumns(cols ...IndexedColumn) PrimaryKey {
	return expr.PKColumns(cols...)
}

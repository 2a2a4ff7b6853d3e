// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package txn

import (
	"context"

	"github.com/canonical/rdb/internal/driver"
)

const (
	beginSQL  = "begin transaction"
	commitSQL = "commit"
)

// ExecutionContext accumulates the SQL statements of one unit of work.
type ExecutionContext struct {
	stmts []string
}

// Prepare appends a statement.
func (ec *ExecutionContext) Prepare(sql string) {
	ec.stmts = append(ec.stmts, sql)
}

// Inspect returns a copy of the accumulated statements.
func (ec *ExecutionContext) Inspect() []string {
	return append([]string(nil), ec.stmts...)
}

// Batch returns the statements wrapped in a begin/commit pair.
func (ec *ExecutionContext) Batch() []string {
	batch := make([]string, 0, len(ec.stmts)+2)
	batch = append(batch, beginSQL)
	batch = append(batch, ec.stmts...)
	return append(batch, commitSQL)
}

// commit submits the batch to the database as one unit.
func (ec *ExecutionContext) commit(ctx context.Context, native driver.Native) (driver.Rows, error) {
	return native.Run(ctx, ec.Batch())
}

// rollback discards the accumulated statements. Nothing has reached the
// database yet.
func (ec *ExecutionContext) rollback() {
	ec.stmts = nil
}

// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package txn batches compiled statements into transactions and submits
// them to the database.
package txn

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/canonical/rdb/internal/driver"
	"github.com/canonical/rdb/internal/errs"
	"github.com/canonical/rdb/internal/schema"
)

// Mode is the access mode of a transaction.
type Mode int

const (
	ReadWrite Mode = iota
	ReadOnly
)

func (m Mode) String() string {
	if m == ReadOnly {
		return "readonly"
	}
	return "readwrite"
}

// State is the state of a transaction.
type State int

const (
	Initial State = iota
	Started
	Committed
	RolledBack
	Failed
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case Started:
		return "started"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled back"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Query is anything that compiles to SQL statements: a builder or a
// finalized statement.
type Query interface {
	Statements() ([]string, error)
}

// SchemaChanger is a query that changes the schema registry once committed.
type SchemaChanger interface {
	SchemaChanges() []schema.Change
}

// readOnlyQuery is a query that can report whether it only reads.
type readOnlyQuery interface {
	ReadOnly() bool
}

// Transaction groups queries into a single batch submitted atomically.
//
//	Initial -> Started -> Committed | RolledBack | Failed
//
// Schema changes of attached queries are applied to the registry only once
// the batch has been committed.
type Transaction struct {
	id       uuid.UUID
	mode     Mode
	native   driver.Native
	registry *schema.Registry
	logger   *slog.Logger

	mutex   sync.Mutex
	state   State
	ec      *ExecutionContext
	pending []schema.Change
}

// New returns a transaction on the database. If logger is nil,
// slog.Default() is used.
func New(native driver.Native, registry *schema.Registry, mode Mode, logger *slog.Logger) *Transaction {
	if logger == nil {
		logger = slog.Default()
	}
	id := uuid.New()
	return &Transaction{
		id:       id,
		mode:     mode,
		native:   native,
		registry: registry,
		logger:   logger.With("tx", id.String()),
		ec:       &ExecutionContext{},
	}
}

// ID returns the unique ID of the transaction.
func (tx *Transaction) ID() uuid.UUID {
	return tx.id
}

// Mode returns the access mode.
func (tx *Transaction) Mode() Mode {
	return tx.mode
}

// State returns the current state.
func (tx *Transaction) State() State {
	tx.mutex.Lock()
	defer tx.mutex.Unlock()
	return tx.state
}

// Context returns the statements attached so far.
func (tx *Transaction) Context() []string {
	tx.mutex.Lock()
	defer tx.mutex.Unlock()
	return tx.ec.Inspect()
}

// Begin starts the transaction.
func (tx *Transaction) Begin(ctx context.Context) error {
	tx.mutex.Lock()
	defer tx.mutex.Unlock()
	if tx.state != Initial {
		return errs.TxStatef("cannot begin transaction in state %s", tx.state)
	}
	tx.state = Started
	tx.logger.DebugContext(ctx, "transaction started", "mode", tx.mode)
	return nil
}

// Attach compiles q and appends its statements to the transaction. If q
// fails to compile, its error is returned and the transaction is unchanged.
func (tx *Transaction) Attach(ctx context.Context, q Query) error {
	tx.mutex.Lock()
	defer tx.mutex.Unlock()
	if tx.state != Started {
		return errs.TxStatef("cannot attach to transaction in state %s", tx.state)
	}
	if tx.mode == ReadOnly {
		if ro, ok := q.(readOnlyQuery); !ok || !ro.ReadOnly() {
			return errs.Syntaxf("cannot attach a write to a readonly transaction")
		}
	}
	stmts, err := q.Statements()
	if err != nil {
		return err
	}
	for _, s := range stmts {
		tx.ec.Prepare(s)
	}
	if sc, ok := q.(SchemaChanger); ok {
		tx.pending = append(tx.pending, sc.SchemaChanges()...)
	}
	return nil
}

// Commit submits the attached statements as one batch. On success the
// pending schema changes are applied in attach order. On failure the
// transaction is failed, the registry is untouched, and the error of the
// database is returned as is.
func (tx *Transaction) Commit(ctx context.Context) (driver.Rows, error) {
	tx.mutex.Lock()
	defer tx.mutex.Unlock()
	if tx.state != Started {
		return nil, errs.TxStatef("cannot commit transaction in state %s", tx.state)
	}
	rows, err := tx.ec.commit(ctx, tx.native)
	if err != nil {
		tx.state = Failed
		tx.pending = nil
		tx.logger.ErrorContext(ctx, "transaction failed", "err", err)
		return nil, err
	}
	tx.registry.Apply(tx.pending...)
	tx.logger.DebugContext(ctx, "transaction committed",
		"statements", len(tx.ec.stmts), "schema_changes", len(tx.pending))
	tx.pending = nil
	tx.state = Committed
	return rows, nil
}

// Rollback discards the attached statements.
func (tx *Transaction) Rollback(ctx context.Context) error {
	tx.mutex.Lock()
	defer tx.mutex.Unlock()
	if tx.state != Started {
		return errs.TxStatef("cannot roll back transaction in state %s", tx.state)
	}
	tx.rollback(ctx)
	return nil
}

func (tx *Transaction) rollback(ctx context.Context) {
	tx.ec.rollback()
	tx.pending = nil
	tx.state = RolledBack
	tx.logger.DebugContext(ctx, "transaction rolled back")
}

// Exec begins the transaction, attaches each query and commits. If a query
// fails to attach, the transaction is rolled back and the error returned.
func (tx *Transaction) Exec(ctx context.Context, qs ...Query) (driver.Rows, error) {
	if err := tx.Begin(ctx); err != nil {
		return nil, err
	}
	for _, q := range qs {
		if err := tx.Attach(ctx, q); err != nil {
			tx.mutex.Lock()
			tx.rollback(ctx)
			tx.mutex.Unlock()
			return nil, err
		}
	}
	return tx.Commit(ctx)
}

// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package errs defines the error kinds shared by the builders and the
// transaction machinery. Errors returned by the backing store are never
// wrapped in one of these kinds.
package errs

import (
	"github.com/pkg/errors"
)

var (
	// Syntax is the kind of errors caused by structurally invalid builder
	// usage, such as setting a column from another table.
	Syntax = errors.New("syntax error")
	// InvalidSchema is the kind of errors caused by schema declarations
	// that violate a structural rule.
	InvalidSchema = errors.New("invalid schema")
	// Unsupported is the kind of errors returned by operations a builder
	// kind does not implement.
	Unsupported = errors.New("unsupported operation")
	// TxState is the kind of errors returned when a transaction operation
	// is attempted in the wrong state.
	TxState = errors.New("invalid transaction state")
)

// Syntaxf returns an error of kind Syntax.
func Syntaxf(format string, args ...any) error {
	return errors.Wrapf(Syntax, format, args...)
}

// InvalidSchemaf returns an error of kind InvalidSchema.
func InvalidSchemaf(format string, args ...any) error {
	return errors.Wrapf(InvalidSchema, format, args...)
}

// Unsupportedf returns an error of kind Unsupported.
func Unsupportedf(format string, args ...any) error {
	return errors.Wrapf(Unsupported, format, args...)
}

// TxStatef returns an error of kind TxState.
func TxStatef(format string, args ...any) error {
	return errors.Wrapf(TxState, format, args...)
}

// Is reports whether err is of the given kind.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}

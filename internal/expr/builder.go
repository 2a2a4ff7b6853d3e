// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package expr

import (
	"bytes"

	"github.com/canonical/rdb/internal/schema"
)

// builder is implemented by every query builder kind.
type builder interface {
	// SQL compiles the builder into a single SQL statement.
	SQL() (string, error)
	// Statements returns every statement to run for the builder, in order.
	Statements() ([]string, error)
	// walkBinders calls fn for every bindable reachable from the builder.
	walkBinders(fn func(*Bindable))
	// cloneBuilder returns an independent deep copy.
	cloneBuilder() (builder, error)
}

// bindValues sets every bindable of index i reachable from b to values[i].
// Bindables with an index outside of values keep their current value.
func bindValues(b builder, values []any) {
	b.walkBinders(func(h *Bindable) {
		if h.index < len(values) {
			h.Set(values[h.index])
		}
	})
}

// binderMap collects the bindables of b, the first holder found for an index
// winning.
func binderMap(b builder) BinderMap {
	m := BinderMap{}
	b.walkBinders(m.add)
	return m
}

// Statement is the compiled form of a builder. It is produced by Finalize and
// cannot be reconfigured; only its bindable values can change.
type Statement struct {
	b builder
}

func finalize(b builder) (*Statement, error) {
	if _, err := b.Statements(); err != nil {
		return nil, err
	}
	return &Statement{b: b}, nil
}

// SQL returns the SQL of the statement under the current binding.
func (s *Statement) SQL() (string, error) {
	return s.b.SQL()
}

// Statements returns every SQL statement to run, in order.
func (s *Statement) Statements() ([]string, error) {
	return s.b.Statements()
}

// Bind sets the values of the statement's bindables by index.
func (s *Statement) Bind(values ...any) *Statement {
	bindValues(s.b, values)
	return s
}

// BinderMap returns the bindables of the statement by index.
func (s *Statement) BinderMap() BinderMap {
	return binderMap(s.b)
}

// Clone returns an independent copy of the statement.
func (s *Statement) Clone() (*Statement, error) {
	b, err := s.b.cloneBuilder()
	if err != nil {
		return nil, err
	}
	return &Statement{b: b}, nil
}

// ReadOnly reports whether the statement only reads.
func (s *Statement) ReadOnly() bool {
	_, ok := s.b.(*SelectBuilder)
	return ok
}

// SchemaChanges returns the registry updates to apply once the statement
// has been committed.
func (s *Statement) SchemaChanges() []schema.Change {
	if tb, ok := s.b.(*TableBuilder); ok {
		return tb.SchemaChanges()
	}
	return nil
}

// single wraps the SQL of a builder that compiles to one statement.
func single(b builder) ([]string, error) {
	sql, err := b.SQL()
	if err != nil {
		return nil, err
	}
	return []string{sql}, nil
}

// sqlBuilder is used to generate SQL string piece by piece using the struct
// methods.
type sqlBuilder struct {
	buf bytes.Buffer
}

// writeCommaSeparatedList writes out the provided list using the writer to
// write each element into the SQL.
func writeCommaSeparatedList[T any](b *sqlBuilder, sep string, list []T, writer func(i int, v T) string) {
	for i, v := range list {
		if i != 0 {
			b.buf.WriteString(sep)
		}
		b.buf.WriteString(writer(i, v))
	}
}

// write writes the SQL to the sqlBuilder.
func (b *sqlBuilder) write(sql ...string) {
	for _, s := range sql {
		b.buf.WriteString(s)
	}
}

// getSQL returns the generated SQL string
func (b *sqlBuilder) getSQL() string {
	return b.buf.String()
}

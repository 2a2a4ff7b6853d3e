// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package expr

import (
	"reflect"

	"github.com/canonical/rdb/internal/errs"
	"github.com/canonical/rdb/internal/schema"
)

type join struct {
	table *Table
	on    Predicate
}

type ordering struct {
	column *Column
	order  schema.Order
}

type setOp struct {
	op    string
	query *SelectBuilder
}

// SelectBuilder builds select statements.
//
// Compiled statements have the form:
//
//	select [distinct] <columns> from <sources>[ inner join <t> on <p>]*
//	[ where <p>][ order by <c> <dir>, ...][ group by <c>, ...]
//	[ limit <n>][ skip <n>][ union|intersect (<select>)]*
type SelectBuilder struct {
	columns []Selectable
	from    []*Table
	joins   []join
	where   Predicate
	orderBy []ordering
	groupBy []*Column
	limit   any
	skip    any
	setOps  []setOp
	// err is the first configuration error, reported on compilation.
	err error
}

// NewSelect returns a builder projecting the given columns, or every column
// if there are none.
func NewSelect(columns ...Selectable) *SelectBuilder {
	return &SelectBuilder{columns: columns}
}

// From adds the tables to the sources of the select.
func (sb *SelectBuilder) From(tables ...*Table) *SelectBuilder {
	sb.from = append(sb.from, tables...)
	return sb
}

// Where sets the search condition.
func (sb *SelectBuilder) Where(p Predicate) *SelectBuilder {
	sb.where = p
	return sb
}

// InnerJoin joins the table on the predicate.
func (sb *SelectBuilder) InnerJoin(t *Table, on Predicate) *SelectBuilder {
	if t == nil || on == nil {
		sb.setErr(errs.Syntaxf("inner join needs a table and a condition"))
		return sb
	}
	sb.joins = append(sb.joins, join{table: t, on: on})
	return sb
}

// OrderBy appends an ordering column. The order defaults to ascending.
func (sb *SelectBuilder) OrderBy(c *Column, order ...schema.Order) *SelectBuilder {
	o := schema.Asc
	if len(order) > 0 {
		o = order[0]
	}
	if !o.Valid() {
		sb.setErr(errs.Syntaxf("invalid sort order %q", o))
		return sb
	}
	sb.orderBy = append(sb.orderBy, ordering{column: c, order: o})
	return sb
}

// GroupBy appends grouping columns.
func (sb *SelectBuilder) GroupBy(columns ...*Column) *SelectBuilder {
	sb.groupBy = append(sb.groupBy, columns...)
	return sb
}

// Limit bounds the number of rows returned. n is a non-negative integer or a
// bindable.
func (sb *SelectBuilder) Limit(n any) *SelectBuilder {
	if err := checkCount(n); err != nil {
		sb.setErr(err)
		return sb
	}
	sb.limit = n
	return sb
}

// Skip skips the first n rows. n is a non-negative integer or a bindable.
func (sb *SelectBuilder) Skip(n any) *SelectBuilder {
	if err := checkCount(n); err != nil {
		sb.setErr(err)
		return sb
	}
	sb.skip = n
	return sb
}

// Union appends the rows of another select.
func (sb *SelectBuilder) Union(q *SelectBuilder) *SelectBuilder {
	sb.setOps = append(sb.setOps, setOp{op: "union", query: q})
	return sb
}

// Intersect keeps only the rows also returned by another select.
func (sb *SelectBuilder) Intersect(q *SelectBuilder) *SelectBuilder {
	sb.setOps = append(sb.setOps, setOp{op: "intersect", query: q})
	return sb
}

func checkCount(n any) error {
	if _, ok := n.(*Bindable); ok {
		return nil
	}
	rv := reflect.ValueOf(n)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if rv.Int() < 0 {
			return errs.Syntaxf("negative row count %d", rv.Int())
		}
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return nil
	}
	return errs.Syntaxf("row count must be an integer or a bindable, got %T", n)
}

func (sb *SelectBuilder) setErr(err error) {
	if sb.err == nil {
		sb.err = err
	}
}

// Err returns the first configuration error.
func (sb *SelectBuilder) Err() error {
	return sb.err
}

// SQL compiles the select statement.
func (sb *SelectBuilder) SQL() (string, error) {
	if sb.err != nil {
		return "", sb.err
	}
	if len(sb.from) == 0 {
		return "", errs.Syntaxf("select without from")
	}

	var b sqlBuilder
	b.write("select ")
	for _, c := range sb.columns {
		if isDistinct(c) {
			b.write("distinct ")
			break
		}
	}
	if len(sb.columns) == 0 {
		b.write("*")
	}
	writeCommaSeparatedList(&b, ", ", sb.columns, func(_ int, c Selectable) string {
		return c.selectSQL()
	})

	b.write(" from ")
	writeCommaSeparatedList(&b, ", ", sb.from, func(_ int, t *Table) string {
		return t.fromSQL()
	})

	for _, j := range sb.joins {
		on, err := j.on.SQL()
		if err != nil {
			return "", err
		}
		b.write(" inner join ", j.table.fromSQL(), " on ", on)
	}

	if sb.where != nil {
		where, err := sb.where.SQL()
		if err != nil {
			return "", err
		}
		b.write(" where ", where)
	}

	if len(sb.orderBy) > 0 {
		b.write(" order by ")
		writeCommaSeparatedList(&b, ", ", sb.orderBy, func(_ int, o ordering) string {
			return o.column.FullName() + " " + string(o.order)
		})
	}

	if len(sb.groupBy) > 0 {
		b.write(" group by ")
		writeCommaSeparatedList(&b, ", ", sb.groupBy, func(_ int, c *Column) string {
			return c.FullName()
		})
	}

	if sb.limit != nil {
		b.write(" limit ", eval(sb.limit, "", ""))
	}
	if sb.skip != nil {
		b.write(" skip ", eval(sb.skip, "", ""))
	}

	for _, op := range sb.setOps {
		sub, err := op.query.SQL()
		if err != nil {
			return "", err
		}
		b.write(" ", op.op, " (", sub, ")")
	}
	return b.getSQL(), nil
}

// Statements returns the select statement.
func (sb *SelectBuilder) Statements() ([]string, error) {
	return single(sb)
}

// ReadOnly reports true: selects never write.
func (sb *SelectBuilder) ReadOnly() bool {
	return true
}

// Bind sets the values of the builder's bindables by index and returns the
// builder.
func (sb *SelectBuilder) Bind(values ...any) *SelectBuilder {
	bindValues(sb, values)
	return sb
}

// BinderMap returns the bindables reachable from the search condition, the
// joins, the row counts and the set operations. Indices of nested selects
// never overwrite those already found.
func (sb *SelectBuilder) BinderMap() BinderMap {
	m := BinderMap{}
	for _, j := range sb.joins {
		j.on.CollectBinders(m)
	}
	if sb.where != nil {
		sb.where.CollectBinders(m)
	}
	for _, v := range []any{sb.limit, sb.skip} {
		if b, ok := v.(*Bindable); ok {
			m.add(b)
		}
	}
	for _, op := range sb.setOps {
		m.merge(op.query.BinderMap())
	}
	return m
}

func (sb *SelectBuilder) walkBinders(fn func(*Bindable)) {
	for _, j := range sb.joins {
		j.on.walkBinders(fn)
	}
	if sb.where != nil {
		sb.where.walkBinders(fn)
	}
	for _, v := range []any{sb.limit, sb.skip} {
		if b, ok := v.(*Bindable); ok {
			fn(b)
		}
	}
	for _, op := range sb.setOps {
		op.query.walkBinders(fn)
	}
}

// Clone returns a deep copy of the builder. Binding the copy never affects
// the original.
func (sb *SelectBuilder) Clone() *SelectBuilder {
	return sb.cloneWith(cloner{})
}

func (sb *SelectBuilder) cloneWith(c cloner) *SelectBuilder {
	nsb := &SelectBuilder{
		columns: append([]Selectable(nil), sb.columns...),
		from:    append([]*Table(nil), sb.from...),
		groupBy: append([]*Column(nil), sb.groupBy...),
		orderBy: append([]ordering(nil), sb.orderBy...),
		limit:   c.operand(sb.limit),
		skip:    c.operand(sb.skip),
		err:     sb.err,
	}
	for _, j := range sb.joins {
		nsb.joins = append(nsb.joins, join{table: j.table, on: j.on.clone(c)})
	}
	if sb.where != nil {
		nsb.where = sb.where.clone(c)
	}
	for _, op := range sb.setOps {
		nsb.setOps = append(nsb.setOps, setOp{op: op.op, query: op.query.cloneWith(c)})
	}
	return nsb
}

func (sb *SelectBuilder) cloneBuilder() (builder, error) {
	return sb.Clone(), nil
}

// Finalize compiles a copy of the builder into a Statement.
func (sb *SelectBuilder) Finalize() (*Statement, error) {
	return finalize(sb.Clone())
}

// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package expr

import (
	"fmt"
	"strings"

	"github.com/canonical/rdb/internal/errs"
)

// A Predicate is a boolean SQL expression over columns, literals and
// bindable values. The set of predicates is closed: it is made of the
// variants defined in this file.
type Predicate interface {
	// SQL returns the SQL fragment of the predicate. It is deterministic
	// and has no side effects.
	SQL() (string, error)

	// CollectBinders adds every bindable reachable from the predicate to m.
	// Indices already present in m are left untouched.
	CollectBinders(m BinderMap)

	// walkBinders calls fn for every bindable reachable from the predicate,
	// including those sharing an index with another.
	walkBinders(fn func(*Bindable))

	// clone returns a deep copy of the predicate.
	clone(c cloner) Predicate

	// predicate is a marker method.
	predicate()
}

func collectBinders(p Predicate, m BinderMap) {
	p.walkBinders(m.add)
}

// ClonePredicate returns a deep copy of p. Bindables in the copy are
// independent from those in p.
func ClonePredicate(p Predicate) Predicate {
	if p == nil {
		return nil
	}
	return p.clone(cloner{})
}

// unaryPredicate is a column followed by a fixed suffix, e.g. "is null".
type unaryPredicate struct {
	column *Column
	suffix string
}

func (p *unaryPredicate) SQL() (string, error) {
	return p.column.FullName() + " " + p.suffix, nil
}

func (p *unaryPredicate) CollectBinders(m BinderMap) {}

func (p *unaryPredicate) walkBinders(fn func(*Bindable)) {}

func (p *unaryPredicate) clone(c cloner) Predicate {
	np := *p
	return &np
}

// Marker function for Predicate.
func (p *unaryPredicate) predicate() {}

// binaryPredicate compares a column with an operand. String literals may be
// wrapped by a prefix and a postfix.
type binaryPredicate struct {
	column  *Column
	op      string
	operand any
	prefix  string
	postfix string
}

func (p *binaryPredicate) SQL() (string, error) {
	return p.column.FullName() + " " + p.op + " " + eval(p.operand, p.prefix, p.postfix), nil
}

func (p *binaryPredicate) CollectBinders(m BinderMap) {
	collectBinders(p, m)
}

func (p *binaryPredicate) walkBinders(fn func(*Bindable)) {
	if b, ok := p.operand.(*Bindable); ok {
		fn(b)
	}
}

func (p *binaryPredicate) clone(c cloner) Predicate {
	np := *p
	np.operand = c.operand(p.operand)
	return &np
}

// Marker function for Predicate.
func (p *binaryPredicate) predicate() {}

// ternaryPredicate relates a column to two operands joined by a keyword, as
// in "between 1 and 10".
type ternaryPredicate struct {
	column  *Column
	op      string
	keyword string
	lhs     any
	rhs     any
}

func (p *ternaryPredicate) SQL() (string, error) {
	return p.column.FullName() + " " + p.op + " " +
		eval(p.lhs, "", "") + " " + p.keyword + " " + eval(p.rhs, "", ""), nil
}

func (p *ternaryPredicate) CollectBinders(m BinderMap) {
	collectBinders(p, m)
}

func (p *ternaryPredicate) walkBinders(fn func(*Bindable)) {
	for _, v := range []any{p.lhs, p.rhs} {
		if b, ok := v.(*Bindable); ok {
			fn(b)
		}
	}
}

func (p *ternaryPredicate) clone(c cloner) Predicate {
	np := *p
	np.lhs = c.operand(p.lhs)
	np.rhs = c.operand(p.rhs)
	return &np
}

// Marker function for Predicate.
func (p *ternaryPredicate) predicate() {}

// inPredicate tests a column for membership in a literal list, in the value
// bound to a bindable, or in the results of a nested select. Exactly one of
// values, binder and subquery is used, unless err is set.
type inPredicate struct {
	column   *Column
	values   []any
	binder   *Bindable
	subquery *SelectBuilder
	err      error
}

func (p *inPredicate) SQL() (string, error) {
	if p.err != nil {
		return "", p.err
	}
	var rhs string
	switch {
	case p.subquery != nil:
		sql, err := p.subquery.SQL()
		if err != nil {
			return "", err
		}
		rhs = sql
	case p.binder != nil:
		v, bound := p.binder.Value()
		if list, ok := listValues(v); bound && ok {
			rhs = evalList(list)
		} else {
			rhs = p.binder.String()
		}
	default:
		rhs = evalList(p.values)
	}
	return p.column.FullName() + " in (" + rhs + ")", nil
}

func evalList(vals []any) string {
	items := make([]string, len(vals))
	for i, v := range vals {
		items[i] = eval(v, "", "")
	}
	return strings.Join(items, ", ")
}

func (p *inPredicate) CollectBinders(m BinderMap) {
	if p.subquery != nil {
		// The nested select builds its own map, which is merged without
		// overwriting indices already collected.
		m.merge(p.subquery.BinderMap())
		return
	}
	collectBinders(p, m)
}

func (p *inPredicate) walkBinders(fn func(*Bindable)) {
	switch {
	case p.subquery != nil:
		p.subquery.walkBinders(fn)
	case p.binder != nil:
		fn(p.binder)
	default:
		for _, v := range p.values {
			if b, ok := v.(*Bindable); ok {
				fn(b)
			}
		}
	}
}

func (p *inPredicate) clone(c cloner) Predicate {
	np := &inPredicate{column: p.column, binder: c.bindable(p.binder), err: p.err}
	if p.values != nil {
		np.values = make([]any, len(p.values))
		for i, v := range p.values {
			np.values[i] = c.operand(v)
		}
	}
	if p.subquery != nil {
		np.subquery = p.subquery.cloneWith(c)
	}
	return np
}

// Marker function for Predicate.
func (p *inPredicate) predicate() {}

type logicalOp string

const (
	opAnd logicalOp = "and"
	opOr  logicalOp = "or"
	opNot logicalOp = "not"
)

// logicalPredicate combines child predicates with and, or, or negates a
// single child.
type logicalPredicate struct {
	op       logicalOp
	children []Predicate
}

// And returns the conjunction of the predicates.
func And(preds ...Predicate) Predicate {
	return &logicalPredicate{op: opAnd, children: preds}
}

// Or returns the disjunction of the predicates.
func Or(preds ...Predicate) Predicate {
	return &logicalPredicate{op: opOr, children: preds}
}

// Not returns the negation of the predicate.
func Not(pred Predicate) Predicate {
	return &logicalPredicate{op: opNot, children: []Predicate{pred}}
}

func (p *logicalPredicate) SQL() (string, error) {
	if len(p.children) == 0 {
		return "", fmt.Errorf("internal error: %s predicate without operands", p.op)
	}
	parts := make([]string, len(p.children))
	for i, child := range p.children {
		if child == nil {
			return "", errs.Syntaxf("nil operand in %s predicate", p.op)
		}
		sql, err := child.SQL()
		if err != nil {
			return "", err
		}
		parts[i] = sql
	}
	if p.op == opNot {
		return "not (" + parts[0] + ")", nil
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return "(" + strings.Join(parts, ") "+string(p.op)+" (") + ")", nil
}

func (p *logicalPredicate) CollectBinders(m BinderMap) {
	for _, child := range p.children {
		if child != nil {
			child.CollectBinders(m)
		}
	}
}

func (p *logicalPredicate) walkBinders(fn func(*Bindable)) {
	for _, child := range p.children {
		if child != nil {
			child.walkBinders(fn)
		}
	}
}

func (p *logicalPredicate) clone(c cloner) Predicate {
	np := &logicalPredicate{op: p.op, children: make([]Predicate, len(p.children))}
	for i, child := range p.children {
		if child != nil {
			np.children[i] = child.clone(c)
		}
	}
	return np
}

// Marker function for Predicate.
func (p *logicalPredicate) predicate() {}

// Eq returns the predicate "column = v". The operand v may be a column, a
// bindable or a literal.
func (c *Column) Eq(v any) Predicate {
	return &binaryPredicate{column: c, op: "=", operand: v}
}

// Neq returns the predicate "column <> v".
func (c *Column) Neq(v any) Predicate {
	return &binaryPredicate{column: c, op: "<>", operand: v}
}

// Lt returns the predicate "column < v".
func (c *Column) Lt(v any) Predicate {
	return &binaryPredicate{column: c, op: "<", operand: v}
}

// Lte returns the predicate "column <= v".
func (c *Column) Lte(v any) Predicate {
	return &binaryPredicate{column: c, op: "<=", operand: v}
}

// Gt returns the predicate "column > v".
func (c *Column) Gt(v any) Predicate {
	return &binaryPredicate{column: c, op: ">", operand: v}
}

// Gte returns the predicate "column >= v".
func (c *Column) Gte(v any) Predicate {
	return &binaryPredicate{column: c, op: ">=", operand: v}
}

// Match returns the predicate "column like pattern".
func (c *Column) Match(pattern any) Predicate {
	return &binaryPredicate{column: c, op: "like", operand: pattern}
}

// StartsWith matches values beginning with v.
func (c *Column) StartsWith(v any) Predicate {
	return &binaryPredicate{column: c, op: "like", operand: v, postfix: "%"}
}

// EndsWith matches values ending with v.
func (c *Column) EndsWith(v any) Predicate {
	return &binaryPredicate{column: c, op: "like", operand: v, prefix: "%"}
}

// Between returns the predicate "column between lhs and rhs".
func (c *Column) Between(lhs, rhs any) Predicate {
	return &ternaryPredicate{column: c, op: "between", keyword: "and", lhs: lhs, rhs: rhs}
}

// In returns a set membership predicate. The values may be a slice of
// literals, a bindable, which may later be bound to a slice or a scalar, or
// a select builder.
func (c *Column) In(values any) Predicate {
	switch v := values.(type) {
	case *Bindable:
		return &inPredicate{column: c, binder: v}
	case *SelectBuilder:
		return &inPredicate{column: c, subquery: v}
	case *Statement:
		if sb, ok := v.b.(*SelectBuilder); ok {
			return &inPredicate{column: c, subquery: sb}
		}
		return &inPredicate{column: c, err: errs.Syntaxf("in predicate on %s needs a select, got %T", c.FullName(), v.b)}
	}
	if list, ok := listValues(values); ok {
		return &inPredicate{column: c, values: list}
	}
	return &inPredicate{column: c, values: []any{values}}
}

// IsNull returns the predicate "column is null".
func (c *Column) IsNull() Predicate {
	return &unaryPredicate{column: c, suffix: "is null"}
}

// IsNotNull returns the predicate "column is not null".
func (c *Column) IsNotNull() Predicate {
	return &unaryPredicate{column: c, suffix: "is not null"}
}

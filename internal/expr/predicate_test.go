// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package expr_test

import (
	"math"
	"time"

	. "gopkg.in/check.v1"

	"github.com/canonical/rdb/internal/expr"
)

func (s *ExprSuite) TestPredicateSQL(c *C) {
	id := s.foo.Col("id")
	name := s.foo.Col("name")
	date := s.foo.Col("date")
	when := time.UnixMilli(1500000000000)

	var tests = []struct {
		summary  string
		pred     expr.Predicate
		expected string
	}{{
		summary:  "not equal",
		pred:     id.Neq(3),
		expected: "foo.id <> 3",
	}, {
		summary:  "comparisons",
		pred:     expr.And(id.Lt(1), id.Lte(2), id.Gt(3), id.Gte(4)),
		expected: "(foo.id < 1) and (foo.id <= 2) and (foo.id > 3) and (foo.id >= 4)",
	}, {
		summary:  "disjunction",
		pred:     expr.Or(id.Eq(1), name.Eq("a")),
		expected: `(foo.id = 1) or (foo.name = "a")`,
	}, {
		summary:  "single child is bare",
		pred:     expr.And(id.Eq(1)),
		expected: "foo.id = 1",
	}, {
		summary:  "negation",
		pred:     expr.Not(expr.Or(id.Eq(1), id.Eq(2))),
		expected: "not ((foo.id = 1) or (foo.id = 2))",
	}, {
		summary:  "null checks",
		pred:     expr.And(name.IsNull(), id.IsNotNull()),
		expected: "(foo.name is null) and (foo.id is not null)",
	}, {
		summary:  "quotes are doubled",
		pred:     name.Eq(`a"b`),
		expected: `foo.name = "a""b"`,
	}, {
		summary:  "null literal",
		pred:     name.Eq(nil),
		expected: "foo.name = null",
	}, {
		summary:  "dates are milliseconds",
		pred:     date.Gt(when),
		expected: "foo.date > 1500000000000",
	}, {
		summary:  "floats",
		pred:     id.Lt(2.5),
		expected: "foo.id < 2.5",
	}, {
		summary:  "blobs",
		pred:     name.Eq([]byte{0x01, 0xab}),
		expected: "foo.name = X'01ab'",
	}, {
		summary:  "pattern",
		pred:     name.Match("a_%"),
		expected: `foo.name like "a_%"`,
	}, {
		summary:  "column operand",
		pred:     id.Eq(s.foo.Col("boolean")),
		expected: "foo.id = foo.boolean",
	}, {
		summary:  "in strings",
		pred:     name.In([]string{"a", "b"}),
		expected: `foo.name in ("a", "b")`,
	}, {
		summary:  "not a number",
		pred:     id.Eq(math.NaN()),
		expected: "foo.id = null",
	}, {
		summary:  "infinity",
		pred:     id.Gt(math.Inf(1)),
		expected: "foo.id > null",
	}, {
		summary:  "list outside in",
		pred:     name.Eq([]int{1, 2}),
		expected: `foo.name = "[1,2]"`,
	}, {
		summary:  "in scalar",
		pred:     id.In(7),
		expected: "foo.id in (7)",
	}, {
		summary:  "starts with bound value",
		pred:     name.StartsWith(bound(0, "x")),
		expected: `foo.name like "x%"`,
	}}

	for i, t := range tests {
		sql, err := t.pred.SQL()
		c.Assert(err, IsNil, Commentf("test %d failed (%s)", i, t.summary))
		c.Check(sql, Equals, t.expected, Commentf("test %d failed (%s)", i, t.summary))
	}
}

func bound(index int, v any) *expr.Bindable {
	b := expr.NewBindable(index)
	b.Set(v)
	return b
}

func (s *ExprSuite) TestPredicateSQLIsRepeatable(c *C) {
	p := expr.And(s.foo.Col("id").Eq(1), s.foo.Col("name").StartsWith("a"))
	first, err := p.SQL()
	c.Assert(err, IsNil)
	second, err := p.SQL()
	c.Assert(err, IsNil)
	c.Check(first, Equals, second)
}

func (s *ExprSuite) TestClonePredicateIndependence(c *C) {
	p := expr.And(
		s.foo.Col("id").Eq(expr.NewBindable(0)),
		s.foo.Col("name").In(expr.NewBindable(1)),
	)
	q := expr.ClonePredicate(p)

	m := expr.BinderMap{}
	q.CollectBinders(m)
	c.Assert(m, HasLen, 2)
	m[0].Set(5)
	m[1].Set([]string{"a", "b"})

	sql, err := q.SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, `(foo.id = 5) and (foo.name in ("a", "b"))`)

	sql, err = p.SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "(foo.id = ?) and (foo.name in (?))")
}

func (s *ExprSuite) TestClonePreservesSharing(c *C) {
	shared := expr.NewBindable(0)
	p := expr.Or(s.foo.Col("id").Eq(shared), s.foo.Col("id").Gt(shared))
	q := expr.ClonePredicate(p)

	m := expr.BinderMap{}
	q.CollectBinders(m)
	c.Assert(m, HasLen, 1)
	m[0].Set(3)

	sql, err := q.SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "(foo.id = 3) or (foo.id > 3)")
}

func (s *ExprSuite) TestClonePredicateNil(c *C) {
	c.Check(expr.ClonePredicate(nil), IsNil)
}

func (s *ExprSuite) TestBindable(c *C) {
	b := expr.NewBindable(2)
	c.Check(b.Index(), Equals, 2)
	c.Check(b.String(), Equals, "?")
	_, ok := b.Value()
	c.Check(ok, Equals, false)

	b.Set("x")
	v, ok := b.Value()
	c.Check(ok, Equals, true)
	c.Check(v, Equals, "x")
	c.Check(b.String(), Equals, `"x"`)

	cb := b.Clone()
	cb.Set(false)
	c.Check(b.String(), Equals, `"x"`)
	c.Check(cb.String(), Equals, "0")
}

func (s *ExprSuite) TestTableColumns(c *C) {
	a := s.foo.As("a")
	c.Check(a.Name(), Equals, "foo")
	c.Check(a.Alias(), Equals, "a")
	c.Check(a.Col("id").FullName(), Equals, "a.id")
	c.Check(s.foo.Col("id").FullName(), Equals, "foo.id")
	c.Check(s.foo.Col("id").Table(), Equals, "foo")

	var names []string
	for _, col := range s.foo.Columns() {
		names = append(names, col.Name())
	}
	c.Check(names, DeepEquals, []string{"id", "name", "date", "boolean"})

	_, ok := s.foo.Column("nope")
	c.Check(ok, Equals, false)
	c.Check(func() { s.foo.Col("nope") }, PanicMatches, `table "foo" has no column "nope"`)
}

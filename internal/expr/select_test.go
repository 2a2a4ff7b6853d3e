// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package expr_test

import (
	. "gopkg.in/check.v1"

	"github.com/canonical/rdb/internal/expr"
	"github.com/canonical/rdb/internal/schema"
)

func (s *ExprSuite) TestSelectSQL(c *C) {
	foo := s.foo
	a := foo.As("a")
	b := foo.As("b")
	fn := expr.Fn

	var tests = []struct {
		summary  string
		query    *expr.SelectBuilder
		expected string
	}{{
		summary: "where, order by and group by",
		query: expr.NewSelect().From(foo).
			Where(foo.Col("boolean").Eq(true)).
			OrderBy(foo.Col("id")).
			OrderBy(foo.Col("name"), schema.Desc).
			GroupBy(foo.Col("date")),
		expected: "select * from foo where foo.boolean = 1 order by foo.id asc, foo.name desc group by foo.date",
	}, {
		summary: "self join",
		query: expr.NewSelect(a.Col("id"), a.Col("name")).
			From(a, b).
			Where(expr.And(a.Col("id").Eq(b.Col("id")), a.Col("boolean").Eq(true))),
		expected: "select a.id, a.name from foo a, foo b where (a.id = b.id) and (a.boolean = 1)",
	}, {
		summary: "nested set operations",
		query: expr.NewSelect(foo.Col("id")).From(foo).Where(foo.Col("boolean").Eq(true)).
			Union(expr.NewSelect(foo.Col("id")).From(foo).Where(foo.Col("name").Eq("b")).
				Intersect(expr.NewSelect(foo.Col("id")).From(foo).Where(foo.Col("boolean").Eq(false)))),
		expected: `select foo.id from foo where foo.boolean = 1 union ` +
			`(select foo.id from foo where foo.name = "b" intersect ` +
			`(select foo.id from foo where foo.boolean = 0))`,
	}, {
		summary:  "avg",
		query:    expr.NewSelect(fn.Avg(foo.Col("id"))).From(foo).Where(foo.Col("boolean").Eq(true)),
		expected: "select avg(foo.id) from foo where foo.boolean = 1",
	}, {
		summary:  "count",
		query:    expr.NewSelect(fn.Count(foo.Col("id")), fn.Count()).From(foo).Where(foo.Col("boolean").Eq(true)),
		expected: "select count(foo.id), count(*) from foo where foo.boolean = 1",
	}, {
		summary:  "distinct",
		query:    expr.NewSelect(fn.Distinct(foo.Col("name"))).From(foo),
		expected: "select distinct foo.name from foo",
	}, {
		summary:  "min, max and sum",
		query:    expr.NewSelect(fn.Min(foo.Col("id")), fn.Max(foo.Col("id")), fn.Sum(foo.Col("id"))).From(foo),
		expected: "select min(foo.id), max(foo.id), sum(foo.id) from foo",
	}, {
		summary: "inner join",
		query: expr.NewSelect(a.Col("id"), a.Col("name")).
			From(a).
			InnerJoin(b, b.Col("id").Eq(a.Col("id"))).
			Where(a.Col("boolean").Eq(true)),
		expected: "select a.id, a.name from foo a inner join foo b on b.id = a.id where a.boolean = 1",
	}, {
		summary:  "starts with",
		query:    expr.NewSelect().From(foo).Where(foo.Col("name").StartsWith("bar")),
		expected: `select * from foo where foo.name like "bar%"`,
	}, {
		summary:  "ends with",
		query:    expr.NewSelect().From(foo).Where(foo.Col("name").EndsWith("bar")),
		expected: `select * from foo where foo.name like "%bar"`,
	}, {
		summary:  "in list",
		query:    expr.NewSelect().From(foo).Where(foo.Col("id").In([]int{1, 2, 3, 4, 5})),
		expected: "select * from foo where foo.id in (1, 2, 3, 4, 5)",
	}, {
		summary:  "in subquery",
		query:    expr.NewSelect().From(foo).Where(foo.Col("id").In(expr.NewSelect(foo.Col("id")).From(foo))),
		expected: "select * from foo where foo.id in (select foo.id from foo)",
	}, {
		summary:  "literal limit and skip",
		query:    expr.NewSelect().From(foo).Limit(10).Skip(20),
		expected: "select * from foo limit 10 skip 20",
	}, {
		summary:  "unbound placeholders",
		query:    expr.NewSelect().From(foo).Where(foo.Col("id").Eq(expr.NewBindable(0))).Limit(expr.NewBindable(1)),
		expected: "select * from foo where foo.id = ? limit ?",
	}}

	for i, t := range tests {
		sql, err := t.query.SQL()
		c.Assert(err, IsNil, Commentf("test %d failed (%s)", i, t.summary))
		c.Check(sql, Equals, t.expected, Commentf("test %d failed (%s)", i, t.summary))

		sql, err = t.query.Clone().SQL()
		c.Assert(err, IsNil, Commentf("test %d failed (%s)", i, t.summary))
		c.Check(sql, Equals, t.expected, Commentf("clone of test %d failed (%s)", i, t.summary))
	}
}

func (s *ExprSuite) TestSelectBind(c *C) {
	foo := s.foo
	q := expr.NewSelect().From(foo).
		Where(foo.Col("boolean").Eq(expr.NewBindable(0))).
		Skip(expr.NewBindable(2)).
		Limit(expr.NewBindable(1))

	sql, err := q.Bind(true, 2, 3).SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "select * from foo where foo.boolean = 1 limit 2 skip 3")

	sql, err = q.Bind(false, 3, 2).SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "select * from foo where foo.boolean = 0 limit 3 skip 2")

	sql, err = q.Clone().Bind(true, 2, 3).SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "select * from foo where foo.boolean = 1 limit 2 skip 3")

	// Binding the clone left the original alone.
	sql, err = q.SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "select * from foo where foo.boolean = 0 limit 3 skip 2")
}

func (s *ExprSuite) TestSelectBindBetween(c *C) {
	foo := s.foo
	q := expr.NewSelect().From(foo).
		Where(foo.Col("id").Between(expr.NewBindable(0), expr.NewBindable(1)))

	sql, err := q.Bind(1, 10).SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "select * from foo where foo.id between 1 and 10")

	sql, err = q.Clone().Bind(2, 12).SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "select * from foo where foo.id between 2 and 12")
}

func (s *ExprSuite) TestSelectBindIn(c *C) {
	foo := s.foo
	q := expr.NewSelect().From(foo).Where(foo.Col("id").In(expr.NewBindable(0)))

	sql, err := q.Bind([]int{1, 2, 3, 4, 5}).SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "select * from foo where foo.id in (1, 2, 3, 4, 5)")

	sql, err = q.Clone().Bind([]int{1, 2, 3, 4, 5}).SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "select * from foo where foo.id in (1, 2, 3, 4, 5)")

	sql, err = q.Bind(6).SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "select * from foo where foo.id in (6)")

	sql, err = q.Clone().Bind(6).SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "select * from foo where foo.id in (6)")
}

func (s *ExprSuite) TestSelectBindSubquery(c *C) {
	foo := s.foo
	sub := expr.NewSelect(foo.Col("id")).From(foo).Where(foo.Col("name").Eq(expr.NewBindable(1)))
	q := expr.NewSelect().From(foo).
		Where(expr.And(foo.Col("boolean").Eq(expr.NewBindable(0)), foo.Col("id").In(sub)))

	sql, err := q.Bind(true, "x").SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, `select * from foo where (foo.boolean = 1) and (foo.id in (select foo.id from foo where foo.name = "x"))`)

	m := q.BinderMap()
	c.Check(m, HasLen, 2)
	c.Check(m[0].Index(), Equals, 0)
	c.Check(m[1].Index(), Equals, 1)
}

func (s *ExprSuite) TestSelectBinderMapFirstWins(c *C) {
	foo := s.foo
	first := expr.NewBindable(0)
	second := expr.NewBindable(0)
	q := expr.NewSelect().From(foo).
		Where(foo.Col("id").Eq(first)).
		Union(expr.NewSelect().From(foo).Where(foo.Col("id").Eq(second)))

	m := q.BinderMap()
	c.Assert(m, HasLen, 1)
	c.Check(m[0] == first, Equals, true)

	// Binding still reaches every holder of the index.
	sql, err := q.Bind(4).SQL()
	c.Assert(err, IsNil)
	c.Check(sql, Equals, "select * from foo where foo.id = 4 union (select * from foo where foo.id = 4)")
}

func (s *ExprSuite) TestSelectErrors(c *C) {
	foo := s.foo
	var tests = []struct {
		summary string
		query   *expr.SelectBuilder
		err     string
	}{{
		summary: "no from",
		query:   expr.NewSelect(),
		err:     "select without from: syntax error",
	}, {
		summary: "negative limit",
		query:   expr.NewSelect().From(foo).Limit(-1),
		err:     "negative row count -1: syntax error",
	}, {
		summary: "string skip",
		query:   expr.NewSelect().From(foo).Skip("1"),
		err:     "row count must be an integer or a bindable, got string: syntax error",
	}, {
		summary: "invalid order",
		query:   expr.NewSelect().From(foo).OrderBy(foo.Col("id"), schema.Order("up")),
		err:     `invalid sort order "up": syntax error`,
	}, {
		summary: "empty conjunction",
		query:   expr.NewSelect().From(foo).Where(expr.And()),
		err:     "internal error: and predicate without operands",
	}, {
		summary: "negated nil",
		query:   expr.NewSelect().From(foo).Where(expr.Not(nil)),
		err:     "nil operand in not predicate: syntax error",
	}, {
		summary: "nil operand in disjunction",
		query:   expr.NewSelect().From(foo).Where(expr.Or(foo.Col("id").Eq(1), nil)),
		err:     "nil operand in or predicate: syntax error",
	}, {
		summary: "join without condition",
		query:   expr.NewSelect().From(foo).InnerJoin(barTable(), nil),
		err:     "inner join needs a table and a condition: syntax error",
	}, {
		summary: "join without table",
		query:   expr.NewSelect().From(foo).InnerJoin(nil, foo.Col("id").Eq(1)),
		err:     "inner join needs a table and a condition: syntax error",
	}}

	for i, t := range tests {
		_, err := t.query.SQL()
		c.Check(err, ErrorMatches, t.err, Commentf("test %d failed (%s)", i, t.summary))
		_, err = t.query.Finalize()
		c.Check(err, ErrorMatches, t.err, Commentf("finalize of test %d failed (%s)", i, t.summary))
	}
}

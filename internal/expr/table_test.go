// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package expr_test

import (
	. "gopkg.in/check.v1"

	"github.com/canonical/rdb/internal/errs"
	"github.com/canonical/rdb/internal/expr"
	"github.com/canonical/rdb/internal/schema"
)

func newTableBuilder(name string) *expr.TableBuilder {
	return expr.NewTableBuilder(sqliteDialect{}, "db", name)
}

func (s *ExprSuite) TestTableBuilderStatements(c *C) {
	tb := newTableBuilder("bar").
		Column("id", schema.Integer).
		Column("name", schema.String, true).
		PrimaryKey(expr.AutoIncrementPK("id"))

	stmts, err := tb.Statements()
	c.Assert(err, IsNil)
	c.Check(stmts, DeepEquals, []string{
		"create table bar (id integer primary key autoincrement, name text not null)",
		`insert into "$rdb_table" values ("bar", "db")`,
		`insert into "$rdb_column" values ("id", "db", "bar", "integer")`,
		`insert into "$rdb_column" values ("name", "db", "bar", "string")`,
	})
}

func (s *ExprSuite) TestTableBuilderSQL(c *C) {
	var tests = []struct {
		summary  string
		builder  *expr.TableBuilder
		expected string
	}{{
		summary: "column types",
		builder: newTableBuilder("t").
			Column("a", schema.Integer).
			Column("b", schema.Number).
			Column("c", schema.String).
			Column("d", schema.Date).
			Column("e", schema.Boolean).
			Column("f", schema.Blob).
			Column("g", schema.Object),
		expected: "create table t (a integer, b real, c text, d integer, e integer, f blob, g text)",
	}, {
		summary: "single column primary key",
		builder: newTableBuilder("t").
			Column("id", schema.String).
			PrimaryKey(expr.PK("id")),
		expected: "create table t (id text, primary key (id))",
	}, {
		summary: "composite primary key and constraints",
		builder: newTableBuilder("bar").
			Column("id", schema.Integer).
			Column("parent", schema.Integer).
			Column("name", schema.String).
			PrimaryKey(expr.PKColumns(
				schema.IndexedColumn{Name: "id"},
				schema.IndexedColumn{Name: "name", Order: schema.Desc},
			)).
			ForeignKey("fk_parent", "parent", "foo.id").
			Index(schema.Index{
				Name:    "idx_name",
				Columns: []schema.IndexedColumn{{Name: "name"}},
				Unique:  true,
			}),
		expected: "create table bar (id integer, parent integer, name text, primary key (id, name desc), " +
			"constraint fk_parent foreign key (parent) references foo(id)); " +
			"create unique index idx_name on bar(name)",
	}, {
		summary: "fulltext index",
		builder: newTableBuilder("t").
			Column("body", schema.String).
			Index(schema.Index{
				Name:    "idx_body",
				Columns: []schema.IndexedColumn{{Name: "body", Order: schema.Desc}},
				Type:    schema.Fulltext,
			}),
		expected: "create table t (body text); create index idx_body on t(body desc)",
	}}

	for i, t := range tests {
		sql, err := t.builder.SQL()
		c.Assert(err, IsNil, Commentf("test %d failed (%s)", i, t.summary))
		c.Check(sql, Equals, t.expected, Commentf("test %d failed (%s)", i, t.summary))
	}
}

func (s *ExprSuite) TestTableBuilderValidation(c *C) {
	var tests = []struct {
		summary string
		builder *expr.TableBuilder
		kind    error
		err     string
	}{{
		summary: "duplicate column",
		builder: newTableBuilder("bar").Column("id", schema.Integer).Column("id", schema.String),
		kind:    errs.Syntax,
		err:     `duplicate column "id" in table bar: syntax error`,
	}, {
		summary: "primary key on blob",
		builder: newTableBuilder("bar").Column("data", schema.Blob).PrimaryKey(expr.PK("data")),
		kind:    errs.InvalidSchema,
		err:     `primary key column "data" cannot be of type blob: invalid schema`,
	}, {
		summary: "primary key on object",
		builder: newTableBuilder("bar").Column("data", schema.Object).PrimaryKey(expr.PK("data")),
		kind:    errs.InvalidSchema,
		err:     `primary key column "data" cannot be of type object: invalid schema`,
	}, {
		summary: "auto increment on string",
		builder: newTableBuilder("bar").Column("name", schema.String).PrimaryKey(expr.AutoIncrementPK("name")),
		kind:    errs.InvalidSchema,
		err:     `auto increment column "name" must be numeric, got string: invalid schema`,
	}, {
		summary: "unknown primary key column",
		builder: newTableBuilder("bar").Column("id", schema.Integer).PrimaryKey(expr.PK("nope")),
		kind:    errs.Syntax,
		err:     `primary key column "nope" not found in table bar: syntax error`,
	}, {
		summary: "duplicate index",
		builder: newTableBuilder("bar").Column("id", schema.Integer).
			Index(schema.Index{Name: "idx", Columns: []schema.IndexedColumn{{Name: "id"}}}).
			Index(schema.Index{Name: "idx", Columns: []schema.IndexedColumn{{Name: "id"}}}),
		kind: errs.Syntax,
		err:  `duplicate index "idx" in table bar: syntax error`,
	}, {
		summary: "unique fulltext index",
		builder: newTableBuilder("bar").Column("name", schema.String).
			Index(schema.Index{Name: "idx", Columns: []schema.IndexedColumn{{Name: "name"}}, Unique: true, Type: schema.Fulltext}),
		kind: errs.Syntax,
		err:  `index "idx" cannot be both unique and fulltext: syntax error`,
	}, {
		summary: "bad foreign key reference",
		builder: newTableBuilder("bar").Column("foo_id", schema.Integer).ForeignKey("fk", "foo_id", "foo"),
		kind:    errs.Syntax,
		err:     `foreign key "fk" must reference table.column, got "foo": syntax error`,
	}, {
		summary: "no columns",
		builder: newTableBuilder("bar"),
		kind:    errs.InvalidSchema,
		err:     "table bar has no columns: invalid schema",
	}}

	for i, t := range tests {
		_, err := t.builder.SQL()
		c.Check(err, ErrorMatches, t.err, Commentf("test %d failed (%s)", i, t.summary))
		c.Check(errs.Is(err, t.kind), Equals, true, Commentf("test %d failed (%s)", i, t.summary))
		_, err = t.builder.Finalize()
		c.Check(err, ErrorMatches, t.err, Commentf("finalize of test %d failed (%s)", i, t.summary))
	}
}

func (s *ExprSuite) TestTableBuilderSchema(c *C) {
	tb := newTableBuilder("bar").
		Column("id", schema.Integer).
		Column("name", schema.String).
		PrimaryKey(expr.PK("id"))

	stmt, err := tb.Finalize()
	c.Assert(err, IsNil)
	c.Check(stmt.ReadOnly(), Equals, false)

	// Declarations made after finalizing are not part of the statement.
	tb.Column("late", schema.Integer)

	changes := stmt.SchemaChanges()
	c.Assert(changes, HasLen, 1)
	c.Check(changes[0].Name, Equals, "bar")
	t := changes[0].Table
	c.Check(t.Name(), Equals, "bar")
	c.Check(t.Columns(), HasLen, 2)
	c.Check(t.PrimaryKey(), DeepEquals, []schema.IndexedColumn{{Name: "id", Order: schema.Asc}})

	stmts, err := stmt.Statements()
	c.Assert(err, IsNil)
	c.Check(stmts, HasLen, 4)

	_, err = stmt.Clone()
	c.Check(err, ErrorMatches, "cannot clone table builder: unsupported operation")
	_, err = tb.Clone()
	c.Check(errs.Is(err, errs.Unsupported), Equals, true)
}

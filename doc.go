/*
Package rdb is a typed query layer for relational databases. Queries are
built from Go values describing tables and columns, compiled to SQL text and
submitted in transactions.

# Basics

A [Connection] is opened on a named database. The storage type chooses
between an in memory SQLite database, a SQLite file or a dqlite cluster:

	conn, err := rdb.Open(ctx, "hr", &rdb.Options{StorageType: rdb.Persistent, Dir: "/var/lib/hr"})

Tables are declared with a table builder and created by executing it:

	_, err = conn.Exec(ctx, conn.CreateTable("person").
		Column("id", rdb.Integer).
		Column("name", rdb.String).
		Column("team", rdb.String).
		PrimaryKey(rdb.AutoIncrementPK("id")))

Once the transaction creating a table commits, the table is part of the
schema of the connection and its columns can be used in queries:

	person := conn.Schema().Table("person")
	q := conn.Select(person.Col("name")).
		From(person).
		Where(person.Col("team").Eq("engineering"))

The schema is recorded in the database itself, so that reopening a
persistent database restores it.

# Predicates

Columns provide the comparison predicates Eq, Neq, Lt, Lte, Gt, Gte, Match,
StartsWith, EndsWith, Between, In, IsNull and IsNotNull. Predicates are
combined with [And], [Or] and [Not].

The operand of a predicate is a literal, another column, or a [Bindable].

# Bindables

A bindable is a placeholder for a value supplied after the query has been
built. [Connection.Bind] returns a bindable for the given index of a later
call to Bind on the builder:

	stmt, err := conn.Select().
		From(person).
		Where(person.Col("id").Eq(conn.Bind(0))).
		Finalize()
	rows, err := conn.Query(ctx, stmt.Bind(42))

Values are inlined as SQL literals when the query is compiled. Strings are
double quoted, booleans are stored as 0 or 1 and dates as milliseconds since
the epoch.

# Transactions

[Connection.Exec] runs queries in a single transaction. A [Transaction]
created with [Connection.CreateTransaction] can instead be driven step by
step with Begin, Attach and Commit or Rollback. Nothing is sent to the
database before commit, and a failed commit leaves both the database and
the schema unchanged. Errors of the database are returned unchanged; errors
of the builders and of the transaction state machine wrap [ErrSyntax],
[ErrInvalidSchema], [ErrUnsupported] or [ErrTxState].

# Reading rows

Rows are returned as maps from column name to value. [Rows.Decode] stores
them into a slice of tagged structs:

	var people []Person
	err = rows.Decode(&people)

Struct fields are matched to columns by their db tag.
*/
package rdb

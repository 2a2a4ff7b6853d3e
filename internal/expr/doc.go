/*
Package expr builds SQL statements from typed query builders. It covers the
predicates, the bindable values and the builders themselves; it does not
interact with the databases.

# Predicates

A predicate is a boolean expression over a column and operands: literals,
other columns or bindables. Predicates are built from the comparison methods
of Column and combined with And, Or and Not. Their SQL is deterministic and
is recomputed each time it is asked for, so that it reflects the values bound
at that moment.

# Bindables

A Bindable is a placeholder for a value supplied after the query is built.
Binding a builder with a list of values sets every bindable of index i
reachable from the builder to the i-th value. Unbound bindables compile to
"?".

# Builders

SelectBuilder, UpdateBuilder, InsertBuilder, DeleteBuilder and TableBuilder
accumulate clauses through chained calls. Configuration errors are latched on
the builder and reported when it is compiled. Finalize validates a builder
and returns a Statement: an immutable copy whose bindables can still be
bound.
*/
package expr

// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package schema

// ColumnType is the declared value type of a column.
type ColumnType string

const (
	Integer ColumnType = "integer"
	Number  ColumnType = "number"
	String  ColumnType = "string"
	Date    ColumnType = "date"
	Boolean ColumnType = "boolean"
	Blob    ColumnType = "blob"
	Object  ColumnType = "object"
)

// Valid reports whether t is one of the known column types.
func (t ColumnType) Valid() bool {
	switch t {
	case Integer, Number, String, Date, Boolean, Blob, Object:
		return true
	}
	return false
}

// IsNumeric reports whether values of type t are numbers.
func (t ColumnType) IsNumeric() bool {
	return t == Integer || t == Number
}

// Indexable reports whether a column of type t may be part of a key.
func (t ColumnType) Indexable() bool {
	return t != Blob && t != Object
}

// SQLType returns the type name used in column definitions.
func (t ColumnType) SQLType() string {
	switch t {
	case Number:
		return "real"
	case String, Object:
		return "text"
	case Blob:
		return "blob"
	default:
		// Integers, booleans and dates (milliseconds since the epoch).
		return "integer"
	}
}

// Order is the sort direction of an ordered column.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Valid reports whether o is asc or desc.
func (o Order) Valid() bool {
	return o == Asc || o == Desc
}

// IndexType qualifies an index declaration.
type IndexType string

const (
	BTree    IndexType = "btree"
	Fulltext IndexType = "fulltext"
)

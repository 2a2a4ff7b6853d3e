// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package expr

import (
	"encoding/hex"
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/canonical/rdb/internal/schema"
)

// Bindable is a placeholder for a value that is supplied after the query has
// been built. It is identified by its index: binding a builder with values
// v sets every Bindable of index i reachable from it to v[i].
type Bindable struct {
	index int
	value any
	bound bool
}

// NewBindable returns an unbound placeholder. The index must not be negative.
func NewBindable(index int) *Bindable {
	return &Bindable{index: index}
}

// Index returns the position of the placeholder in a bind call.
func (b *Bindable) Index() int {
	return b.index
}

// Value returns the bound value and whether a value has been bound.
func (b *Bindable) Value() (any, bool) {
	return b.value, b.bound
}

// Set binds v to the placeholder.
func (b *Bindable) Set(v any) {
	b.value = v
	b.bound = true
}

// String returns "?" while unbound, the SQL literal of the value otherwise.
func (b *Bindable) String() string {
	return b.format("", "")
}

func (b *Bindable) format(prefix, postfix string) string {
	if !b.bound {
		return "?"
	}
	return formatValue(b.value, prefix, postfix)
}

// Clone returns an independent copy of the placeholder.
func (b *Bindable) Clone() *Bindable {
	c := *b
	return &c
}

// BinderMap maps bindable indices to their holders.
type BinderMap map[int]*Bindable

// add inserts b unless its index is already present.
func (m BinderMap) add(b *Bindable) {
	if _, ok := m[b.index]; !ok {
		m[b.index] = b
	}
}

// merge adds the entries of other that are not yet present in m.
func (m BinderMap) merge(other BinderMap) {
	for _, b := range other {
		m.add(b)
	}
}

// cloner deep copies bindables while preserving sharing: a holder that is
// referenced from several places in the source is referenced from the same
// places in the copy by a single new holder.
type cloner map[*Bindable]*Bindable

func (c cloner) bindable(b *Bindable) *Bindable {
	if b == nil {
		return nil
	}
	if nb, ok := c[b]; ok {
		return nb
	}
	nb := b.Clone()
	c[b] = nb
	return nb
}

// operand returns a copy of v in which bindables are replaced by their
// clones. Columns and literals are immutable and are shared.
func (c cloner) operand(v any) any {
	if b, ok := v.(*Bindable); ok {
		return c.bindable(b)
	}
	return v
}

// eval returns the SQL for an operand: the full name of a column, the
// current literal of a bindable, or the literal of any other value. The
// prefix and postfix wrap string literals, e.g. for LIKE patterns.
func eval(v any, prefix, postfix string) string {
	switch v := v.(type) {
	case *Column:
		return v.FullName()
	case *Bindable:
		return v.format(prefix, postfix)
	}
	return formatValue(v, prefix, postfix)
}

// evalFor returns the SQL for a value assigned to a column of type typ.
// Byte slices assigned to object columns are taken to be JSON text, as are
// strings.
func evalFor(typ schema.ColumnType, v any) string {
	if typ != schema.Object {
		return eval(v, "", "")
	}
	if b, ok := v.(*Bindable); ok {
		val, bound := b.Value()
		if !bound {
			return b.String()
		}
		v = val
	}
	if text, ok := v.([]byte); ok {
		if text == nil {
			return "null"
		}
		return quote(string(text))
	}
	return eval(v, "", "")
}

// formatValue returns the SQL literal for v. Strings are double quoted,
// booleans are 1 or 0 and dates are milliseconds since the epoch. Non finite
// floats are null. Slices other than byte slices, maps and structs are
// stored as their JSON text; lists are only expanded by the in predicate.
func formatValue(v any, prefix, postfix string) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return quote(prefix + v + postfix)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case time.Time:
		return strconv.FormatInt(v.UnixMilli(), 10)
	case *time.Time:
		if v == nil {
			return "null"
		}
		return strconv.FormatInt(v.UnixMilli(), 10)
	case []byte:
		return "X'" + hex.EncodeToString(v) + "'"
	case json.RawMessage:
		return quote(string(v))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return "null"
		}
		return strconv.FormatFloat(f, 'f', -1, 64)
	case reflect.String:
		return quote(prefix + rv.String() + postfix)
	case reflect.Bool:
		return formatValue(rv.Bool(), "", "")
	case reflect.Pointer:
		if rv.IsNil() {
			return "null"
		}
		return formatValue(rv.Elem().Interface(), prefix, postfix)
	case reflect.Slice, reflect.Map:
		if rv.IsNil() {
			return "null"
		}
	}
	return formatJSON(v)
}

func formatJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return quote(string(b))
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// listValues returns the elements of v if it is a slice or an array. Byte
// slices are blobs and are not considered lists.
func listValues(v any) ([]any, bool) {
	if _, ok := v.([]byte); ok {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	vals := make([]any, rv.Len())
	for i := range vals {
		vals[i] = rv.Index(i).Interface()
	}
	return vals, true
}

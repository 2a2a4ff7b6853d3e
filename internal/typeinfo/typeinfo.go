// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package typeinfo generates and caches reflection information about the Go
// structs used as table rows. Struct fields map to columns through their
// `db` tags.
package typeinfo

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
)

// Field represents a single tagged field of a struct type.
type Field struct {
	// Name is the name of the struct field.
	Name string
	// Tag is the column name from the "db" tag.
	Tag string
	// Index is the index of the field in the struct.
	Index int
	// OmitEmpty is true when "omitempty" is a property of the field's "db"
	// tag.
	OmitEmpty bool
	Type      reflect.Type
}

// Info holds the reflection information of a struct type.
type Info struct {
	Type reflect.Type
	// Fields are the tagged fields in declaration order.
	Fields     []Field
	TagToField map[string]Field
}

var cacheMutex sync.RWMutex
var cache = make(map[reflect.Type]*Info)

// GetTypeInfo returns the Info of the type of value, generating and caching
// it as required.
func GetTypeInfo(value any) (*Info, error) {
	if value == (any)(nil) {
		return nil, fmt.Errorf("cannot reflect nil value")
	}
	return typeInfo(reflect.TypeOf(value))
}

func typeInfo(t reflect.Type) (*Info, error) {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	cacheMutex.RLock()
	info, found := cache[t]
	cacheMutex.RUnlock()
	if found {
		return info, nil
	}

	info, err := generate(t)
	if err != nil {
		return nil, err
	}

	cacheMutex.Lock()
	cache[t] = info
	cacheMutex.Unlock()

	return info, nil
}

// generate produces the reflection information of a struct type.
func generate(t reflect.Type) (*Info, error) {
	// Reflection information is only generated for structs.
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("can only reflect struct type, got %s", t.Kind())
	}

	info := Info{
		Type:       t,
		TagToField: make(map[string]Field),
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		// Fields without a "db" tag are not columns.
		tag := field.Tag.Get("db")
		if tag == "" || !field.IsExported() {
			continue
		}
		tag, omitEmpty, err := parseTag(tag)
		if err != nil {
			return nil, fmt.Errorf("cannot parse tag for field %s.%s: %s", t.Name(), field.Name, err)
		}
		if _, ok := info.TagToField[tag]; ok {
			return nil, fmt.Errorf("db tag %q appears in both field %s and field %s of struct %s",
				tag, info.TagToField[tag].Name, field.Name, t.Name())
		}
		f := Field{
			Name:      field.Name,
			Tag:       tag,
			Index:     i,
			OmitEmpty: omitEmpty,
			Type:      field.Type,
		}
		info.Fields = append(info.Fields, f)
		info.TagToField[tag] = f
	}

	return &info, nil
}

var validColNameRx = regexp.MustCompile(`^([a-zA-Z_])+([a-zA-Z_0-9])*$`)

// parseTag parses the input tag string and returns its
// name and whether it contains the "omitempty" option.
func parseTag(tag string) (string, bool, error) {
	options := strings.Split(tag, ",")

	var omitEmpty bool
	// Refuse to parse if there are more than 2 items.
	if len(options) > 2 {
		return "", false, fmt.Errorf("too many options in 'db' tag")
	}
	if len(options) == 2 {
		if strings.ToLower(options[1]) != "omitempty" {
			return "", false, fmt.Errorf("unexpected tag value %q", options[1])
		}
		omitEmpty = true
	}

	name := options[0]
	if len(name) == 0 {
		return "", false, fmt.Errorf("empty db tag")
	}

	if !validColNameRx.MatchString(name) {
		return "", false, fmt.Errorf("invalid column name in 'db' tag")
	}

	return name, omitEmpty, nil
}

// RowValues returns the column values of a row. A row is either a map with
// string keys or a struct, or a pointer to one. Zero valued fields tagged
// with omitempty are left out.
func RowValues(row any) (map[string]any, error) {
	if row == nil {
		return nil, fmt.Errorf("need map or struct, got nil")
	}
	v := reflect.ValueOf(row)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, fmt.Errorf("need map or struct, got nil pointer")
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("map type %s must have key type string, found type %s", v.Type().Name(), v.Type().Key().Kind())
		}
		vals := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			vals[iter.Key().String()] = iter.Value().Interface()
		}
		return vals, nil
	case reflect.Struct:
		info, err := typeInfo(v.Type())
		if err != nil {
			return nil, err
		}
		vals := make(map[string]any, len(info.Fields))
		for _, f := range info.Fields {
			fv := v.Field(f.Index)
			if f.OmitEmpty && fv.IsZero() {
				continue
			}
			vals[f.Tag] = fv.Interface()
		}
		return vals, nil
	}
	return nil, fmt.Errorf("need map or struct, got %s", v.Kind())
}

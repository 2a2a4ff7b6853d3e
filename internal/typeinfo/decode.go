// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package typeinfo

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// Decode stores rows into the slice pointed to by slicePtr. The slice
// elements may be structs, pointers to structs or maps with string keys.
// Columns without a matching struct field are ignored.
func Decode(rows []map[string]any, slicePtr any) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot decode rows: %s", err)
		}
	}()

	ptrVal := reflect.ValueOf(slicePtr)
	if ptrVal.Kind() != reflect.Pointer {
		return fmt.Errorf("need pointer to slice, got %s", ptrVal.Kind())
	}
	if ptrVal.IsNil() {
		return fmt.Errorf("need pointer to slice, got nil")
	}
	sliceVal := ptrVal.Elem()
	if sliceVal.Kind() != reflect.Slice {
		return fmt.Errorf("need pointer to slice, got pointer to %s", sliceVal.Kind())
	}

	elemType := sliceVal.Type().Elem()
	for _, row := range rows {
		var elem reflect.Value
		switch elemType.Kind() {
		case reflect.Pointer:
			if elemType.Elem().Kind() != reflect.Struct {
				return fmt.Errorf("need slice of structs/maps, got slice of pointer to %s", elemType.Elem().Kind())
			}
			elem = reflect.New(elemType.Elem())
			if err := decodeStruct(row, elem.Elem()); err != nil {
				return err
			}
		case reflect.Struct:
			elem = reflect.New(elemType).Elem()
			if err := decodeStruct(row, elem); err != nil {
				return err
			}
		case reflect.Map:
			if elemType.Key().Kind() != reflect.String {
				return fmt.Errorf("map type %s must have key type string, found type %s", elemType.Name(), elemType.Key().Kind())
			}
			elem = reflect.MakeMap(elemType)
			for k, v := range row {
				if v == nil {
					elem.SetMapIndex(reflect.ValueOf(k).Convert(elemType.Key()), reflect.Zero(elemType.Elem()))
					continue
				}
				mv := reflect.ValueOf(v)
				if !mv.Type().AssignableTo(elemType.Elem()) {
					return fmt.Errorf("cannot assign %s to map value of type %s", mv.Type(), elemType.Elem())
				}
				elem.SetMapIndex(reflect.ValueOf(k).Convert(elemType.Key()), mv)
			}
		default:
			return fmt.Errorf("need slice of structs/maps, got slice of %s", elemType.Kind())
		}
		sliceVal = reflect.Append(sliceVal, elem)
	}
	ptrVal.Elem().Set(sliceVal)
	return nil
}

func decodeStruct(row map[string]any, structVal reflect.Value) error {
	info, err := typeInfo(structVal.Type())
	if err != nil {
		return err
	}
	for col, v := range row {
		f, ok := info.TagToField[col]
		if !ok {
			continue
		}
		if err := setField(structVal.Field(f.Index), v); err != nil {
			return fmt.Errorf("field %s: %s", f.Name, err)
		}
	}
	return nil
}

// setField stores a value read from the database into a struct field,
// converting it from its storage representation where needed.
func setField(field reflect.Value, v any) error {
	if v == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	if field.Kind() == reflect.Pointer {
		ptr := reflect.New(field.Type().Elem())
		if err := setField(ptr.Elem(), v); err != nil {
			return err
		}
		field.Set(ptr)
		return nil
	}

	val := reflect.ValueOf(v)
	switch {
	case field.Type() == timeType:
		ms, ok := v.(int64)
		if !ok {
			return fmt.Errorf("cannot decode date from %T", v)
		}
		field.Set(reflect.ValueOf(time.UnixMilli(ms)))
		return nil
	case field.Kind() == reflect.Bool:
		switch v := v.(type) {
		case int64:
			field.SetBool(v != 0)
			return nil
		case bool:
			field.SetBool(v)
			return nil
		}
		return fmt.Errorf("cannot decode boolean from %T", v)
	case field.Kind() == reflect.String:
		switch v := v.(type) {
		case string:
			field.SetString(v)
			return nil
		case []byte:
			field.SetString(string(v))
			return nil
		}
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && isNumeric(val.Kind()) && isNumeric(field.Kind()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	if text, ok := jsonText(v); ok {
		if isByteSlice(field.Type()) {
			field.SetBytes(text)
			return nil
		}
		switch field.Kind() {
		case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Interface:
			// Objects are stored as their JSON text.
			if err := json.Unmarshal(text, field.Addr().Interface()); err != nil {
				return fmt.Errorf("cannot decode object into %s: %s", field.Type(), err)
			}
			return nil
		}
	}
	return fmt.Errorf("cannot decode %T into %s", v, field.Type())
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func jsonText(v any) ([]byte, bool) {
	switch v := v.(type) {
	case string:
		return []byte(v), true
	case []byte:
		return v, true
	}
	return nil, false
}

func isByteSlice(t reflect.Type) bool {
	return t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8
}

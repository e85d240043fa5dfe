// Copyright (c) 2026 blairtcg
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cloudlog

import (
	"fmt"
	"reflect"

	"github.com/goccy/go-json"
)

// maxPayloadDepth caps how deep Stringify walks a value looking for cycles.
// Deeper values are treated as unserializable.
const maxPayloadDepth = 64

// Stringify converts any value to log text and never panics.
//
// Scalars, errors and fmt.Stringer values pass through as their plain text.
// Everything else is encoded as JSON. A value that can't be encoded (a cycle,
// a channel, a func, a method that panics) becomes "[unserializable <type>]".
func Stringify(v any) (s string) {
	defer func() {
		if recover() != nil {
			s = unserializable(v)
		}
	}()

	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case error:
		return val.Error()
	case fmt.Stringer:
		return val.String()
	}

	rv := reflect.ValueOf(v)
	if isScalar(rv.Kind()) {
		return formatScalar(v)
	}
	return marshalObject(v, rv)
}

func marshalObject(v any, rv reflect.Value) string {
	if hasCycle(rv) {
		return unserializable(v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return unserializable(v)
	}
	return string(b)
}

func unserializable(v any) string {
	return fmt.Sprintf("[unserializable %T]", v)
}

func isScalar(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	}
	return false
}

type visit struct {
	ptr uintptr
	typ reflect.Type
	len int
}

// hasCycle reports whether v reaches itself through exported fields, map
// values, slice or array elements, pointers or interfaces.
func hasCycle(v reflect.Value) bool {
	return walk(v, make(map[visit]struct{}), 0)
}

func walk(v reflect.Value, path map[visit]struct{}, depth int) bool {
	if depth > maxPayloadDepth {
		return true
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice:
		if v.IsNil() {
			return false
		}
		key := visit{ptr: v.Pointer(), typ: v.Type()}
		if v.Kind() == reflect.Slice {
			key.len = v.Len()
		}
		if _, ok := path[key]; ok {
			return true
		}
		path[key] = struct{}{}
		defer delete(path, key)
	}

	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return false
		}
		return walk(v.Elem(), path, depth+1)
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if walk(v.Field(i), path, depth+1) {
				return true
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if walk(iter.Value(), path, depth+1) {
				return true
			}
		}
	case reflect.Slice, reflect.Array:
		if isScalar(v.Type().Elem().Kind()) {
			return false
		}
		for i := 0; i < v.Len(); i++ {
			if walk(v.Index(i), path, depth+1) {
				return true
			}
		}
	}
	return false
}

package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// Keyer is implemented by query values that know their own stable cache representation.
type Keyer interface {
	CacheKey() string
}

// defaultKeySerializer writes one readable segment per argument. Equal query
// shapes always produce equal keys: maps are written in key order, pointers are
// followed, and times keep their offset since the same instant can fall on
// different calendar dates. Strings are quoted, so a value that
// contains separators cannot be mistaken for the segments around it.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer returns the readable key serializer used by in-process backends.
func NewDefaultKeySerializer() KeySerializer {
	return defaultKeySerializer{}
}

func (defaultKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	var b strings.Builder
	b.WriteString(method)
	b.WriteString(KeySeparator)
	writeArgs(&b, args)
	return b.String()
}

func writeArgs(b *strings.Builder, args []any) {
	for i, arg := range args {
		if i > 0 {
			b.WriteString(KeySeparator)
		}
		writeSegment(b, arg)
	}
}

func segment(v any) string {
	var b strings.Builder
	writeSegment(&b, v)
	return b.String()
}

func writeSegment(b *strings.Builder, v any) {
	if v == nil {
		b.WriteString("nil")
		return
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer && rv.IsNil() {
		b.WriteString("nil")
		return
	}

	switch x := v.(type) {
	case Keyer:
		b.WriteString("key:")
		b.WriteString(strconv.Quote(x.CacheKey()))
		return
	case time.Time:
		b.WriteString("time:")
		b.WriteString(x.Format(time.RFC3339Nano))
		return
	}

	switch rv.Kind() {
	case reflect.Pointer:
		writeSegment(b, rv.Elem().Interface())
	case reflect.Func:
		fmt.Fprintf(b, "func:%p", v)
	case reflect.Chan:
		fmt.Fprintf(b, "chan:%p", v)
	case reflect.Slice:
		if rv.IsNil() {
			b.WriteString("slice:nil")
			return
		}
		writeList(b, "slice", rv)
	case reflect.Array:
		writeList(b, "array", rv)
	case reflect.Map:
		if rv.IsNil() {
			b.WriteString("map:nil")
			return
		}
		writeMap(b, rv)
	case reflect.Struct:
		writeStruct(b, rv)
	case reflect.String:
		b.WriteString(strconv.Quote(rv.String()))
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		b.WriteString(strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		b.WriteString(strconv.FormatFloat(rv.Float(), 'g', -1, rv.Type().Bits()))
	case reflect.Complex64, reflect.Complex128:
		b.WriteString(strconv.FormatComplex(rv.Complex(), 'g', -1, rv.Type().Bits()))
	default:
		data, err := json.Marshal(v)
		if err != nil {
			b.WriteString("fallback:")
			b.WriteString(rv.Type().String())
			return
		}
		b.WriteString("json:")
		b.Write(data)
	}
}

// writeList writes slices and arrays as kind[len]:{a,b,...}.
func writeList(b *strings.Builder, kind string, rv reflect.Value) {
	fmt.Fprintf(b, "%s[%d]:{", kind, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		writeSegment(b, rv.Index(i).Interface())
	}
	b.WriteByte('}')
}

func writeMap(b *strings.Builder, rv reflect.Value) {
	type entry struct{ key, value string }

	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		entries = append(entries, entry{
			key:   segment(iter.Key().Interface()),
			value: segment(iter.Value().Interface()),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].key < entries[j].key })

	fmt.Fprintf(b, "map[%d]:{", len(entries))
	for i, e := range entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.key)
		b.WriteByte('=')
		b.WriteString(e.value)
	}
	b.WriteByte('}')
}

// writeStruct writes exported fields in declaration order; unexported fields do
// not take part in the key.
func writeStruct(b *strings.Builder, rv reflect.Value) {
	rt := rv.Type()
	b.WriteString("struct:{")
	written := 0
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		if written > 0 {
			b.WriteByte(',')
		}
		b.WriteString(field.Name)
		b.WriteByte(':')
		writeSegment(b, rv.Field(i).Interface())
		written++
	}
	b.WriteByte('}')
}

// hashedKeySerializer keeps the method segment readable and replaces the argument
// segments with their xxhash digest, keeping keys short for remote backends.
type hashedKeySerializer struct{}

// NewHashedKeySerializer returns a serializer whose keys collide exactly when the
// default serializer's would, up to xxhash collisions.
func NewHashedKeySerializer() KeySerializer {
	return hashedKeySerializer{}
}

func (hashedKeySerializer) SerializeKey(method string, args ...any) string {
	if len(args) == 0 {
		return method
	}

	var b strings.Builder
	writeArgs(&b, args)
	return method + KeySeparator + strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

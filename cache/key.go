package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// Key identifies a cached value within a Region.
//
// Keys are canonical encodings of the projected arguments: value-equal
// inputs produce equal keys regardless of map iteration order or identity.
type Key string

// KeyFunc derives a Key from an operation's full, ordered argument list.
//
// Contract:
// - Determinism: value-equal projected inputs must produce equal keys.
// - Concurrency: implementations must be safe for concurrent use.
type KeyFunc func(args ...any) (Key, error)

// Selector picks one component of a key tuple from the argument list.
type Selector func(args []any) (any, error)

// DefaultKey treats every argument as significant.
func DefaultKey(args ...any) (Key, error) {
	if args == nil {
		args = []any{}
	}
	return encodeKey(args)
}

// Project builds a KeyFunc from an ordered tuple of selectors. Arguments no
// selector reads do not influence the key.
func Project(parts ...Selector) KeyFunc {
	return func(args ...any) (Key, error) {
		tuple := make([]any, len(parts))
		for i, sel := range parts {
			v, err := sel(args)
			if err != nil {
				return "", &KeyError{Err: err}
			}
			tuple[i] = v
		}
		return encodeKey(tuple)
	}
}

// Arg selects argument i as-is.
func Arg(i int) Selector {
	return func(args []any) (any, error) {
		if i < 0 || i >= len(args) {
			return nil, fmt.Errorf("%w: %d of %d", ErrArgIndex, i, len(args))
		}
		return args[i], nil
	}
}

// TypeName selects the simple type name of argument i. An argument that is
// itself a reflect.Type contributes that type's name.
func TypeName(i int) Selector {
	arg := Arg(i)
	return func(args []any) (any, error) {
		v, err := arg(args)
		if err != nil {
			return nil, err
		}
		return simpleTypeName(v)
	}
}

func simpleTypeName(v any) (string, error) {
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	if t == nil {
		return "", fmt.Errorf("%w: nil argument has no type", ErrUnencodable)
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name, nil
	}
	// Unnamed composite types such as map[int]int.
	return t.String(), nil
}

func encodeKey(v any) (Key, error) {
	b, err := canonicalize(v)
	if err != nil {
		return "", &KeyError{Err: err}
	}
	if len(b) > MaxKeyLength {
		sum := sha256.Sum256(b)
		return Key("sha256:" + hex.EncodeToString(sum[:16])), nil
	}
	return Key(b), nil
}

// maxKeyDepth bounds how deep canonicalize follows nested values. Deeper
// values, including pointer cycles, are unencodable.
const maxKeyDepth = 32

var (
	typeOfType = reflect.TypeOf((*reflect.Type)(nil)).Elem()

	// Values of these types are written without a type tag.
	untagged = map[reflect.Type]bool{
		reflect.TypeOf(0):     true,
		reflect.TypeOf(""):    true,
		reflect.TypeOf(false): true,
	}
)

// canonicalize produces a deterministic, lossless encoding of v.
//
//   - int, string and bool are written bare: 7, "a\xff", true. Strings are
//     Go-quoted, so invalid UTF-8 survives.
//   - Every other scalar carries its type: float64(1), int64(1), cache.ID("a").
//   - Structs are written with every field, exported or not:
//     pkg/path.point{x:1,y:2}.
//   - Maps are emitted with entries sorted by their encoded keys, at every
//     depth. Slices and arrays are written in order; the container type does
//     not matter, so []int{1} and []any{1} are equal.
//   - Pointers and interfaces stand for the value they hold; nil is null.
func canonicalize(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, reflect.ValueOf(v), 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, rv reflect.Value, depth int) error {
	if depth > maxKeyDepth {
		return fmt.Errorf("%w: nested deeper than %d levels", ErrUnencodable, maxKeyDepth)
	}
	if !rv.IsValid() {
		buf.WriteString("null")
		return nil
	}
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		rv = rv.Elem()
	}

	t := rv.Type()
	if t.Implements(typeOfType) {
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		if !rv.CanInterface() {
			return fmt.Errorf("%w: unexported %s", ErrUnencodable, t)
		}
		buf.WriteString(strconv.Quote("type:" + rv.Interface().(reflect.Type).String()))
		return nil
	}

	switch rv.Kind() {
	case reflect.String:
		writeScalar(buf, t, strconv.Quote(rv.String()))
	case reflect.Bool:
		writeScalar(buf, t, strconv.FormatBool(rv.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		writeScalar(buf, t, strconv.FormatInt(rv.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		writeScalar(buf, t, strconv.FormatUint(rv.Uint(), 10))
	case reflect.Float32:
		writeScalar(buf, t, strconv.FormatFloat(rv.Float(), 'g', -1, 32))
	case reflect.Float64:
		writeScalar(buf, t, strconv.FormatFloat(rv.Float(), 'g', -1, 64))
	case reflect.Map:
		if rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return writeMap(buf, rv, depth)
	case reflect.Slice:
		if rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return writeList(buf, rv, depth)
	case reflect.Array:
		return writeList(buf, rv, depth)
	case reflect.Pointer:
		if rv.IsNil() {
			buf.WriteString("null")
			return nil
		}
		return writeCanonical(buf, rv.Elem(), depth+1)
	case reflect.Struct:
		return writeStruct(buf, rv, depth)
	default:
		return fmt.Errorf("%w: %s", ErrUnencodable, t)
	}
	return nil
}

func writeScalar(buf *bytes.Buffer, t reflect.Type, text string) {
	if untagged[t] {
		buf.WriteString(text)
		return
	}
	buf.WriteString(typeTag(t))
	buf.WriteByte('(')
	buf.WriteString(text)
	buf.WriteByte(')')
}

// typeTag names t unambiguously: named types by import path, the rest by
// their Go syntax.
func typeTag(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

func writeStruct(buf *bytes.Buffer, rv reflect.Value, depth int) error {
	t := rv.Type()
	buf.WriteString(typeTag(t))
	buf.WriteByte('{')
	written := 0
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Name == "_" {
			continue
		}
		if written > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(f.Name)
		buf.WriteByte(':')
		if err := writeCanonical(buf, rv.Field(i), depth+1); err != nil {
			return err
		}
		written++
	}
	buf.WriteByte('}')
	return nil
}

func writeMap(buf *bytes.Buffer, rv reflect.Value, depth int) error {
	type pair struct{ k, v []byte }

	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		var k, v bytes.Buffer
		if err := writeCanonical(&k, iter.Key(), depth+1); err != nil {
			return err
		}
		if err := writeCanonical(&v, iter.Value(), depth+1); err != nil {
			return err
		}
		pairs = append(pairs, pair{k.Bytes(), v.Bytes()})
	}
	sort.Slice(pairs, func(i, j int) bool {
		return bytes.Compare(pairs[i].k, pairs[j].k) < 0
	})

	buf.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(p.k)
		buf.WriteByte(':')
		buf.Write(p.v)
	}
	buf.WriteByte('}')
	return nil
}

func writeList(buf *bytes.Buffer, rv reflect.Value, depth int) error {
	buf.WriteByte('[')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeCanonical(buf, rv.Index(i), depth+1); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

// asKeyError makes sure err is reported as a *KeyError naming op.
func asKeyError(op string, err error) error {
	var ke *KeyError
	if errors.As(err, &ke) {
		return &KeyError{Op: op, Err: ke.Err}
	}
	return &KeyError{Op: op, Err: err}
}

package cache

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

type sample struct{}

type opaque struct{ n int }

type label string

type point struct {
	X, Y int
	tags map[string]bool
}

type other struct{ X, Y int }

type node struct{ next *node }

const pkg = "github.com/jonwraymond/memoize/cache."

func TestDefaultKey_Encoding(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want Key
	}{
		{"no args", nil, "[]"},
		{"single int", []any{7}, "[7]"},
		{"int and map", []any{0, map[int]int{0: 0}}, "[0,{0:0}]"},
		{"string keys sorted", []any{map[string]int{"b": 2, "a": 1}}, `[{"a":1,"b":2}]`},
		{"nested", []any{map[string]any{"z": []any{1, "x"}, "a": nil}}, `[{"a":null,"z":[1,"x"]}]`},
		{"type argument", []any{reflect.TypeOf(sample{})}, `["type:cache.sample"]`},
		{"pointer is dereferenced", []any{ptr(3)}, "[3]"},
		{"nil map", []any{map[int]int(nil)}, "[null]"},
		{"bool", []any{true}, "[true]"},
		{"float", []any{1.5}, "[float64(1.5)]"},
		{"sized int", []any{int64(-2), uint8(3)}, "[int64(-2),uint8(3)]"},
		{"invalid utf-8 kept", []any{"\xff"}, `["\xff"]`},
		{"named string", []any{label("a")}, `[` + pkg + `label("a")]`},
		{"unexported field", []any{opaque{n: 1}}, `[` + pkg + `opaque{n:1}]`},
		{"struct fields in order", []any{point{X: 1, Y: 2, tags: map[string]bool{"b": true, "a": false}}},
			`[` + pkg + `point{X:1,Y:2,tags:{"a":false,"b":true}}]`},
		{"float map keys", []any{map[float64]int{2: 1, 0.5: 0}}, "[{float64(0.5):0,float64(2):1}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DefaultKey(tt.args...)
			if err != nil {
				t.Fatalf("DefaultKey failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("DefaultKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestDefaultKey_StructuralEquality(t *testing.T) {
	a := map[int]int{}
	b := map[int]int{}
	for i := 0; i < 50; i++ {
		a[i] = i * i
	}
	for i := 49; i >= 0; i-- {
		b[i] = i * i
	}

	ka, err := DefaultKey(reflect.TypeOf(sample{}), a)
	if err != nil {
		t.Fatalf("DefaultKey failed: %v", err)
	}
	kb, err := DefaultKey(reflect.TypeOf(sample{}), b)
	if err != nil {
		t.Fatalf("DefaultKey failed: %v", err)
	}
	if ka != kb {
		t.Errorf("value-equal maps produced different keys:\n%s\n%s", ka, kb)
	}
}

func TestDefaultKey_DistinguishesValues(t *testing.T) {
	tests := []struct {
		name string
		a, b []any
	}{
		{"int and string", []any{1}, []any{"1"}},
		{"argument order", []any{1, 2}, []any{2, 1}},
		{"map entries", []any{map[int]int{0: 1}}, []any{map[int]int{1: 0}}},
		{"slice length", []any{[]int{1}}, []any{[]int{1, 1}}},
		{"invalid utf-8 bytes", []any{"\xff"}, []any{"\xfe"}},
		{"invalid utf-8 and replacement char", []any{"\xff"}, []any{"\ufffd"}},
		{"unexported field", []any{opaque{1}}, []any{opaque{2}}},
		{"unexported map field", []any{point{tags: map[string]bool{"a": true}}}, []any{point{}}},
		{"int and float", []any{1}, []any{1.0}},
		{"int and int64", []any{1}, []any{int64(1)}},
		{"float32 and float64", []any{float32(1)}, []any{float64(1)}},
		{"int8 and uint8", []any{int8(1)}, []any{uint8(1)}},
		{"zero and negative zero", []any{0.0}, []any{math.Copysign(0, -1)}},
		{"string and named string", []any{"a"}, []any{label("a")}},
		{"bool and string", []any{true}, []any{"true"}},
		{"same fields, different struct", []any{point{X: 1}}, []any{other{X: 1}}},
		{"empty and nil slice", []any{[]int{}}, []any{[]int(nil)}},
		{"string with quote", []any{`a","b`}, []any{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ka, err := DefaultKey(tt.a...)
			if err != nil {
				t.Fatalf("DefaultKey(%#v) failed: %v", tt.a, err)
			}
			kb, err := DefaultKey(tt.b...)
			if err != nil {
				t.Fatalf("DefaultKey(%#v) failed: %v", tt.b, err)
			}
			if ka == kb {
				t.Errorf("%#v and %#v share key %q", tt.a, tt.b, ka)
			}
		})
	}
}

func TestDefaultKey_EqualStructs(t *testing.T) {
	a := point{X: 1, tags: map[string]bool{"x": true, "y": false}}
	b := point{X: 1, tags: map[string]bool{"y": false, "x": true}}

	ka, _ := DefaultKey(a)
	kb, _ := DefaultKey(&b)
	if ka != kb {
		t.Errorf("value-equal structs produced different keys:\n%s\n%s", ka, kb)
	}
}

func TestDefaultKey_LongKeyIsDigested(t *testing.T) {
	k, err := DefaultKey(strings.Repeat("x", MaxKeyLength))
	if err != nil {
		t.Fatalf("DefaultKey failed: %v", err)
	}
	if !strings.HasPrefix(string(k), "sha256:") {
		t.Fatalf("expected digest key, got %q", k)
	}
	if len(k) != len("sha256:")+32 {
		t.Errorf("digest key length = %d", len(k))
	}

	again, _ := DefaultKey(strings.Repeat("x", MaxKeyLength))
	if again != k {
		t.Error("digest keys must be deterministic")
	}
}

func TestProject_IgnoresUnselectedArguments(t *testing.T) {
	keyFn := Project(TypeName(0), Arg(1))

	k1, err := keyFn(reflect.TypeOf(sample{}), map[int]int{1: 2}, 1)
	if err != nil {
		t.Fatalf("keyFn failed: %v", err)
	}
	k2, err := keyFn(reflect.TypeOf(sample{}), map[int]int{1: 2}, 99)
	if err != nil {
		t.Fatalf("keyFn failed: %v", err)
	}
	if k1 != k2 {
		t.Errorf("keys differ only by ignored argument: %q vs %q", k1, k2)
	}
	if k1 != `["sample",{1:2}]` {
		t.Errorf("key = %q", k1)
	}

	k3, _ := keyFn(reflect.TypeOf(sample{}), map[int]int{1: 3}, 1)
	if k3 == k1 {
		t.Error("different selected argument must change the key")
	}
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		name string
		arg  any
		want string
	}{
		{"reflect.Type", reflect.TypeOf(sample{}), "sample"},
		{"value", sample{}, "sample"},
		{"pointer", &sample{}, "sample"},
		{"builtin", 3, "int"},
		{"unnamed composite", map[int]int{}, "map[int]int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TypeName(0)([]any{tt.arg})
			if err != nil {
				t.Fatalf("TypeName failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("TypeName() = %v, want %q", got, tt.want)
			}
		})
	}
}

func TestKeyDerivationErrors(t *testing.T) {
	tests := []struct {
		name    string
		keyFn   KeyFunc
		args    []any
		wantErr error
	}{
		{"index out of range", Project(Arg(2)), []any{1, 2}, ErrArgIndex},
		{"negative index", Project(Arg(-1)), []any{1}, ErrArgIndex},
		{"type name of nil", Project(TypeName(0)), []any{nil}, ErrUnencodable},
		{"func argument", DefaultKey, []any{func() {}}, ErrUnencodable},
		{"chan inside map", DefaultKey, []any{map[string]any{"c": make(chan int)}}, ErrUnencodable},
		{"complex", DefaultKey, []any{1 + 2i}, ErrUnencodable},
		{"pointer cycle", DefaultKey, []any{cycle()}, ErrUnencodable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.keyFn(tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			var ke *KeyError
			if !errors.As(err, &ke) {
				t.Errorf("expected *KeyError, got %T", err)
			}
		})
	}
}

func cycle() *node {
	n := &node{}
	n.next = n
	return n
}

func TestAsKeyError(t *testing.T) {
	plain := errors.New("bad")
	err := asKeyError("lookup", plain)

	var ke *KeyError
	if !errors.As(err, &ke) || ke.Op != "lookup" || !errors.Is(err, plain) {
		t.Fatalf("asKeyError() = %#v", err)
	}

	rewrapped := asKeyError("other", &KeyError{Err: ErrArgIndex})
	if !errors.As(rewrapped, &ke) || ke.Op != "other" || !errors.Is(rewrapped, ErrArgIndex) {
		t.Errorf("asKeyError() = %#v", rewrapped)
	}
	if !strings.Contains(rewrapped.Error(), "other") {
		t.Errorf("message should name the operation: %q", rewrapped.Error())
	}
}

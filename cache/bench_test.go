package cache

import (
	"context"
	"reflect"
	"testing"
)

func BenchmarkDefaultKey(b *testing.B) {
	m := map[int]int{0: 1, 1: 2, 2: 3, 3: 4}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = DefaultKey(i%3, m)
	}
}

func BenchmarkProject(b *testing.B) {
	key := Project(TypeName(0), Arg(1))
	typ := reflect.TypeOf(sample{})
	m := map[int]int{0: 1}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = key(typ, m, i)
	}
}

func BenchmarkStore_Hit(b *testing.B) {
	ctx := context.Background()
	s := NewStore()
	compute := func(context.Context) (any, error) { return 1, nil }
	_, _ = s.GetOrCompute(ctx, "r", "k", compute)

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = s.GetOrCompute(ctx, "r", "k", compute)
		}
	})
}

func BenchmarkOperation_Hit(b *testing.B) {
	ctx := context.Background()
	op, _ := NewOperation(NewStore(), "r", "get", func(context.Context, ...any) (int, error) { return 1, nil })
	_, _ = op.Invoke(ctx, 0, map[int]int{0: 0})

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = op.Invoke(ctx, 0, map[int]int{0: 0})
	}
}

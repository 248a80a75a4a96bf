package vector

import (
	"context"
	"math"
	"testing"
)

func TestMemoryIndex_AddSearch(t *testing.T) {
	idx, err := NewMemoryIndex(3, MetricCosine)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	ids := []string{"a", "b", "c"}
	if err := idx.Add(ctx, ids, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Errorf("order = %s, %s; want a, b", results[0].ID, results[1].ID)
	}
	if results[0].Distance > 1e-9 {
		t.Errorf("identical vector should have distance 0, got %f", results[0].Distance)
	}
}

func TestMemoryIndex_SearchOrderingProperty(t *testing.T) {
	for _, metric := range []Metric{MetricCosine, MetricL2} {
		idx, _ := NewMemoryIndex(2, metric)
		ctx := context.Background()
		var ids []string
		var vecs [][]float32
		for i := 0; i < 25; i++ {
			angle := float64(i) * 0.37
			ids = append(ids, string(rune('a'+i)))
			vecs = append(vecs, []float32{float32(math.Cos(angle)) * float32(1+i%3), float32(math.Sin(angle))})
		}
		if err := idx.Add(ctx, ids, vecs); err != nil {
			t.Fatal(err)
		}
		for _, k := range []int{1, 4, 25, 40} {
			results, err := idx.Search(ctx, []float32{0.3, 0.8}, k)
			if err != nil {
				t.Fatal(err)
			}
			if len(results) > k {
				t.Errorf("%s k=%d: got %d results", metric, k, len(results))
			}
			for i := 1; i < len(results); i++ {
				if results[i].Distance < results[i-1].Distance {
					t.Errorf("%s k=%d: distances not non-decreasing at %d", metric, k, i)
				}
			}
		}
	}
}

func TestMemoryIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx, _ := NewMemoryIndex(2, MetricCosine)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"first", "second", "third"}, [][]float32{{1, 0}, {1, 0}, {1, 0}})
	results, _ := idx.Search(ctx, []float32{1, 0}, 3)
	for i, want := range []string{"first", "second", "third"} {
		if results[i].ID != want {
			t.Errorf("result %d = %s, want %s", i, results[i].ID, want)
		}
	}
}

func TestMemoryIndex_L2(t *testing.T) {
	idx, _ := NewMemoryIndex(2, MetricL2)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"far", "near"}, [][]float32{{10, 10}, {1, 1}})
	results, _ := idx.Search(ctx, []float32{0, 0}, 2)
	if results[0].ID != "near" {
		t.Errorf("nearest = %s", results[0].ID)
	}
	if math.Abs(results[0].Distance-math.Sqrt2) > 1e-6 {
		t.Errorf("distance = %f, want sqrt(2)", results[0].Distance)
	}
}

func TestMemoryIndex_Remove(t *testing.T) {
	idx, _ := NewMemoryIndex(2, MetricCosine)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"x", "y"}, [][]float32{{1, 0}, {0, 1}})
	if err := idx.Remove(ctx, []string{"x"}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 1 {
		t.Errorf("expected size 1, got %d", idx.Size())
	}
	if _, ok := idx.Vector("x"); ok {
		t.Error("x should be gone")
	}
	if v, ok := idx.Vector("y"); !ok || v[1] != 1 {
		t.Errorf("Vector(y) = %v, %v", v, ok)
	}
}

func TestMemoryIndex_AddReplacesExistingID(t *testing.T) {
	idx, _ := NewMemoryIndex(2, MetricCosine)
	ctx := context.Background()
	_ = idx.Add(ctx, []string{"x"}, [][]float32{{1, 0}})
	_ = idx.Add(ctx, []string{"x"}, [][]float32{{0, 1}})
	if idx.Size() != 1 {
		t.Fatalf("size = %d", idx.Size())
	}
	if v, _ := idx.Vector("x"); v[1] != 1 {
		t.Errorf("vector not replaced: %v", v)
	}
}

func TestMemoryIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewMemoryIndex(3, MetricCosine)
	ctx := context.Background()
	if err := idx.Add(ctx, []string{"ok", "bad"}, [][]float32{{1, 0, 0}, {1, 0}}); err == nil {
		t.Error("expected dimension error")
	}
	if idx.Size() != 0 {
		t.Error("failed Add must not insert anything")
	}
	if _, err := idx.Search(ctx, []float32{1}, 1); err == nil {
		t.Error("expected query dimension error")
	}
}

func TestMemoryIndex_EmptyAndZeroK(t *testing.T) {
	idx, _ := NewMemoryIndex(2, MetricCosine)
	ctx := context.Background()
	if res, err := idx.Search(ctx, []float32{1, 0}, 3); err != nil || res != nil {
		t.Errorf("empty index: %v, %v", res, err)
	}
	_ = idx.Add(ctx, []string{"a"}, [][]float32{{1, 0}})
	if res, _ := idx.Search(ctx, []float32{1, 0}, 0); res != nil {
		t.Errorf("k=0 should return nil, got %v", res)
	}
}

func TestNewMemoryIndex_InvalidDimensions(t *testing.T) {
	if _, err := NewMemoryIndex(0, MetricCosine); err == nil {
		t.Error("expected error for zero dimensions")
	}
}

package worker

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewPoolDefaultConcurrency(t *testing.T) {
	p := NewPool[string](0)
	if p.concurrency != runtime.NumCPU() {
		t.Errorf("expected concurrency %d, got %d", runtime.NumCPU(), p.concurrency)
	}

	p2 := NewPool[string](-1)
	if p2.concurrency != runtime.NumCPU() {
		t.Errorf("expected concurrency %d for -1, got %d", runtime.NumCPU(), p2.concurrency)
	}
}

func TestNewPoolExplicitConcurrency(t *testing.T) {
	p := NewPool[string](4)
	if p.concurrency != 4 {
		t.Errorf("expected concurrency 4, got %d", p.concurrency)
	}
}

func TestProcessEmpty(t *testing.T) {
	p := NewPool[string](2)
	results := p.Process(context.Background(), nil, func(_ context.Context, s string) (string, error) {
		return s, nil
	})
	if results != nil {
		t.Errorf("expected nil results for empty input, got %v", results)
	}
}

func TestProcessPreservesOrderAndPath(t *testing.T) {
	p := NewPool[string](4)
	paths := []string{"a.go", "b.go", "c.go", "d.go", "e.go", "f.go", "g.go", "h.go"}

	results := p.Process(context.Background(), paths, func(_ context.Context, path string) (string, error) {
		return "read:" + path, nil
	})

	if len(results) != len(paths) {
		t.Fatalf("expected %d results, got %d", len(paths), len(results))
	}

	for i, r := range results {
		if r.Err != nil {
			t.Errorf("result[%d] unexpected error: %v", i, r.Err)
		}
		if r.Path != paths[i] {
			t.Errorf("result[%d].Path = %q, expected %q", i, r.Path, paths[i])
		}
		expected := "read:" + paths[i]
		if r.Value != expected {
			t.Errorf("result[%d] = %q, expected %q", i, r.Value, expected)
		}
		if r.Index != i {
			t.Errorf("result[%d].Index = %d, expected %d", i, r.Index, i)
		}
	}
}

func TestProcessCapturesErrors(t *testing.T) {
	p := NewPool[int](2)
	paths := []string{"ok.go", "missing.go", "ok.go", "missing.go"}

	results := p.Process(context.Background(), paths, func(_ context.Context, path string) (int, error) {
		if path == "missing.go" {
			return 0, fmt.Errorf("not found: %s", path)
		}
		return 1, nil
	})

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}

	if results[0].Err != nil || results[0].Value != 1 {
		t.Errorf("result[0] should succeed, got err=%v val=%d", results[0].Err, results[0].Value)
	}
	if results[2].Err != nil || results[2].Value != 1 {
		t.Errorf("result[2] should succeed, got err=%v val=%d", results[2].Err, results[2].Value)
	}
	if results[1].Err == nil {
		t.Error("result[1] should have error")
	}
	if results[3].Err == nil {
		t.Error("result[3] should have error")
	}
}

func TestProcessConcurrency(t *testing.T) {
	p := NewPool[int](4)

	var maxConcurrent int64
	var current int64
	paths := make([]string, 20)
	for i := range paths {
		paths[i] = fmt.Sprintf("file-%d.go", i)
	}

	results := p.Process(context.Background(), paths, func(_ context.Context, _ string) (int, error) {
		c := atomic.AddInt64(&current, 1)
		for {
			old := atomic.LoadInt64(&maxConcurrent)
			if c <= old || atomic.CompareAndSwapInt64(&maxConcurrent, old, c) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond) // simulate a jj subprocess call
		atomic.AddInt64(&current, -1)
		return 1, nil
	})

	if len(results) != 20 {
		t.Fatalf("expected 20 results, got %d", len(results))
	}

	peak := atomic.LoadInt64(&maxConcurrent)
	if peak < 2 {
		t.Errorf("expected concurrent execution (peak=%d), got sequential", peak)
	}
}

func TestProcessStopsDispatchingAfterCancel(t *testing.T) {
	p := NewPool[int](1)
	paths := make([]string, 10)
	for i := range paths {
		paths[i] = fmt.Sprintf("file-%d.go", i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var processed int64

	results := p.Process(ctx, paths, func(_ context.Context, _ string) (int, error) {
		if atomic.AddInt64(&processed, 1) == 1 {
			cancel()
		}
		time.Sleep(5 * time.Millisecond)
		return 1, nil
	})

	if len(results) != 10 {
		t.Fatalf("expected 10 results, got %d", len(results))
	}

	var canceled int
	for _, r := range results {
		if r.Err == context.Canceled {
			canceled++
		}
	}
	if canceled == 0 {
		t.Error("expected at least one result to carry context.Canceled after cancel()")
	}
}

func TestProcessSingleItem(t *testing.T) {
	p := NewPool[string](4)
	results := p.Process(context.Background(), []string{"only.go"}, func(_ context.Context, path string) (string, error) {
		return "done:" + path, nil
	})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Value != "done:only.go" {
		t.Errorf("expected done:only.go, got %s", results[0].Value)
	}
}

func TestProcessMoreWorkersThanItems(t *testing.T) {
	p := NewPool[string](100)
	paths := []string{"a.go", "b.go"}

	results := p.Process(context.Background(), paths, func(_ context.Context, path string) (string, error) {
		return path + "!", nil
	})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Value != "a.go!" || results[1].Value != "b.go!" {
		t.Errorf("unexpected values: %v, %v", results[0].Value, results[1].Value)
	}
}

func TestProcessResultsAreSortable(t *testing.T) {
	p := NewPool[string](4)
	paths := []string{"c.go", "a.go", "b.go"}

	results := p.Process(context.Background(), paths, func(_ context.Context, path string) (string, error) {
		return path, nil
	})

	for i, r := range results {
		if r.Index != i {
			t.Errorf("result[%d].Index = %d", i, r.Index)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Value < results[j].Value
	})
	if results[0].Value != "a.go" || results[1].Value != "b.go" || results[2].Value != "c.go" {
		t.Error("sorting by value failed")
	}
}

func BenchmarkPoolProcess(b *testing.B) {
	paths := make([]string, 100)
	for i := range paths {
		paths[i] = fmt.Sprintf("file-%d.go", i)
	}
	ctx := context.Background()
	b.ResetTimer()
	for range b.N {
		p := NewPool[string](4)
		_ = p.Process(ctx, paths, func(_ context.Context, path string) (string, error) {
			return path + "-done", nil
		})
	}
}

package pool

import (
	"runtime"
	"sync"
	"testing"
)

func TestGetPutExactSize(t *testing.T) {
	sizes := []int{256, 1024, 4096, 16384, 65536, 262144, 1048576, 500, 3000}
	for _, size := range sizes {
		b := Get(size)
		if len(b) != size {
			t.Errorf("Get(%d): len = %d, want %d", size, len(b), size)
		}
		Put(b)
	}
}

func TestGetCapacityMatchesBucket(t *testing.T) {
	tests := []struct {
		size   int
		minCap int
	}{
		{256, 256},
		{100, 256},
		{1024, 1024},
		{512, 1024},
		{4096, 4096},
		{2048, 4096},
		{16384, 16384},
		{65536, 65536},
		{262144, 262144},
		{1048576, 1048576},
	}
	for _, tt := range tests {
		b := Get(tt.size)
		if cap(b) < tt.minCap {
			t.Errorf("Get(%d): cap = %d, want >= %d", tt.size, cap(b), tt.minCap)
		}
		Put(b)
	}
}

func TestGetSmallSizesRoundUpToFirstBucket(t *testing.T) {
	for _, size := range []int{1, 10, 64, 128, 255} {
		b := Get(size)
		if len(b) != size {
			t.Errorf("Get(%d): len = %d, want %d", size, len(b), size)
		}
		if cap(b) < Size256B {
			t.Errorf("Get(%d): cap = %d, want >= %d", size, cap(b), Size256B)
		}
		Put(b)
	}
}

func TestGetAboveLargestBucketAllocatesFresh(t *testing.T) {
	// Sizes over Size1M can't be served by the last pool's New (which
	// only makes 1M slices), so Get must fall back to a fresh make.
	for _, size := range []int{2 * Size1M, Size1M + 1} {
		b := Get(size)
		if len(b) != size {
			t.Errorf("Get(%d): len = %d, want %d", size, len(b), size)
		}
		if cap(b) < size {
			t.Errorf("Get(%d): cap = %d, want >= %d", size, cap(b), size)
		}
		Put(b)
	}
}

func TestPutBelowBucket0IsNoop(t *testing.T) {
	Put(make([]byte, 100))
	Put(make([]byte, 0, 10))
	Put(nil)

	// The pool must still serve normal requests after these no-ops.
	b := Get(Size256B)
	if len(b) != Size256B {
		t.Errorf("Get(%d) after no-op Put: len = %d, want %d", Size256B, len(b), Size256B)
	}
	Put(b)
}

func TestBucketIndexBoundaries(t *testing.T) {
	tests := []struct {
		size       int
		wantBucket int
		wantMinCap int
	}{
		{1, 0, Size256B},
		{256, 0, Size256B},
		{257, 1, Size1K},
		{1024, 1, Size1K},
		{1025, 2, Size4K},
		{4096, 2, Size4K},
		{4097, 3, Size16K},
		{16384, 3, Size16K},
		{16385, 4, Size64K},
		{65536, 4, Size64K},
		{65537, 5, Size256K},
		{262144, 5, Size256K},
		{262145, 6, Size1M},
		{1048576, 6, Size1M},
		{2097152, 6, Size1M},
	}
	for _, tt := range tests {
		if got := bucketIndex(tt.size); got != tt.wantBucket {
			t.Errorf("bucketIndex(%d) = %d, want %d", tt.size, got, tt.wantBucket)
		}
	}
}

// TestReuseSurvivesGC exercises the score/font calling pattern directly:
// a frame-delta-sized buffer is filled, returned, and the pool is asked
// for the same size again after a GC, the way repeated per-frame decodes
// or per-glyph rasterisation would.
func TestReuseSurvivesGC(t *testing.T) {
	const size = 4096
	b := Get(size)
	b[0] = 0xAB
	b[size-1] = 0xAB
	Put(b)

	runtime.GC()

	b2 := Get(size)
	if len(b2) != size {
		t.Fatalf("Get(%d) after reuse: len = %d", size, len(b2))
	}
	if cap(b2) < Size4K {
		t.Errorf("Get(%d) after reuse: cap = %d, want >= %d", size, cap(b2), Size4K)
	}
	Put(b2)

	for i := 0; i < 10; i++ {
		buf := Get(size)
		if len(buf) != size {
			t.Errorf("cycle %d: Get(%d) len = %d", i, size, len(buf))
		}
		Put(buf)
	}
}

func TestGetZeroSize(t *testing.T) {
	b := Get(0)
	if len(b) != 0 {
		t.Errorf("Get(0): len = %d, want 0", len(b))
	}
	Put(b)
}

// TestConcurrentGetPut exercises the process-wide pool from many
// goroutines at once, as separate callers of score and font decodes
// running on different goroutines would share it.
func TestConcurrentGetPut(t *testing.T) {
	const goroutines = 32
	const iterations = 100
	sizes := []int{128, 512, 2048, 8192, 32768, 131072, 524288}

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < iterations; i++ {
				for _, size := range sizes {
					b := Get(size)
					if len(b) != size {
						t.Errorf("concurrent Get(%d): len = %d", size, len(b))
						return
					}
					for j := range b {
						b[j] = byte(j)
					}
					Put(b)
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkGet(b *testing.B) {
	for _, size := range []int{256, 4096, 65536, 1048576} {
		b.Run("", func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				buf := Get(size)
				Put(buf)
			}
		})
	}
}

func BenchmarkGetParallel(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := Get(4096)
			Put(buf)
		}
	})
}

package alloc

import (
	"fmt"
	"math/rand"
	"testing"
)

func fuzz(rng *rand.Rand, n int) int {
	if rng.Int()%2 == 0 {
		return n
	}
	return n + 8
}

func BenchmarkAllocs(b *testing.B) {
	allocationSizes := []int{256, 5120, 10000}
	NValues := []int{100, 1000}

	for _, size := range allocationSizes {
		for _, N := range NValues {
			b.Run(fmt.Sprintf("ManualAllocator_Size%d_N%d", size, N), func(b *testing.B) {
				rng := rand.New(rand.NewSource(42))
				h := NewHeap(0)
				defer h.Release()
				for i := 0; i < b.N; i++ {
					for j := 0; j < N; j++ {
						p := h.Malloc(uintptr(fuzz(rng, size)))
						*(*byte)(p) = 1
						h.Free(p)
					}
				}
			})

			b.Run(fmt.Sprintf("StandardAllocator_Size%d_N%d", size, N), func(b *testing.B) {
				rng := rand.New(rand.NewSource(42))
				for i := 0; i < b.N; i++ {
					for j := 0; j < N; j++ {
						slice := make([]byte, fuzz(rng, size))
						slice[0] = 1
						_ = slice
					}
				}
			})
		}
	}
}

func BenchmarkReallocGrow(b *testing.B) {
	h := NewHeap(0)
	defer h.Release()
	for i := 0; i < b.N; i++ {
		p := h.Malloc(64)
		for size := uintptr(128); size <= 8192; size *= 2 {
			p = h.Realloc(p, size)
		}
		h.Free(p)
	}
}

package alloc

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHeap(t *testing.T) *Heap {
	t.Helper()
	h := NewHeap(OptChecks)
	t.Cleanup(h.Release)
	return h
}

func heapBlocks(h *Heap) []*blockMeta {
	var blocks []*blockMeta
	for b := h.start; b != nil; b = b.next {
		blocks = append(blocks, b)
	}
	return blocks
}

func fill(p unsafe.Pointer, n uintptr, v byte) {
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = v
	}
}

func TestMallocZeroReturnsNil(t *testing.T) {
	h := newTestHeap(t)
	assert.Nil(t, h.Malloc(0))
}

func TestMallocInitialReservation(t *testing.T) {
	h := newTestHeap(t)

	p := h.Malloc(100)
	require.NotNil(t, p)

	blocks := heapBlocks(h)
	require.Len(t, blocks, 2)
	assert.Equal(t, alignedSize(100), blocks[0].size)
	assert.Equal(t, statusAlloc, blocks[0].status)
	assert.Equal(t, uintptr(initMemAlloc)-2*headerSize-alignedSize(100), blocks[1].size)
	assert.Equal(t, statusFree, blocks[1].status)
}

func TestSplitKeepsRemainderLargerThanHeader(t *testing.T) {
	h := newTestHeap(t)

	p := h.Malloc(1)
	require.NotNil(t, p)

	blocks := heapBlocks(h)
	require.Len(t, blocks, 2)
	assert.Equal(t, uintptr(8), blocks[0].size)
	assert.Equal(t, uintptr(initMemAlloc)-2*headerSize-8, blocks[1].size)
}

func TestMallocAlignment(t *testing.T) {
	h := newTestHeap(t)

	for _, size := range []uintptr{1, 7, 8, 13, 100, 4096, 100000} {
		p := h.Malloc(size)
		require.NotNil(t, p)
		assert.Zero(t, uintptr(p)%8, "payload for size %d not 8-aligned", size)
		assert.Zero(t, blockOf(p).size%8, "stored size for %d not 8-aligned", size)
	}
}

func TestCoalesceOnNextAllocation(t *testing.T) {
	h := newTestHeap(t)

	p1 := h.Malloc(100)
	p2 := h.Malloc(100)
	h.Free(p1)
	h.Free(p2)

	// both neighbours free, not merged yet
	assert.Equal(t, statusFree, blockOf(p1).status)
	assert.Equal(t, statusFree, blockOf(p2).status)

	p3 := h.Malloc(180)
	require.NotNil(t, p3)
	assert.Equal(t, p1, p3, "coalesced block should start at the lower of the two freed addresses")
}

func TestBestFitPicksSmallestCandidate(t *testing.T) {
	h := newTestHeap(t)

	big := h.Malloc(512)
	sep1 := h.Malloc(64)
	small := h.Malloc(128)
	sep2 := h.Malloc(64)
	h.Free(big)
	h.Free(small)

	// both holes fit; the 128-byte one is the tighter fit
	p := h.Malloc(100)
	assert.Equal(t, small, p)

	h.Free(sep1)
	h.Free(sep2)
}

func TestLargeAllocationUsesMapping(t *testing.T) {
	h := newTestHeap(t)

	p := h.Malloc(200000)
	require.NotNil(t, p)

	block := blockOf(p)
	assert.Equal(t, statusMapped, block.status)
	assert.Nil(t, block.prev)
	assert.Nil(t, block.next)
	for b := h.start; b != nil; b = b.next {
		assert.NotSame(t, b, block)
	}

	region, ok := h.mapped[uintptr(unsafe.Pointer(block))]
	require.True(t, ok)
	assert.Equal(t, 200000+int(headerSize), len(region))

	h.Free(p)
	assert.Empty(t, h.mapped)
}

func TestFreeNilAndDoubleFree(t *testing.T) {
	h := newTestHeap(t)

	h.Free(nil)

	p := h.Malloc(64)
	h.Free(p)
	h.Free(p)
	assert.Equal(t, statusFree, blockOf(p).status)
}

func TestFreeRestoresAllFreeHeap(t *testing.T) {
	h := newTestHeap(t)

	p := h.Malloc(64)
	h.Free(p)

	for _, b := range heapBlocks(h) {
		assert.Equal(t, statusFree, b.status)
	}
}

func TestCallocZeroesRecycledBlock(t *testing.T) {
	h := newTestHeap(t)

	p := h.Malloc(1000)
	require.NotNil(t, p)
	fill(p, 1000, 0xAA)
	h.Free(p)

	q := h.Calloc(1000, 1)
	require.NotNil(t, q)
	assert.Equal(t, p, q, "calloc should recycle the freed block")
	for i, b := range unsafe.Slice((*byte)(q), 1000) {
		require.Zerof(t, b, "byte %d not zeroed", i)
	}
}

func TestCallocZeroFactorsReturnNil(t *testing.T) {
	h := newTestHeap(t)
	assert.Nil(t, h.Calloc(0, 8))
	assert.Nil(t, h.Calloc(8, 0))
}

func TestCallocOverflowReturnsNil(t *testing.T) {
	h := newTestHeap(t)
	assert.Nil(t, h.Calloc(^uintptr(0), 2))
	assert.Nil(t, h.Calloc(^uintptr(0)/2, 4))
}

func TestCallocLargeUsesPagesizeThreshold(t *testing.T) {
	h := newTestHeap(t)

	// above a page but far below mmapThreshold: calloc maps, malloc
	// would not
	p := h.Calloc(1, 8192)
	require.NotNil(t, p)
	assert.Equal(t, statusMapped, blockOf(p).status)
	for i, b := range unsafe.Slice((*byte)(p), 8192) {
		require.Zerof(t, b, "byte %d not zeroed", i)
	}
	h.Free(p)

	q := h.Malloc(8192)
	require.NotNil(t, q)
	assert.Equal(t, statusAlloc, blockOf(q).status)
}

func TestWritesDoNotDisturbNeighbours(t *testing.T) {
	h := newTestHeap(t)

	p1 := h.Malloc(64)
	p2 := h.Malloc(64)
	p3 := h.Malloc(64)

	before := blockOf(p3).size
	fill(p2, 64, 0xFF)

	assert.Equal(t, uintptr(64), blockOf(p1).size)
	assert.Equal(t, statusAlloc, blockOf(p1).status)
	assert.Equal(t, before, blockOf(p3).size)
	assert.Equal(t, statusAlloc, blockOf(p3).status)
	h.checkList()
}

func TestOwns(t *testing.T) {
	h := newTestHeap(t)

	p := h.Malloc(64)
	m := h.Malloc(200000)
	assert.True(t, h.Owns(p))
	assert.True(t, h.Owns(m))

	var local int
	assert.False(t, h.Owns(unsafe.Pointer(&local)))

	h.Free(m)
	assert.False(t, h.Owns(m))
}

func TestUsageCounters(t *testing.T) {
	h := newTestHeap(t)

	p1 := h.Malloc(104)
	p2 := h.Malloc(200000)

	u := h.Usage()
	assert.Equal(t, uint64(104+200000), u.Used)
	assert.Equal(t, uint64(104+200000)+3*uint64(headerSize), u.RealUsed)
	assert.Equal(t, uint64(initMemAlloc)-2*uint64(headerSize)-104, u.Free)
	assert.Equal(t, u.Free, h.Available())

	h.Free(p1)
	h.Free(p2)
	u = h.Usage()
	assert.Zero(t, u.Used)
}

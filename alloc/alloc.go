// Package alloc is a general-purpose manual memory allocator. It
// services malloc, calloc, free and realloc over two backing sources:
// a contiguous break region holding an intrusive doubly-linked list of
// blocks, and independent anonymous mappings for large requests.
//
// The allocator is single-threaded: there is no internal locking, and
// calling it from more than one goroutine at a time is undefined.
package alloc

import (
	"unsafe"

	"github.com/shivam-909/osmem/internal/mem"
)

const (
	// mmapThreshold routes malloc/realloc requests whose total
	// footprint exceeds it to an independent mapping. calloc uses the
	// OS page size instead.
	mmapThreshold = 128 * 1024

	// initMemAlloc is reserved in one break extension on the first
	// break-region allocation.
	initMemAlloc = 128 * 1024
)

// Options encodes configuration flags for a Heap.
type Options uint32

const (
	// OptChecks walks the heap list at every public-call exit and
	// panics on a broken invariant.
	OptChecks Options = 1 << iota
	// OptDebug logs each block transition.
	OptDebug
)

// Heap is one allocator instance: the break-region anchor, the cached
// page size and the registry of live mappings. The zero value is ready
// to use; the break region is reserved lazily on the first break-path
// allocation.
type Heap struct {
	start    *blockMeta // first block of the break region
	brk      *mem.Break
	pagesize uintptr
	mapped   map[uintptr][]byte // live mappings keyed by header address
	options  Options
}

// NewHeap returns a private heap with the given options. The
// package-level functions operate on one process-wide instance.
func NewHeap(options Options) *Heap {
	return &Heap{options: options}
}

// std is the process-wide heap behind the package-level entry points.
var std Heap

// Malloc allocates size usable bytes and returns their 8-aligned
// address, or nil when size is 0.
func Malloc(size uintptr) unsafe.Pointer { return std.Malloc(size) }

// Calloc allocates nmemb*size zeroed bytes. Either factor being 0, or
// their product overflowing, yields nil.
func Calloc(nmemb, size uintptr) unsafe.Pointer { return std.Calloc(nmemb, size) }

// Free releases ptr. nil is a no-op; freeing a break-region block twice
// is tolerated.
func Free(ptr unsafe.Pointer) { std.Free(ptr) }

// Realloc resizes a previous allocation, preserving the payload up to
// the smaller of the old and new sizes.
func Realloc(ptr unsafe.Pointer, size uintptr) unsafe.Pointer { return std.Realloc(ptr, size) }

// Malloc allocates size usable bytes from h.
func (h *Heap) Malloc(size uintptr) unsafe.Pointer {
	size = alignedSize(size)
	if size == 0 {
		return nil
	}
	defer h.verify()

	if size+headerSize > mmapThreshold {
		return h.allocBlock(nil, size+headerSize, mmapThreshold).payload()
	}

	if h.start == nil {
		h.start = h.prealloc(size + headerSize)
		return h.start.payload()
	}
	coalesce(h.start)

	if block := findBestBlock(h.start, size+headerSize); block != nil {
		return block.payload()
	}
	return h.tailExtend(size).payload()
}

// Calloc allocates nmemb*size zeroed bytes from h. Large requests are
// judged against the OS page size rather than mmapThreshold; a fresh
// mapping is already zero-filled, everything else is zeroed explicitly.
func (h *Heap) Calloc(nmemb, size uintptr) unsafe.Pointer {
	if nmemb == 0 || size == 0 {
		return nil
	}
	total := nmemb * size
	if total/nmemb != size {
		// multiplication overflow
		return nil
	}
	newSize := alignedSize(total)

	if h.pagesize == 0 {
		h.pagesize = uintptr(mem.Pagesize())
	}
	defer h.verify()

	if newSize+headerSize > h.pagesize {
		return h.allocBlock(nil, newSize+headerSize, h.pagesize).payload()
	}

	if h.start == nil {
		h.start = h.prealloc(newSize + headerSize)
		clear(h.start.payloadBytes())
		return h.start.payload()
	}
	coalesce(h.start)

	if block := findBestBlock(h.start, newSize+headerSize); block != nil {
		clear(block.payloadBytes())
		return block.payload()
	}
	block := h.tailExtend(newSize)
	clear(block.payloadBytes())
	return block.payload()
}

// Free releases ptr back to h.
func (h *Heap) Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}
	defer h.verify()

	block := blockOf(ptr)
	switch block.status {
	case statusFree:
		// double free, tolerated; coalescing is deferred until the
		// next allocation
	case statusMapped:
		h.unmapBlock(block)
	default:
		block.status = statusFree
	}
}

// Realloc resizes ptr to size usable bytes within h. Break-region
// blocks grow in place when they are the heap tail or when enough
// immediately following free blocks can be merged in; otherwise the
// payload moves to a fresh allocation.
func (h *Heap) Realloc(ptr unsafe.Pointer, size uintptr) unsafe.Pointer {
	size = alignedSize(size)
	if size == 0 {
		h.Free(ptr)
		return nil
	}
	if ptr == nil {
		return h.Malloc(size)
	}
	defer h.verify()

	block := blockOf(ptr)
	switch {
	case block.status == statusFree:
		h.debugf("realloc of a freed pointer %p\n", ptr)
		return nil
	case block.status == statusMapped:
		// mappings cannot be resized in place
		return h.relocate(block, size)
	case size == block.size:
		return ptr
	case size < block.size:
		split(block, size+headerSize)
		return ptr
	}

	if block.next == nil {
		return h.tailGrow(block, size)
	}
	for next := block.next; next != nil && next.status == statusFree; next = block.next {
		merge(block, next)
		if block.size >= size {
			split(block, headerSize+size)
			return ptr
		}
	}
	if block.next == nil {
		// the merges consumed the rest of the heap; finish the growth
		// at the break
		return h.tailGrow(block, size)
	}
	return h.relocate(block, size)
}

// tailGrow extends the tail block in place by moving the break to the
// new payload end.
func (h *Heap) tailGrow(block *blockMeta, size uintptr) unsafe.Pointer {
	if err := h.brk.Set(unsafe.Add(block.payload(), size)); err != nil {
		PANIC("%s\n", err)
	}
	block.size = size
	return block.payload()
}

// relocate satisfies a resize by allocate-copy-free.
func (h *Heap) relocate(block *blockMeta, size uintptr) unsafe.Pointer {
	ptr := h.Malloc(size)
	fresh := blockOf(ptr)
	n := min(fresh.size, block.size)
	copy(unsafe.Slice((*byte)(ptr), n), block.payloadBytes()[:n])
	h.Free(block.payload())
	return ptr
}

// Owns reports whether p lies inside h's break region (below the current
// break) or inside one of h's live mappings. A break-region address
// counts even when its block has been freed.
func (h *Heap) Owns(p unsafe.Pointer) bool {
	if h.brk != nil && h.brk.Contains(p) {
		return true
	}
	for addr, region := range h.mapped {
		if uintptr(p) >= addr && uintptr(p) < addr+uintptr(len(region)) {
			return true
		}
	}
	return false
}

// Release tears the heap down: every live mapping is unmapped and the
// break reservation is returned to the OS. Only tests and short-lived
// tools call this; a process-wide heap lives for the process.
func (h *Heap) Release() {
	for addr, region := range h.mapped {
		delete(h.mapped, addr)
		if err := mem.Unmap(region); err != nil {
			PANIC("%s\n", err)
		}
	}
	if h.brk != nil {
		if err := h.brk.Release(); err != nil {
			PANIC("%s\n", err)
		}
		h.brk = nil
	}
	h.start = nil
	h.pagesize = 0
}

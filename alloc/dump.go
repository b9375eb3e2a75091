package alloc

import (
	"unsafe"

	"github.com/intuitivelabs/slog"
)

// debugf logs a block transition when OptDebug is set.
func (h *Heap) debugf(f string, a ...interface{}) {
	if h.options&OptDebug == 0 {
		return
	}
	Log.LLog(slog.LDBG, 1, pDBG, f, a...)
}

// verify runs the list walker when OptChecks is set. Hung off a defer
// at every public-call exit.
func (h *Heap) verify() {
	if h.options&OptChecks == 0 {
		return
	}
	h.checkList()
}

// checkList walks the heap list and panics on any broken structural
// invariant: size alignment, link symmetry, address contiguity, no
// mapped block in the list, tail ending at the break.
func (h *Heap) checkList() {
	var prev *blockMeta
	for b := h.start; b != nil; b = b.next {
		if b.size%8 != 0 {
			PANIC("BUG: block %p has unaligned size %d\n", b, b.size)
		}
		if b.status == statusMapped {
			PANIC("BUG: mapped block %p linked into the heap list\n", b)
		}
		if b.prev != prev {
			PANIC("BUG: block %p prev link %p, expected %p\n", b, b.prev, prev)
		}
		if prev != nil && unsafe.Pointer(b) != prev.end() {
			PANIC("BUG: block %p does not start at predecessor end %p\n",
				b, prev.end())
		}
		prev = b
	}
	if prev != nil && prev.end() != h.brk.End() {
		PANIC("BUG: heap tail ends at %p, break is at %p\n",
			prev.end(), h.brk.End())
	}
}

// DumpStatus writes the current heap layout to the log: every
// break-region block, every live mapping and the usage counters.
func (h *Heap) DumpStatus() {
	const lev = slog.LDBG
	const prefix = "heap_status "

	if !Log.L(lev) {
		return
	}
	Log.LLog(lev, 0, prefix, "(%p):\n", h)
	if h == nil {
		return
	}
	i := 0
	for b := h.start; b != nil; b = b.next {
		Log.LLog(lev, 0, prefix,
			"   %3d. block=%p payload=%p size=%6d %s\n",
			i, b, b.payload(), b.size, b.status)
		i++
	}
	for addr, region := range h.mapped {
		Log.LLog(lev, 0, prefix,
			"   mapped block=%#x total=%d\n", addr, len(region))
	}
	u := h.Usage()
	Log.LLog(lev, 0, prefix, "used=%d used+overhead=%d free=%d\n",
		u.Used, u.RealUsed, u.Free)
	Log.LLog(lev, 0, prefix, "-----------------------------\n")
}

package alloc

import "unsafe"

// split carves a trailing free block off block when it is larger than
// total (header + payload) needs. The remainder must be strictly larger
// than one header, i.e. able to hold a header plus at least one
// alignment unit of payload; smaller remainders stay inside the block
// as accepted internal fragmentation.
func split(block *blockMeta, total uintptr) {
	if headerSize+block.size-total <= headerSize {
		return
	}

	rest := (*blockMeta)(unsafe.Add(unsafe.Pointer(block), total))
	rest.size = block.size - total
	block.size = total - headerSize
	rest.status = statusFree
	rest.prev = block
	rest.next = block.next

	block.next = rest
	if rest.next != nil {
		rest.next.prev = rest
	}
}

// merge absorbs second into first. second must be first's immediate
// successor; its header becomes part of first's payload.
func merge(first, second *blockMeta) {
	first.size += headerSize + second.size
	first.next = second.next
	if first.next != nil {
		first.next.prev = first
	}
}

// coalesce merges every run of adjacent free blocks into one. Runs
// before each best-fit search so the search never sees an adjacent
// free pair.
func coalesce(first *blockMeta) {
	if first == nil {
		return
	}
	for first.next != nil {
		if first.status == statusFree && first.next.status == statusFree {
			merge(first, first.next)
		} else {
			first = first.next
		}
	}
}

// findBestBlock scans the whole list for the free block with the
// smallest payload whose total capacity covers total; ties go to the
// earlier address. On a hit the block is split down to total and
// marked allocated. Returns nil on a miss.
func findBestBlock(first *blockMeta, total uintptr) *blockMeta {
	var best *blockMeta

	for b := first; b != nil; b = b.next {
		if b.status == statusFree && b.size+headerSize >= total {
			if best == nil || b.size < best.size {
				best = b
			}
		}
	}
	if best == nil {
		return nil
	}

	split(best, total)
	best.status = statusAlloc
	return best
}

// tail returns the topmost block, whose payload ends at the break.
func tail(first *blockMeta) *blockMeta {
	b := first
	for b.next != nil {
		b = b.next
	}
	return b
}

// tailExtend grows the heap when best-fit found nothing. A free tail is
// extended in place by exactly the payload deficit, reusing its header;
// otherwise a new block is appended after the tail. Either way the
// extension is a break extension, never a mapping.
func (h *Heap) tailExtend(size uintptr) *blockMeta {
	t := tail(h.start)
	if t.status == statusFree {
		h.extendBreak(int(size - t.size))
		t.size = size
		t.status = statusAlloc
		return t
	}
	return h.allocBlock(t, size+headerSize, mmapThreshold)
}

// prealloc performs the first break-region allocation: one break
// extension of initMemAlloc bytes (or the exact total when larger),
// split down to the requested total so the excess becomes a single
// trailing free block.
func (h *Heap) prealloc(total uintptr) *blockMeta {
	reserve := uintptr(initMemAlloc)
	if total > reserve {
		reserve = total
	}
	block := h.allocBlock(nil, reserve, ^uintptr(0))
	split(block, total)
	return block
}

package alloc

// Usage holds the heap's memory accounting, computed on demand by
// walking the list and the mapping registry.
type Usage struct {
	Used     uint64 // payload bytes currently allocated
	RealUsed uint64 // Used plus every header, free headers included
	Free     uint64 // free payload bytes in the break region
}

// Usage returns the current counters for h.
func (h *Heap) Usage() Usage {
	var u Usage
	for b := h.start; b != nil; b = b.next {
		switch b.status {
		case statusAlloc:
			u.Used += uint64(b.size)
			u.RealUsed += uint64(b.size) + uint64(headerSize)
		case statusFree:
			u.Free += uint64(b.size)
			u.RealUsed += uint64(headerSize)
		}
	}
	for _, region := range h.mapped {
		u.Used += uint64(len(region)) - uint64(headerSize)
		u.RealUsed += uint64(len(region))
	}
	return u
}

// Available returns the free payload bytes currently sitting in the
// break region.
func (h *Heap) Available() uint64 {
	return h.Usage().Free
}

// HeapUsage returns the counters of the process-wide heap.
func HeapUsage() Usage { return std.Usage() }

package alloc

import (
	"unsafe"

	"github.com/shivam-909/osmem/internal/mem"
)

type blockStatus uint32

const (
	statusFree blockStatus = iota
	statusAlloc
	statusMapped
)

func (s blockStatus) String() string {
	switch s {
	case statusFree:
		return "FREE"
	case statusAlloc:
		return "ALLOC"
	case statusMapped:
		return "MAPPED"
	}
	return "INVALID"
}

// Block layout & metadata
//
// [HEADER=headerSize bytes][PAYLOAD...]
//
// Break-region blocks sit back to back: a block's payload ends exactly
// where the next block's header starts, and the tail block's payload
// ends at the current break. Mapped blocks live in their own mapping
// and carry nil links.

type blockMeta struct {
	size   uintptr // usable payload bytes following the header
	status blockStatus
	prev   *blockMeta
	next   *blockMeta
}

// headerSize is the in-band header footprint, sizeof(blockMeta) rounded
// up to the 8-byte alignment unit. Fixed once at program start; 32 on a
// 64-bit target.
var headerSize = alignedSize(unsafe.Sizeof(blockMeta{}))

func alignedSize(bytes uintptr) uintptr {
	if bytes%8 == 0 {
		return bytes
	}
	return bytes + 8 - bytes%8
}

// payload returns the address handed to the caller, just past the header.
func (b *blockMeta) payload() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(b), headerSize)
}

// end returns the first address past the payload. For a linked block
// with a successor this is the successor's header.
func (b *blockMeta) end() unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(b), headerSize+b.size)
}

func (b *blockMeta) payloadBytes() []byte {
	return unsafe.Slice((*byte)(b.payload()), b.size)
}

// blockOf recovers the header from a payload pointer.
func blockOf(ptr unsafe.Pointer) *blockMeta {
	return (*blockMeta)(unsafe.Add(ptr, -int(headerSize)))
}

// allocBlock obtains a fresh block of total bytes (header included).
// Requests above threshold get an independent anonymous mapping; the
// rest extend the break. Break blocks are linked after prev; mapped
// blocks are never list members.
func (h *Heap) allocBlock(prev *blockMeta, total, threshold uintptr) *blockMeta {
	var block *blockMeta

	if total > threshold {
		region, err := mem.Map(int(total))
		if err != nil {
			PANIC("%s\n", err)
		}
		block = (*blockMeta)(unsafe.Pointer(&region[0]))
		block.status = statusMapped
		if h.mapped == nil {
			h.mapped = make(map[uintptr][]byte)
		}
		h.mapped[uintptr(unsafe.Pointer(block))] = region
	} else {
		block = (*blockMeta)(h.extendBreak(int(total)))
		block.status = statusAlloc
	}

	block.size = total - headerSize
	block.prev = nil
	block.next = nil
	if prev != nil && block.status != statusMapped {
		block.prev = prev
		prev.next = block
	}
	h.debugf("new %s block %p, payload size %d\n", block.status, block, block.size)
	return block
}

// extendBreak advances the break by delta bytes, lazily reserving the
// break region on first use. Refusal is fatal.
func (h *Heap) extendBreak(delta int) unsafe.Pointer {
	if h.brk == nil {
		brk, err := mem.NewBreak()
		if err != nil {
			PANIC("%s\n", err)
		}
		h.brk = brk
	}
	p, err := h.brk.Extend(delta)
	if err != nil {
		PANIC("%s\n", err)
	}
	return p
}

// unmapBlock releases a mapped block, header and payload together.
func (h *Heap) unmapBlock(block *blockMeta) {
	addr := uintptr(unsafe.Pointer(block))
	region, ok := h.mapped[addr]
	if !ok {
		PANIC("BUG: mapped block %#x has no registered mapping\n", addr)
	}
	delete(h.mapped, addr)
	if err := mem.Unmap(region); err != nil {
		PANIC("%s\n", err)
	}
	h.debugf("unmapped block %#x, %d bytes\n", addr, len(region))
}

//go:build linux

package mem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Map returns a fresh private anonymous read/write mapping of exactly
// length bytes. The OS hands it back zero-filled.
func Map(length int) ([]byte, error) {
	b, err := unix.Mmap(-1, 0, length,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("mem: mmap of %d bytes failed: %w", length, err)
	}
	return b, nil
}

// Unmap releases a mapping previously obtained from Map. It must be
// passed the same slice Map returned, not a derived one.
func Unmap(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return fmt.Errorf("mem: munmap of %d bytes failed: %w", len(b), err)
	}
	return nil
}

// Break is a program-break region: one large reserved anonymous mapping
// with a moving break pointer inside it. Extend and Set give the classic
// sbrk/brk contract, but break arithmetic can never escape the
// reservation, so a bad size computation is refused here with an error
// instead of corrupting a neighbour mapping.
type Break struct {
	region []byte
	brk    uintptr // offset of the current break from the region base
}

// BreakCapacity is the virtual span reserved for a break region. The
// reservation is MAP_NORESERVE; pages commit only when touched.
const BreakCapacity = 1 << 30

// NewBreak reserves a break region. The break starts at the region base.
func NewBreak() (*Break, error) {
	region, err := unix.Mmap(-1, 0, BreakCapacity,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANON|unix.MAP_NORESERVE)
	if err != nil {
		return nil, fmt.Errorf("mem: reserving break region failed: %w", err)
	}
	return &Break{region: region}, nil
}

// Base returns the start of the break region.
func (b *Break) Base() unsafe.Pointer {
	return unsafe.Pointer(&b.region[0])
}

// End returns the current break.
func (b *Break) End() unsafe.Pointer {
	return unsafe.Add(b.Base(), b.brk)
}

// Extend advances the break by delta bytes and returns the old break,
// which is the start of the newly usable region. A negative delta
// rewinds the break.
func (b *Break) Extend(delta int) (unsafe.Pointer, error) {
	old := b.brk
	next := int64(old) + int64(delta)
	if next < 0 || next > int64(len(b.region)) {
		return nil, fmt.Errorf("mem: break %d%+d escapes the reservation", old, delta)
	}
	b.brk = uintptr(next)
	return unsafe.Add(b.Base(), old), nil
}

// Set moves the break to an absolute address inside the reservation.
func (b *Break) Set(addr unsafe.Pointer) error {
	off := uintptr(addr) - uintptr(b.Base())
	if uintptr(addr) < uintptr(b.Base()) || off > uintptr(len(b.region)) {
		return fmt.Errorf("mem: break address %#x outside the reservation", uintptr(addr))
	}
	b.brk = off
	return nil
}

// Contains reports whether p lies in the used part of the break region.
func (b *Break) Contains(p unsafe.Pointer) bool {
	return uintptr(p) >= uintptr(b.Base()) && uintptr(p) < uintptr(b.End())
}

// Release unmaps the whole reservation. The region must no longer be in
// use; only tests tear a break region down.
func (b *Break) Release() error {
	if err := unix.Munmap(b.region); err != nil {
		return fmt.Errorf("mem: releasing break region failed: %w", err)
	}
	b.region = nil
	b.brk = 0
	return nil
}

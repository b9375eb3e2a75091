// Package mem provides the raw virtual-memory primitives the allocator
// is built on: anonymous mappings and a break region with sbrk-like
// semantics. Everything here is Linux-only; the allocator layer decides
// policy, this package only moves pages around.
package mem

import "os"

// Pagesize returns the OS page size.
func Pagesize() int {
	return os.Getpagesize()
}

package alloc

import "unsafe"

// Typed sugar over the raw byte operations, for callers that keep Go
// values in manually managed memory. T must not contain Go pointers
// into the garbage-collected heap: the collector does not scan
// allocator-owned memory.

// Allocate returns a pointer to a zeroed T in manually managed memory.
func Allocate[T any]() *T {
	var zero T
	return (*T)(Calloc(1, unsafe.Sizeof(zero)))
}

// AllocateSlice returns a slice of length uninitialized Ts backed by
// manually managed memory.
func AllocateSlice[T any](length int) []T {
	var zero T
	p := Malloc(uintptr(length) * unsafe.Sizeof(zero))
	if p == nil {
		return nil
	}
	return unsafe.Slice((*T)(p), length)
}

// GrowSlice resizes a slice previously returned by AllocateSlice,
// preserving its contents up to the smaller length.
func GrowSlice[T any](s []T, length int) []T {
	if len(s) == 0 {
		return AllocateSlice[T](length)
	}
	var zero T
	p := Realloc(unsafe.Pointer(&s[0]), uintptr(length)*unsafe.Sizeof(zero))
	if p == nil {
		return nil
	}
	return unsafe.Slice((*T)(p), length)
}

// FreeSlice releases a slice returned by AllocateSlice or GrowSlice.
func FreeSlice[T any](s []T) {
	if len(s) == 0 {
		return
	}
	Free(unsafe.Pointer(&s[0]))
}

// Sizeof returns the byte footprint of x.
func Sizeof[T any](x T) int {
	return int(unsafe.Sizeof(x))
}

package main

import (
	"fmt"

	"github.com/shivam-909/osmem/alloc"
)

const N = 10000000

func main() {
	slice := alloc.AllocateSlice[int](N)
	for i := range N {
		slice[i] = i
	}

	slice = alloc.GrowSlice(slice, 2*N)
	fmt.Printf("slice[%d] = %d\n", N-1, slice[N-1])

	u := alloc.HeapUsage()
	fmt.Printf("heap: used=%d used+overhead=%d free=%d\n", u.Used, u.RealUsed, u.Free)

	alloc.FreeSlice(slice)
}

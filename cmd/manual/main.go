package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/pkg/profile"

	"github.com/shivam-909/osmem/alloc"
	"github.com/shivam-909/osmem/internal/orderbook"
	manualbook "github.com/shivam-909/osmem/internal/orderbook/manual"
)

func main() {
	n := flag.Int("n", 2500000, "operations to run")
	prof := flag.Bool("profile", false, "write a CPU profile to the current directory")
	flag.Parse()

	if *prof {
		defer profile.Start(profile.ProfilePath(".")).Stop()
	}

	ob := manualbook.New()
	d := orderbook.NewDriver()

	start := time.Now()
	for i := 0; i < *n; i++ {
		d.Act(ob)
	}
	elapsed := time.Since(start)

	fmt.Printf("Manual Allocator || %d OPS || TOTAL: %v || AVERAGE: %v\n",
		*n, elapsed, elapsed/time.Duration(*n))
	u := alloc.HeapUsage()
	fmt.Printf("heap: used=%d used+overhead=%d free=%d\n", u.Used, u.RealUsed, u.Free)
}

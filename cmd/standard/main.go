package main

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/shivam-909/osmem/internal/orderbook"
	standardbook "github.com/shivam-909/osmem/internal/orderbook/standard"
)

func main() {
	ns := os.Args[1]
	N, err := strconv.Atoi(ns)
	if err != nil {
		panic(err)
	}

	// the Go allocator is safe to hit from many goroutines; shard the
	// workload across one book per core
	shards := runtime.GOMAXPROCS(0)
	start := time.Now()

	var g errgroup.Group
	for s := 0; s < shards; s++ {
		g.Go(func() error {
			ob := standardbook.New()
			d := orderbook.NewDriver()
			for i := 0; i < N/shards; i++ {
				d.Act(ob)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		panic(err)
	}

	elapsed := time.Since(start)
	fmt.Printf("Standard Allocator || %d OPS || %d SHARDS || TOTAL: %v || AVERAGE: %v\n",
		N, shards, elapsed, elapsed/time.Duration(N))
}

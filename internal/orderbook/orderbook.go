// Package orderbook is a demonstration workload: a binary-search-tree
// order book implemented twice, once on the manual allocator and once
// on the Go heap, driven by a randomized insert/fill/remove mix.
package orderbook

import "math/rand/v2"

type OrderSide int

const (
	OrderSideBuy  OrderSide = 1
	OrderSideSell OrderSide = 2
	MaxPrice                = 10000
	MinPrice                = 9000
)

type Order struct {
	Id    int
	Side  OrderSide
	Price int
	Qty   int
}

// Fill is one partial execution recorded against a live order.
type Fill struct {
	Qty   int
	Price int
}

type OrderBook interface {
	Insert(order Order) error
	Remove(id int) error
	Fill(id int, fill Fill) error
}

// Driver produces a random operation stream against one book. Each
// book gets its own driver; drivers share no state, so independent
// books can run on independent goroutines.
type Driver struct {
	nextId      int
	nextRemoval int
}

func NewDriver() *Driver {
	return &Driver{nextId: 1, nextRemoval: 1}
}

func randomSide() OrderSide {
	if rand.Int()%2 == 0 {
		return OrderSideBuy
	}
	return OrderSideSell
}

func (d *Driver) generateOrder() Order {
	o := Order{
		Id:    d.nextId,
		Side:  randomSide(),
		Price: rand.IntN(MaxPrice-MinPrice) + MinPrice,
		Qty:   rand.IntN(10) + 1,
	}
	d.nextId++
	return o
}

// Act performs one random operation: mostly inserts, some fills
// against a random id issued so far (which may already have left the
// book), occasional removal of the oldest order.
func (d *Driver) Act(ob OrderBook) {
	switch r := rand.IntN(100); {
	case r < 50 || d.nextId == 1:
		_ = ob.Insert(d.generateOrder())
	case r < 80:
		id := rand.IntN(d.nextId-1) + 1
		fill := Fill{
			Qty:   rand.IntN(5) + 1,
			Price: rand.IntN(MaxPrice-MinPrice) + MinPrice,
		}
		_ = ob.Fill(id, fill)
	default:
		if d.nextRemoval < d.nextId {
			_ = ob.Remove(d.nextRemoval)
			d.nextRemoval++
		}
	}
}

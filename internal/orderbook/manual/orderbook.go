// Package manualbook implements orderbook.OrderBook on the manual
// allocator: tree nodes and fill ledgers live in allocator-owned
// memory, outside the garbage-collected heap.
package manualbook

import (
	"errors"
	"unsafe"

	"github.com/shivam-909/osmem/alloc"
	"github.com/shivam-909/osmem/internal/orderbook"
)

// node lives in allocator memory. Its links only ever point at other
// manually allocated nodes and its fill ledger at a manually allocated
// array, so the collector never needs to see any of it.
type node struct {
	order  orderbook.Order
	fills  []orderbook.Fill // backing array in allocator memory
	nfills int
	left   *node
	right  *node
}

type manualbook struct {
	tree *node
}

// New creates an order book backed by the manual allocator.
func New() orderbook.OrderBook {
	return &manualbook{}
}

func newNode(o orderbook.Order) *node {
	n := alloc.Allocate[node]()
	if n == nil {
		return nil
	}
	n.order = o
	return n
}

func freeNode(n *node) {
	alloc.FreeSlice(n.fills)
	alloc.Free(unsafe.Pointer(n))
}

// Insert adds a new order into the BST keyed by Order.Id.
// Duplicates (same ID) go to the right.
func (b *manualbook) Insert(o orderbook.Order) error {
	nn := newNode(o)
	if nn == nil {
		return errors.New("allocation failed")
	}

	if b.tree == nil {
		b.tree = nn
		return nil
	}

	curr := b.tree
	for {
		if o.Id < curr.order.Id {
			if curr.left == nil {
				curr.left = nn
				return nil
			}
			curr = curr.left
		} else {
			if curr.right == nil {
				curr.right = nn
				return nil
			}
			curr = curr.right
		}
	}
}

// Fill records a partial execution against the order with the given
// id, growing the node's ledger with GrowSlice (which may move it) when
// it runs out of room. An
// order filled down to zero quantity leaves the book.
func (b *manualbook) Fill(id int, f orderbook.Fill) error {
	_, n, _ := b.findNodeById(id)
	if n == nil {
		return errors.New("order not found")
	}

	if n.nfills == len(n.fills) {
		want := 2 * len(n.fills)
		if want == 0 {
			want = 4
		}
		grown := alloc.GrowSlice(n.fills, want)
		if grown == nil {
			return errors.New("allocation failed")
		}
		n.fills = grown
	}
	n.fills[n.nfills] = f
	n.nfills++

	n.order.Qty -= f.Qty
	if n.order.Qty <= 0 {
		return b.Remove(id)
	}
	return nil
}

// Remove locates a node by its Order.Id, unlinks it from the BST and
// returns its memory to the allocator. A node with two children is
// replaced by its in-order successor.
func (b *manualbook) Remove(id int) error {
	parent, n, isLeft := b.findNodeById(id)
	if n == nil {
		return errors.New("order not found")
	}

	var replacement *node

	switch {
	case n.left == nil && n.right == nil:
		replacement = nil

	case n.left == nil:
		replacement = n.right

	case n.right == nil:
		replacement = n.left

	default:
		succParent, successor := b.findSuccessor(n.right)

		if succParent != nil && succParent != n {
			succParent.left = successor.right
			successor.right = n.right
		}
		successor.left = n.left
		replacement = successor
	}

	if parent == nil {
		b.tree = replacement
	} else if isLeft {
		parent.left = replacement
	} else {
		parent.right = replacement
	}

	freeNode(n)
	return nil
}

// findNodeById walks the BST for the node whose Order.Id == id.
// Returns (parent, node, isLeftChild).
func (b *manualbook) findNodeById(id int) (*node, *node, bool) {
	var (
		parent  *node
		current = b.tree
		isLeft  bool
	)

	for current != nil {
		if id == current.order.Id {
			return parent, current, isLeft
		}
		parent = current
		if id < current.order.Id {
			current = current.left
			isLeft = true
		} else {
			current = current.right
			isLeft = false
		}
	}
	return nil, nil, false
}

// findSuccessor returns (parent, successor) for the leftmost node
// under root.
func (b *manualbook) findSuccessor(root *node) (*node, *node) {
	if root == nil {
		return nil, nil
	}
	var (
		parent *node
		curr   = root
	)
	for curr.left != nil {
		parent = curr
		curr = curr.left
	}
	return parent, curr
}

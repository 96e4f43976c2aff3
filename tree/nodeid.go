package tree

import (
	"fmt"
	"math"
	"math/bits"
)

// NodeId is a 128-bit unsigned integer identifying one node.
type NodeId struct {
	Hi, Lo uint64
}

// IdOffset is added to a NodeId to produce another NodeId within the same
// chunk.
type IdOffset uint32

// ChunkId is the first NodeId owned by a chunk. A chunk owns the contiguous
// half-open range of ids starting at its ChunkId; no two chunks in a forest
// may own overlapping ranges.
type ChunkId NodeId

func NewNodeId(hi, lo uint64) NodeId { return NodeId{Hi: hi, Lo: lo} }

// Add returns n + off.
func (n NodeId) Add(off IdOffset) NodeId {
	return n.Advance(uint64(off))
}

// Sub returns n - o. The delta must fit in an IdOffset: callers only subtract
// ids that lie within a single chunk's range.
func (n NodeId) Sub(o NodeId) IdOffset {
	d := n.Delta(o)
	if d > math.MaxUint32 {
		panic("tree: id delta exceeds offset range")
	}
	return IdOffset(d)
}

// Advance returns n + delta for deltas wider than an IdOffset, such as
// stride × count range bounds.
func (n NodeId) Advance(delta uint64) NodeId {
	lo, carry := bits.Add64(n.Lo, delta, 0)
	return NodeId{Hi: n.Hi + carry, Lo: lo}
}

// Delta returns n - o as a uint64. Requires o ≤ n ≤ o + 2^64 - 1.
func (n NodeId) Delta(o NodeId) uint64 {
	lo, borrow := bits.Sub64(n.Lo, o.Lo, 0)
	if n.Hi-o.Hi != borrow {
		panic("tree: id delta exceeds 64 bits")
	}
	return lo
}

// Less reports whether n sorts before o.
func (n NodeId) Less(o NodeId) bool {
	if n.Hi != o.Hi {
		return n.Hi < o.Hi
	}
	return n.Lo < o.Lo
}

// Cmp returns -1, 0, or 1 comparing n to o.
func (n NodeId) Cmp(o NodeId) int {
	switch {
	case n.Less(o):
		return -1
	case o.Less(n):
		return 1
	}
	return 0
}

func (n NodeId) String() string { return fmt.Sprintf("%016x%016x", n.Hi, n.Lo) }

func (c ChunkId) Less(o ChunkId) bool { return NodeId(c).Less(NodeId(o)) }

func (c ChunkId) Cmp(o ChunkId) int { return NodeId(c).Cmp(NodeId(o)) }

func (c ChunkId) String() string { return NodeId(c).String() }

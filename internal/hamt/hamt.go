// Package hamt implements a persistent hash map keyed by chunk id, used for
// the forest's parent index. Updates path-copy a fixed-depth trie, so cloning
// is free and lookups cost a handful of popcount-indexed array hops.
//
// Nodes use the popcount-compression scheme: a bitmap marks which of the 64
// slots at a level are occupied, and the occupied slots are packed densely
// into a slice indexed by the rank of the slot's bit.
package hamt

import (
	"encoding/binary"
	"math/bits"

	"github.com/cespare/xxhash/v2"
	"github.com/seqtree/forest/tree"
)

const (
	branchBits = 6
	branchMask = 1<<branchBits - 1
	// Past this shift the hash is exhausted and entries live in an
	// unordered collision bucket.
	maxShift = 60
)

// Map is an immutable hash map. The zero value of *Map is not valid; use New.
type Map[V any] struct {
	root *node[V]
	size int
}

type entry[V any] struct {
	key tree.ChunkId
	val V
}

// node holds leaves and children in two popcount-compressed arrays. A bucket
// node (at maxShift, hash exhausted) keeps all entries in leaves and scans
// them linearly.
type node[V any] struct {
	leafMap  uint64
	nodeMap  uint64
	leaves   []entry[V]
	children []*node[V]
}

func New[V any]() *Map[V] {
	return &Map[V]{}
}

func hashOf(k tree.ChunkId) uint64 {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], k.Hi)
	binary.BigEndian.PutUint64(b[8:], k.Lo)
	return xxhash.Sum64(b[:])
}

func rank(bitmap uint64, bit uint64) int {
	return bits.OnesCount64(bitmap & (bit - 1))
}

func (m *Map[V]) Len() int { return m.size }

// Get returns the value stored under k.
func (m *Map[V]) Get(k tree.ChunkId) (V, bool) {
	var zero V
	n := m.root
	if n == nil {
		return zero, false
	}
	hash := hashOf(k)
	for shift := uint(0); ; shift += branchBits {
		if shift > maxShift {
			for _, e := range n.leaves {
				if e.key == k {
					return e.val, true
				}
			}
			return zero, false
		}
		bit := uint64(1) << ((hash >> shift) & branchMask)
		if n.leafMap&bit != 0 {
			e := n.leaves[rank(n.leafMap, bit)]
			if e.key == k {
				return e.val, true
			}
			return zero, false
		}
		if n.nodeMap&bit == 0 {
			return zero, false
		}
		n = n.children[rank(n.nodeMap, bit)]
	}
}

// Insert returns a map with k bound to v, replacing any existing binding.
func (m *Map[V]) Insert(k tree.ChunkId, v V) *Map[V] {
	root := m.root
	if root == nil {
		root = &node[V]{}
	}
	root, added := insertNode(root, hashOf(k), 0, entry[V]{key: k, val: v})
	size := m.size
	if added {
		size++
	}
	return &Map[V]{root: root, size: size}
}

func insertNode[V any](n *node[V], hash uint64, shift uint, e entry[V]) (*node[V], bool) {
	if shift > maxShift {
		out := &node[V]{leaves: make([]entry[V], len(n.leaves), len(n.leaves)+1)}
		copy(out.leaves, n.leaves)
		for i, old := range out.leaves {
			if old.key == e.key {
				out.leaves[i] = e
				return out, false
			}
		}
		out.leaves = append(out.leaves, e)
		return out, true
	}

	bit := uint64(1) << ((hash >> shift) & branchMask)
	switch {
	case n.leafMap&bit != 0:
		i := rank(n.leafMap, bit)
		old := n.leaves[i]
		if old.key == e.key {
			out := n.shallow()
			out.leaves[i] = e
			return out, false
		}
		// Two distinct keys in one slot: push both down a level.
		child := merge(old, hashOf(old.key), e, hash, shift+branchBits)
		out := &node[V]{
			leafMap:  n.leafMap &^ bit,
			nodeMap:  n.nodeMap | bit,
			leaves:   removeEntry(n.leaves, i),
			children: insertChild(n.children, rank(n.nodeMap, bit), child),
		}
		return out, true
	case n.nodeMap&bit != 0:
		i := rank(n.nodeMap, bit)
		child, added := insertNode(n.children[i], hash, shift+branchBits, e)
		out := n.shallow()
		out.children[i] = child
		return out, added
	default:
		out := &node[V]{
			leafMap:  n.leafMap | bit,
			nodeMap:  n.nodeMap,
			leaves:   insertEntry(n.leaves, rank(n.leafMap|bit, bit), e),
			children: n.children,
		}
		return out, true
	}
}

func merge[V any](a entry[V], hashA uint64, b entry[V], hashB uint64, shift uint) *node[V] {
	if shift > maxShift {
		return &node[V]{leaves: []entry[V]{a, b}}
	}
	bitA := uint64(1) << ((hashA >> shift) & branchMask)
	bitB := uint64(1) << ((hashB >> shift) & branchMask)
	if bitA == bitB {
		return &node[V]{
			nodeMap:  bitA,
			children: []*node[V]{merge(a, hashA, b, hashB, shift+branchBits)},
		}
	}
	n := &node[V]{leafMap: bitA | bitB}
	if bitA < bitB {
		n.leaves = []entry[V]{a, b}
	} else {
		n.leaves = []entry[V]{b, a}
	}
	return n
}

// Delete returns a map without k. Deleting an absent key returns the
// receiver.
func (m *Map[V]) Delete(k tree.ChunkId) *Map[V] {
	if m.root == nil {
		return m
	}
	root, removed := deleteNode(m.root, hashOf(k), 0, k)
	if !removed {
		return m
	}
	return &Map[V]{root: root, size: m.size - 1}
}

func deleteNode[V any](n *node[V], hash uint64, shift uint, k tree.ChunkId) (*node[V], bool) {
	if shift > maxShift {
		for i, e := range n.leaves {
			if e.key == k {
				return &node[V]{leaves: removeEntry(n.leaves, i)}, true
			}
		}
		return n, false
	}

	bit := uint64(1) << ((hash >> shift) & branchMask)
	switch {
	case n.leafMap&bit != 0:
		i := rank(n.leafMap, bit)
		if n.leaves[i].key != k {
			return n, false
		}
		return &node[V]{
			leafMap:  n.leafMap &^ bit,
			nodeMap:  n.nodeMap,
			leaves:   removeEntry(n.leaves, i),
			children: n.children,
		}, true
	case n.nodeMap&bit != 0:
		i := rank(n.nodeMap, bit)
		child, removed := deleteNode(n.children[i], hash, shift+branchBits, k)
		if !removed {
			return n, false
		}
		out := n.shallow()
		out.children[i] = child
		return out, true
	default:
		return n, false
	}
}

// Range calls fn on every entry until fn returns false. Iteration order is
// unspecified.
func (m *Map[V]) Range(fn func(tree.ChunkId, V) bool) {
	if m.root != nil {
		rangeNode(m.root, fn)
	}
}

func rangeNode[V any](n *node[V], fn func(tree.ChunkId, V) bool) bool {
	for _, e := range n.leaves {
		if !fn(e.key, e.val) {
			return false
		}
	}
	for _, c := range n.children {
		if !rangeNode(c, fn) {
			return false
		}
	}
	return true
}

func (n *node[V]) shallow() *node[V] {
	out := &node[V]{leafMap: n.leafMap, nodeMap: n.nodeMap}
	if n.leaves != nil {
		out.leaves = make([]entry[V], len(n.leaves))
		copy(out.leaves, n.leaves)
	}
	if n.children != nil {
		out.children = make([]*node[V], len(n.children))
		copy(out.children, n.children)
	}
	return out
}

func insertEntry[V any](s []entry[V], i int, e entry[V]) []entry[V] {
	out := make([]entry[V], len(s)+1)
	copy(out, s[:i])
	out[i] = e
	copy(out[i+1:], s[i:])
	return out
}

func removeEntry[V any](s []entry[V], i int) []entry[V] {
	out := make([]entry[V], len(s)-1)
	copy(out, s[:i])
	copy(out[i:], s[i+1:])
	return out
}

func insertChild[V any](s []*node[V], i int, c *node[V]) []*node[V] {
	out := make([]*node[V], len(s)+1)
	copy(out, s[:i])
	out[i] = c
	copy(out[i+1:], s[i:])
	return out
}

// Package ordmap implements a persistent ordered map from chunk id to an
// arbitrary value type. All operations return a new map sharing unchanged
// structure with the old one; existing maps are never modified.
//
// The map is a treap whose node priorities are derived from the keys by
// hashing, so the tree shape is a function of the key set alone. Two maps
// holding mostly the same entries therefore share most of their subtrees by
// pointer, which is what lets Diff run in time proportional to the number of
// differing entries rather than the map size.
package ordmap

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/seqtree/forest/tree"
)

// Map is an immutable ordered map. The zero value of *Map is not valid; use
// New.
type Map[V any] struct {
	root *node[V]
	size int
}

type node[V any] struct {
	key   tree.ChunkId
	val   V
	prio  uint64
	left  *node[V]
	right *node[V]
}

func New[V any]() *Map[V] {
	return &Map[V]{}
}

func prioOf(k tree.ChunkId) uint64 {
	var b [16]byte
	binary.BigEndian.PutUint64(b[:8], k.Hi)
	binary.BigEndian.PutUint64(b[8:], k.Lo)
	return xxhash.Sum64(b[:])
}

// above reports whether a node with the given priority and key sits above a
// node with the other priority and key in the canonical shape.
func above(prio uint64, key tree.ChunkId, otherPrio uint64, otherKey tree.ChunkId) bool {
	if prio != otherPrio {
		return prio > otherPrio
	}
	return key.Less(otherKey)
}

func (m *Map[V]) Len() int { return m.size }

// Get returns the value stored under k.
func (m *Map[V]) Get(k tree.ChunkId) (V, bool) {
	n := m.root
	for n != nil {
		switch {
		case k == n.key:
			return n.val, true
		case k.Less(n.key):
			n = n.left
		default:
			n = n.right
		}
	}
	var zero V
	return zero, false
}

// Floor returns the entry with the greatest key ≤ k.
func (m *Map[V]) Floor(k tree.ChunkId) (tree.ChunkId, V, bool) {
	var best *node[V]
	n := m.root
	for n != nil {
		if n.key == k {
			best = n
			break
		}
		if n.key.Less(k) {
			best = n
			n = n.right
		} else {
			n = n.left
		}
	}
	if best == nil {
		var zero V
		return tree.ChunkId{}, zero, false
	}
	return best.key, best.val, true
}

// Insert returns a map with k bound to v, replacing any existing binding.
func (m *Map[V]) Insert(k tree.ChunkId, v V) *Map[V] {
	root, added := insertNode(m.root, k, v, prioOf(k))
	size := m.size
	if added {
		size++
	}
	return &Map[V]{root: root, size: size}
}

func insertNode[V any](n *node[V], k tree.ChunkId, v V, prio uint64) (*node[V], bool) {
	if n == nil {
		return &node[V]{key: k, val: v, prio: prio}, true
	}
	if k == n.key {
		return &node[V]{key: k, val: v, prio: n.prio, left: n.left, right: n.right}, false
	}
	if above(prio, k, n.prio, n.key) {
		// The new key outranks the current root, so it cannot already be
		// present below it.
		l, r := split(n, k)
		return &node[V]{key: k, val: v, prio: prio, left: l, right: r}, true
	}
	if k.Less(n.key) {
		l, added := insertNode(n.left, k, v, prio)
		return &node[V]{key: n.key, val: n.val, prio: n.prio, left: l, right: n.right}, added
	}
	r, added := insertNode(n.right, k, v, prio)
	return &node[V]{key: n.key, val: n.val, prio: n.prio, left: n.left, right: r}, added
}

// split partitions n into subtrees holding keys < k and keys > k. k must not
// be present in n.
func split[V any](n *node[V], k tree.ChunkId) (*node[V], *node[V]) {
	if n == nil {
		return nil, nil
	}
	if n.key.Less(k) {
		l, r := split(n.right, k)
		return &node[V]{key: n.key, val: n.val, prio: n.prio, left: n.left, right: l}, r
	}
	l, r := split(n.left, k)
	return l, &node[V]{key: n.key, val: n.val, prio: n.prio, left: r, right: n.right}
}

// Delete returns a map without k. Deleting an absent key returns the
// receiver.
func (m *Map[V]) Delete(k tree.ChunkId) *Map[V] {
	root, removed := deleteNode(m.root, k)
	if !removed {
		return m
	}
	return &Map[V]{root: root, size: m.size - 1}
}

func deleteNode[V any](n *node[V], k tree.ChunkId) (*node[V], bool) {
	if n == nil {
		return nil, false
	}
	if k == n.key {
		return join(n.left, n.right), true
	}
	if k.Less(n.key) {
		l, removed := deleteNode(n.left, k)
		if !removed {
			return n, false
		}
		return &node[V]{key: n.key, val: n.val, prio: n.prio, left: l, right: n.right}, true
	}
	r, removed := deleteNode(n.right, k)
	if !removed {
		return n, false
	}
	return &node[V]{key: n.key, val: n.val, prio: n.prio, left: n.left, right: r}, true
}

// join merges two subtrees where every key in l is less than every key in r.
func join[V any](l, r *node[V]) *node[V] {
	if l == nil {
		return r
	}
	if r == nil {
		return l
	}
	if above(l.prio, l.key, r.prio, r.key) {
		return &node[V]{key: l.key, val: l.val, prio: l.prio, left: l.left, right: join(l.right, r)}
	}
	return &node[V]{key: r.key, val: r.val, prio: r.prio, left: join(l, r.left), right: r.right}
}

// Range calls fn on every entry in key order until fn returns false.
func (m *Map[V]) Range(fn func(tree.ChunkId, V) bool) {
	rangeNodes(m.root, fn)
}

func rangeNodes[V any](n *node[V], fn func(tree.ChunkId, V) bool) bool {
	if n == nil {
		return true
	}
	if !rangeNodes(n.left, fn) {
		return false
	}
	if !fn(n.key, n.val) {
		return false
	}
	return rangeNodes(n.right, fn)
}

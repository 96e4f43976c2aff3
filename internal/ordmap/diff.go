package ordmap

import "github.com/seqtree/forest/tree"

// EditKind discriminates the entries produced by Diff.
type EditKind int

const (
	EditAdd EditKind = iota
	EditRemove
	EditUpdate
)

// Edit is one differing entry between two maps. Old is set for EditRemove and
// EditUpdate, New for EditAdd and EditUpdate.
type Edit[V any] struct {
	Kind EditKind
	Key  tree.ChunkId
	Old  V
	New  V
}

// Diff visits every entry that differs between old and new, in key order.
// Subtrees shared by pointer between the two maps are skipped without being
// visited, so the cost is proportional to the number of differing entries
// (times log of the map size), not the map size. eq decides whether two
// values bound to the same key count as equal.
func Diff[V any](old, new *Map[V], eq func(V, V) bool, visit func(Edit[V])) {
	diffNodes(old.root, new.root, eq, visit)
}

func diffNodes[V any](a, b *node[V], eq func(V, V) bool, visit func(Edit[V])) {
	if a == b {
		return
	}
	if a == nil {
		emitAll(b, EditAdd, visit)
		return
	}
	if b == nil {
		emitAll(a, EditRemove, visit)
		return
	}
	if a.key == b.key {
		diffNodes(a.left, b.left, eq, visit)
		if !eq(a.val, b.val) {
			visit(Edit[V]{Kind: EditUpdate, Key: a.key, Old: a.val, New: b.val})
		}
		diffNodes(a.right, b.right, eq, visit)
		return
	}
	if above(a.prio, a.key, b.prio, b.key) {
		// a's root outranks b's, so a.key cannot occur anywhere in b.
		bl, br := split(b, a.key)
		diffNodes(a.left, bl, eq, visit)
		visit(Edit[V]{Kind: EditRemove, Key: a.key, Old: a.val})
		diffNodes(a.right, br, eq, visit)
		return
	}
	al, ar := split(a, b.key)
	diffNodes(al, b.left, eq, visit)
	visit(Edit[V]{Kind: EditAdd, Key: b.key, New: b.val})
	diffNodes(ar, b.right, eq, visit)
}

func emitAll[V any](n *node[V], kind EditKind, visit func(Edit[V])) {
	if n == nil {
		return
	}
	emitAll(n.left, kind, visit)
	e := Edit[V]{Kind: kind, Key: n.key}
	if kind == EditAdd {
		e.New = n.val
	} else {
		e.Old = n.val
	}
	visit(e)
	emitAll(n.right, kind, visit)
}

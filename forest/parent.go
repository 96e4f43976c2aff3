package forest

import (
	"github.com/seqtree/forest/internal/hamt"
	"github.com/seqtree/forest/internal/ordmap"
	"github.com/seqtree/forest/tree"
)

// chunkEq compares chunks by arm pointer. Chunks stored in a forest are
// immutable, so pointer identity is the right equality for diffing: an
// Entry-based edit installs a new chunk value.
func chunkEq(a, b Chunk) bool {
	return a.ind == b.ind && a.uni == b.uni
}

// ParentData returns the chunk-level parent index, reconciling it first if
// the forest changed since the last call. Reconciliation walks the diff
// between the current chunk map and the snapshot taken at the previous
// reconciliation, so its cost is proportional to the number of changed
// chunks, not the forest size.
func (f *Forest) ParentData() *hamt.Map[ParentInfo] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.old != f.chunks {
		parents := f.parents
		ordmap.Diff(f.old, f.chunks, chunkEq, func(e ordmap.Edit[Chunk]) {
			switch e.Kind {
			case ordmap.EditAdd:
				parents = indexChildren(parents, e.Key, e.New)
			case ordmap.EditRemove:
				parents = dropChildren(parents, e.Old)
			case ordmap.EditUpdate:
				// Treat as remove then insert. A finer per-chunk diff
				// would only touch the changed traits.
				parents = dropChildren(parents, e.Old)
				parents = indexChildren(parents, e.Key, e.New)
			}
		})
		f.parents = parents
		f.old = f.chunks
	}
	return f.parents
}

func indexChildren(parents *hamt.Map[ParentInfo], id tree.ChunkId, c Chunk) *hamt.Map[ParentInfo] {
	for _, label := range c.Labels() {
		for _, child := range c.Children(label) {
			parents = parents.Insert(child, ParentInfo{Node: id, Label: label})
		}
	}
	return parents
}

func dropChildren(parents *hamt.Map[ParentInfo], c Chunk) *hamt.Map[ParentInfo] {
	for _, label := range c.Labels() {
		for _, child := range c.Children(label) {
			parents = parents.Delete(child)
		}
	}
	return parents
}

// NodeParent is a node's parent, resolved to a node view.
type NodeParent struct {
	Node  Node
	Label tree.Label
}

// ParentFromChunkId returns the parent of the chunk stored under id,
// resolved to a node view. It panics if the index names a chunk that is no
// longer present; that means the forest was mutated in violation of the
// chunk-reference contract.
func (f *Forest) ParentFromChunkId(id tree.ChunkId) (NodeParent, bool) {
	info, ok := f.ParentData().Get(id)
	if !ok {
		return NodeParent{}, false
	}
	n, ok := f.FindNode(tree.NodeId(info.Node))
	if !ok {
		panic("forest: parent index references missing chunk")
	}
	return NodeParent{Node: n, Label: info.Label}, true
}

// Parent returns the parent of a node view.
//
// For a node inside a uniform chunk the schema table answers directly and
// the parent view is synthesized from the same chunk, without touching the
// parent index. Only chunk roots (and indirect nodes) consult the index.
func (f *Forest) Parent(n Node) (NodeParent, bool) {
	switch n.kind {
	case nodeIndirect:
		return f.ParentFromChunkId(tree.ChunkId(n.ind.ID()))
	case nodeUniform:
		id := n.uni.ID()
		cid, c, ok := f.FindNodesFromNode(id)
		if !ok {
			panic("forest: uniform node outside any chunk")
		}
		uc, ok := c.Uniform()
		if !ok {
			panic("forest: id range owner is not a uniform chunk")
		}
		first := tree.NodeId(cid)
		ref, ok := uc.Schema.Lookup(first, id)
		if !ok {
			panic("forest: uniform node not in owner's schema")
		}
		if !ref.Parent.Present {
			return f.ParentFromChunkId(cid)
		}
		parent, ok := uc.Get(first, first.Add(ref.Parent.IdOffset))
		if !ok {
			panic("forest: schema parent offset unresolvable")
		}
		return NodeParent{Node: uniformNode(parent), Label: ref.Parent.Label}, true
	}
	return NodeParent{}, false
}

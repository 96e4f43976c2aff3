// Package forest implements a persistent collection of trees. Trees are
// stored as a map from chunk id to chunk, where a chunk owns a contiguous
// range of node ids. Cloning a forest is O(1); clones share all unchanged
// structure.
package forest

import (
	"github.com/seqtree/forest/tree"
	"github.com/seqtree/forest/tree/indirect"
	"github.com/seqtree/forest/tree/uniform"
)

// Chunk is the closed union of chunk kinds a forest can store: an indirect
// chunk (one node, children by chunk id) or a uniform chunk (a dense repeated
// subtree). Exactly one arm is set.
type Chunk struct {
	ind *indirect.Chunk
	uni *uniform.Chunk
}

func IndirectChunk(c *indirect.Chunk) Chunk {
	if c == nil {
		panic("forest: nil indirect chunk")
	}
	return Chunk{ind: c}
}

func UniformChunk(c *uniform.Chunk) Chunk {
	if c == nil {
		panic("forest: nil uniform chunk")
	}
	return Chunk{uni: c}
}

func (c Chunk) Indirect() (*indirect.Chunk, bool) { return c.ind, c.ind != nil }

func (c Chunk) Uniform() (*uniform.Chunk, bool) { return c.uni, c.uni != nil }

// Span returns the number of ids the chunk owns: 1 for an indirect chunk,
// stride × count for a uniform chunk.
func (c Chunk) Span() uint64 {
	if c.uni != nil {
		return c.uni.Span()
	}
	return 1
}

// Get returns the node owned by the chunk with the given id, where firstId is
// the chunk's first id.
func (c Chunk) Get(firstId, id tree.NodeId) (Node, bool) {
	switch {
	case c.ind != nil:
		n, ok := c.ind.Get(firstId, id)
		if !ok {
			return Node{}, false
		}
		return indirectNode(n), true
	case c.uni != nil:
		n, ok := c.uni.Get(firstId, id)
		if !ok {
			return Node{}, false
		}
		return uniformNode(n), true
	}
	return Node{}, false
}

// TopLevelNodes iterates the chunk's root nodes: the single node for an
// indirect chunk, NodeCount nodes for a uniform chunk.
func (c Chunk) TopLevelNodes(firstId tree.NodeId) Expander {
	switch {
	case c.ind != nil:
		n, _ := c.ind.Get(firstId, firstId)
		return Expander{single: indirectNode(n), hasSingle: true}
	case c.uni != nil:
		return Expander{uni: c.uni.TopLevelNodes(firstId)}
	}
	return Expander{}
}

// Labels views the chunk as a node in the chunk graph: the labels under
// which it references other chunks. Uniform chunks are leaves in the chunk
// graph and have none.
func (c Chunk) Labels() []tree.Label {
	if c.ind != nil {
		return c.ind.Labels()
	}
	return nil
}

// Children returns the chunk ids referenced under label, if any.
func (c Chunk) Children(label tree.Label) []tree.ChunkId {
	if c.ind != nil {
		return c.ind.Children(label)
	}
	return nil
}

type nodeKind uint8

const (
	nodeInvalid nodeKind = iota
	nodeIndirect
	nodeUniform
)

// Node is the union of node views across chunk kinds.
type Node struct {
	kind nodeKind
	ind  indirect.Node
	uni  uniform.Node
}

func indirectNode(n indirect.Node) Node { return Node{kind: nodeIndirect, ind: n} }

func uniformNode(n uniform.Node) Node { return Node{kind: nodeUniform, uni: n} }

func (n Node) ID() tree.NodeId {
	if n.kind == nodeIndirect {
		return n.ind.ID()
	}
	return n.uni.ID()
}

func (n Node) Def() tree.Def {
	if n.kind == nodeIndirect {
		return n.ind.Def()
	}
	return n.uni.Def()
}

func (n Node) Payload() ([]byte, bool) {
	if n.kind == nodeIndirect {
		return n.ind.Payload()
	}
	return n.uni.Payload()
}

func (n Node) Labels() []tree.Label {
	if n.kind == nodeIndirect {
		return n.ind.Labels()
	}
	return n.uni.Labels()
}

// Trait iterates the node's children under label. Children of an indirect
// node are edges to other chunks; children of a uniform node stay within the
// chunk.
func (n Node) Trait(label tree.Label) TraitIter {
	if n.kind == nodeIndirect {
		return TraitIter{ids: n.ind.Children(label)}
	}
	return TraitIter{uni: n.uni.Trait(label), uniform: true}
}

// Child is either an edge to another chunk (to be resolved through the
// forest) or a node within the current uniform chunk (no lookup needed).
type Child struct {
	id      tree.ChunkId
	node    uniform.Node
	isChunk bool
}

// ChunkId returns the edge target, or false for an in-chunk child.
func (c Child) ChunkId() (tree.ChunkId, bool) { return c.id, c.isChunk }

// TraitIter yields the children of one trait as Child values.
type TraitIter struct {
	ids     []tree.ChunkId
	i       int
	uni     uniform.Iter
	uniform bool
}

func (it *TraitIter) Next() (Child, bool) {
	if it.uniform {
		n, ok := it.uni.Next()
		if !ok {
			return Child{}, false
		}
		return Child{node: n}, true
	}
	if it.i >= len(it.ids) {
		return Child{}, false
	}
	id := it.ids[it.i]
	it.i++
	return Child{id: id, isChunk: true}, true
}

// Expander yields the logical nodes a child reference denotes: one node for
// an indirect chunk or in-chunk child, NodeCount nodes for a uniform chunk.
type Expander struct {
	single    Node
	hasSingle bool
	uni       uniform.Iter
}

func (e *Expander) Next() (Node, bool) {
	if e.hasSingle {
		e.hasSingle = false
		return e.single, true
	}
	n, ok := e.uni.Next()
	if !ok {
		return Node{}, false
	}
	return uniformNode(n), true
}

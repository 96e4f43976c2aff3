// Package indirect implements the single-node chunk kind. An indirect chunk
// owns exactly one node id; its children are chunk ids that must be resolved
// back through the forest.
package indirect

import "github.com/seqtree/forest/tree"

// Chunk is one node: a definition, an optional payload, and a map from trait
// label to the ordered chunk ids of that trait's children. Chunks stored in a
// forest are treated as immutable; use Clone before editing a stored chunk.
type Chunk struct {
	Def     tree.Def
	Payload []byte
	Traits  map[tree.Label][]tree.ChunkId
}

func New(def tree.Def) *Chunk {
	return &Chunk{Def: def}
}

// Get returns the node view iff id is the chunk's single id.
func (c *Chunk) Get(firstId, id tree.NodeId) (Node, bool) {
	if firstId != id {
		return Node{}, false
	}
	return Node{Chunk: c, Id: id}, true
}

// Labels returns the trait labels present on the chunk, in no particular
// order.
func (c *Chunk) Labels() []tree.Label {
	if len(c.Traits) == 0 {
		return nil
	}
	out := make([]tree.Label, 0, len(c.Traits))
	for l := range c.Traits {
		out = append(out, l)
	}
	return out
}

// Children returns the ordered children under label. An absent trait is an
// empty slice, not an error.
func (c *Chunk) Children(label tree.Label) []tree.ChunkId {
	return c.Traits[label]
}

// WithChild returns a copy of the chunk with id appended to the trait under
// label. The receiver is unchanged.
func (c *Chunk) WithChild(label tree.Label, id tree.ChunkId) *Chunk {
	out := c.Clone()
	out.Traits[label] = append(out.Traits[label], id)
	return out
}

// Clone returns a deep copy of the chunk. The payload bytes are shared: they
// are immutable by contract.
func (c *Chunk) Clone() *Chunk {
	out := &Chunk{Def: c.Def, Payload: c.Payload}
	out.Traits = make(map[tree.Label][]tree.ChunkId, len(c.Traits))
	for l, ids := range c.Traits {
		out.Traits[l] = append([]tree.ChunkId(nil), ids...)
	}
	return out
}

// Node is a view of an indirect chunk's single node together with its id.
type Node struct {
	Chunk *Chunk
	Id    tree.NodeId
}

func (n Node) ID() tree.NodeId { return n.Id }

func (n Node) Def() tree.Def { return n.Chunk.Def }

// Payload returns the node's payload bytes, or false if the node carries
// none.
func (n Node) Payload() ([]byte, bool) {
	if n.Chunk.Payload == nil {
		return nil, false
	}
	return n.Chunk.Payload, true
}

func (n Node) Labels() []tree.Label { return n.Chunk.Labels() }

func (n Node) Children(label tree.Label) []tree.ChunkId { return n.Chunk.Children(label) }

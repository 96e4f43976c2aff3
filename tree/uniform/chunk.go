package uniform

import "github.com/seqtree/forest/tree"

// Chunk is a sequence of trees with identical schema and sequential ids
// (depth-first pre-order). The schema is shared; the content is one byte
// blob of NodeCount × BytesPerNode bytes, treated as immutable.
type Chunk struct {
	Schema *RootChunkSchema
	Data   []byte
}

// New panics if the blob does not match the size the schema claims.
func New(schema *RootChunkSchema, data []byte) *Chunk {
	want := int(schema.Schema.NodeCount) * int(schema.Schema.BytesPerNode)
	if len(data) != want {
		panic("uniform: data length does not match schema")
	}
	return &Chunk{Schema: schema, Data: data}
}

// Count returns the number of top-level nodes in the chunk.
func (c *Chunk) Count() int { return int(c.Schema.Schema.NodeCount) }

// Span returns the total number of ids the chunk owns.
func (c *Chunk) Span() uint64 { return c.Schema.Span() }

// Get returns the node with the given id, resolving it through the schema's
// offset table in O(1).
func (c *Chunk) Get(firstId, id tree.NodeId) (Node, bool) {
	ref, ok := c.Schema.Lookup(firstId, id)
	if !ok {
		return Node{}, false
	}
	data := c.Data[ref.ByteOffset : ref.ByteOffset+ref.Schema.BytesPerNode]
	return Node{
		view: view{firstId: id, schema: ref.Schema, data: data},
	}, true
}

// TopLevelNodes iterates the chunk's NodeCount top-level nodes, given the
// chunk's first id.
func (c *Chunk) TopLevelNodes(firstId tree.NodeId) Iter {
	return newIter(Node{
		view: view{firstId: firstId, schema: &c.Schema.Schema, data: c.Data},
	})
}

// view addresses a run of schema repetitions inside a chunk: the id of the
// first repetition, the level's schema, and the bytes backing the run.
type view struct {
	firstId tree.NodeId
	schema  *ChunkSchema
	data    []byte
}

// Node is a view of one node within a uniform chunk: a run of repetitions
// plus the index of the current one.
type Node struct {
	view   view
	offset uint32
}

func (n Node) data() []byte {
	stride := n.view.schema.BytesPerNode
	start := n.offset * stride
	return n.view.data[start : start+stride]
}

func (n Node) ID() tree.NodeId {
	return n.view.firstId.Advance(uint64(n.offset) * uint64(n.view.schema.IdStride))
}

func (n Node) Def() tree.Def { return n.view.schema.Def }

// Payload returns the first PayloadSize bytes of the node's slice, or false
// when the schema declares no payload.
func (n Node) Payload() ([]byte, bool) {
	p := n.view.schema.PayloadSize
	if p == nil {
		return nil, false
	}
	return n.data()[:*p], true
}

// Labels returns the trait labels of the node's schema, in no particular
// order.
func (n Node) Labels() []tree.Label {
	if len(n.view.schema.Traits) == 0 {
		return nil
	}
	out := make([]tree.Label, 0, len(n.view.schema.Traits))
	for l := range n.view.schema.Traits {
		out = append(out, l)
	}
	return out
}

// Trait iterates the node's children under label. The children stay within
// the chunk: each step is pointer arithmetic on the node's slice, never a
// forest lookup.
func (n Node) Trait(label tree.Label) Iter {
	sub, ok := n.view.schema.Traits[label]
	if !ok {
		return Iter{}
	}
	nodeData := n.data()
	traitData := nodeData[sub.ByteOffset : sub.ByteOffset+sub.Schema.BytesPerNode*sub.Schema.NodeCount]
	return newIter(Node{
		view: view{
			firstId: n.ID().Add(sub.IdOffset),
			schema:  sub.Schema,
			data:    traitData,
		},
	})
}

// Iter yields the successive repetitions of one schema level. The zero Iter
// is empty.
type Iter struct {
	node  Node
	valid bool
}

func newIter(n Node) Iter {
	return Iter{node: n, valid: true}
}

func (it *Iter) Next() (Node, bool) {
	if !it.valid || it.node.offset >= it.node.view.schema.NodeCount {
		return Node{}, false
	}
	out := it.node
	it.node.offset++
	return out, true
}

// Package uniform implements the dense chunk kind: a repeated subtree of
// fixed shape stored as one byte blob plus a shared schema. Random access by
// node id is O(1) through a table precomputed from the schema.
package uniform

import "github.com/seqtree/forest/tree"

// ChunkSchema describes one level of a fixed subtree shape: the node
// definition, how many repetitions occur at this level, the byte and id
// strides between repetitions, the per-node payload width, and the child
// traits nested inside each repetition.
//
// Trait offsets are for the first repetition and are relative to the
// immediate parent node. The layouts in id space and byte space may diverge,
// and either may contain unused gaps.
type ChunkSchema struct {
	Def          tree.Def
	NodeCount    uint32
	BytesPerNode uint32
	// IdStride is the id gap between successive repetitions: at least the
	// total id span of one repetition's subtree.
	IdStride    uint32
	PayloadSize *uint16
	Traits      map[tree.Label]OffsetSchema
}

// OffsetSchema locates the first repetition of a child trait inside the
// parent's stride, in both id space and byte space.
type OffsetSchema struct {
	IdOffset   tree.IdOffset
	ByteOffset uint32
	Schema     *ChunkSchema
}

// PayloadBytes is a convenience for building schema literals.
func PayloadBytes(n uint16) *uint16 { return &n }

// RootChunkSchema wraps a ChunkSchema with a table mapping each id offset
// within one top-level stride to its byte offset, inner schema, and
// within-stride parent. Identical schemas are expected to share one
// RootChunkSchema across many chunks.
type RootChunkSchema struct {
	Schema ChunkSchema
	table  []*offsetInfo
}

type offsetInfo struct {
	byteOffset uint32
	schema     *ChunkSchema
	parent     ParentOffset
}

// ParentOffset names a node's parent within the same chunk: the parent's id
// offset from the chunk's first id, and the label the node hangs under.
// Present is false for the chunk's top-level nodes.
type ParentOffset struct {
	Present  bool
	IdOffset tree.IdOffset
	Label    tree.Label
}

// OffsetRef is the result of resolving an id against a root schema.
type OffsetRef struct {
	ByteOffset uint32
	Schema     *ChunkSchema
	Parent     ParentOffset
}

// NewRootChunkSchema precomputes the offset table for schema. It panics if
// two descendants claim the same id offset or a descendant falls outside the
// stride, both of which indicate a malformed schema.
func NewRootChunkSchema(schema ChunkSchema) *RootChunkSchema {
	r := &RootChunkSchema{
		Schema: schema,
		table:  make([]*offsetInfo, schema.IdStride),
	}
	r.add(&r.Schema, 0, 0, ParentOffset{})
	return r
}

func (r *RootChunkSchema) add(s *ChunkSchema, byteOffset uint32, idOffset uint64, parent ParentOffset) {
	if idOffset >= uint64(len(r.table)) {
		panic("uniform: schema descendant exceeds id stride")
	}
	if r.table[idOffset] != nil {
		panic("uniform: schema id offsets overlap")
	}
	r.table[idOffset] = &offsetInfo{byteOffset: byteOffset, schema: s, parent: parent}
	for label, sub := range s.Traits {
		for i := uint32(0); i < sub.Schema.NodeCount; i++ {
			r.add(
				sub.Schema,
				byteOffset+sub.ByteOffset+i*sub.Schema.BytesPerNode,
				idOffset+uint64(sub.IdOffset)+uint64(i)*uint64(sub.Schema.IdStride),
				ParentOffset{Present: true, IdOffset: tree.IdOffset(idOffset), Label: label},
			)
		}
	}
}

// Span returns the total number of ids owned by a chunk with this schema.
func (r *RootChunkSchema) Span() uint64 {
	return uint64(r.Schema.IdStride) * uint64(r.Schema.NodeCount)
}

// Lookup resolves id within a chunk whose first id is firstId. It returns
// false when id is outside the chunk's range or falls in an unused gap.
//
// The parent id offset in the result is translated into id's repetition: the
// table stores offsets for repetition zero, and both the node and its parent
// live rep × IdStride further along.
func (r *RootChunkSchema) Lookup(firstId, id tree.NodeId) (OffsetRef, bool) {
	if id.Less(firstId) {
		return OffsetRef{}, false
	}
	if !id.Less(firstId.Advance(r.Span())) {
		return OffsetRef{}, false
	}
	delta := id.Delta(firstId)
	rep := uint32(delta / uint64(r.Schema.IdStride))
	within := delta % uint64(r.Schema.IdStride)

	info := r.table[within]
	if info == nil {
		return OffsetRef{}, false
	}
	ref := OffsetRef{
		ByteOffset: info.byteOffset + rep*r.Schema.BytesPerNode,
		Schema:     info.schema,
		Parent:     info.parent,
	}
	if ref.Parent.Present {
		ref.Parent.IdOffset += tree.IdOffset(rep * r.Schema.IdStride)
	}
	return ref, true
}

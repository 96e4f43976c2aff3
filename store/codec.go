package store

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/seqtree/forest/forest"
	"github.com/seqtree/forest/tree"
	"github.com/seqtree/forest/tree/indirect"
	"github.com/seqtree/forest/tree/uniform"
)

const (
	tagIndirect byte = 0
	tagUniform  byte = 1
)

// MarshalChunk returns the serialized chunk. Trait maps are written in label
// order so the encoding is deterministic.
func MarshalChunk(c forest.Chunk) []byte {
	if ind, ok := c.Indirect(); ok {
		return marshalIndirect(ind)
	}
	uni, ok := c.Uniform()
	if !ok {
		panic("store: chunk has no arm")
	}
	return marshalUniform(uni)
}

func marshalIndirect(c *indirect.Chunk) []byte {
	out := []byte{tagIndirect}
	out = appendPair(out, c.Def.Hi, c.Def.Lo)
	if c.Payload == nil {
		out = append(out, 0)
	} else {
		out = append(out, 1)
		out = binary.BigEndian.AppendUint32(out, uint32(len(c.Payload)))
		out = append(out, c.Payload...)
	}

	labels := c.Labels()
	sortLabels(labels)
	out = binary.BigEndian.AppendUint32(out, uint32(len(labels)))
	for _, l := range labels {
		out = appendPair(out, l.Hi, l.Lo)
		children := c.Children(l)
		out = binary.BigEndian.AppendUint32(out, uint32(len(children)))
		for _, id := range children {
			out = appendPair(out, id.Hi, id.Lo)
		}
	}
	return out
}

func marshalUniform(c *uniform.Chunk) []byte {
	out := []byte{tagUniform}
	out = appendSchema(out, &c.Schema.Schema)
	out = binary.BigEndian.AppendUint32(out, uint32(len(c.Data)))
	out = append(out, c.Data...)
	return out
}

func appendSchema(out []byte, s *uniform.ChunkSchema) []byte {
	out = appendPair(out, s.Def.Hi, s.Def.Lo)
	out = binary.BigEndian.AppendUint32(out, s.NodeCount)
	out = binary.BigEndian.AppendUint32(out, s.BytesPerNode)
	out = binary.BigEndian.AppendUint32(out, s.IdStride)
	if s.PayloadSize == nil {
		out = append(out, 0)
	} else {
		out = append(out, 1)
		out = binary.BigEndian.AppendUint16(out, *s.PayloadSize)
	}

	labels := make([]tree.Label, 0, len(s.Traits))
	for l := range s.Traits {
		labels = append(labels, l)
	}
	sortLabels(labels)
	out = binary.BigEndian.AppendUint32(out, uint32(len(labels)))
	for _, l := range labels {
		sub := s.Traits[l]
		out = appendPair(out, l.Hi, l.Lo)
		out = binary.BigEndian.AppendUint32(out, uint32(sub.IdOffset))
		out = binary.BigEndian.AppendUint32(out, sub.ByteOffset)
		out = appendSchema(out, sub.Schema)
	}
	return out
}

func appendPair(out []byte, hi, lo uint64) []byte {
	out = binary.BigEndian.AppendUint64(out, hi)
	return binary.BigEndian.AppendUint64(out, lo)
}

func sortLabels(labels []tree.Label) {
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].Hi != labels[j].Hi {
			return labels[i].Hi < labels[j].Hi
		}
		return labels[i].Lo < labels[j].Lo
	})
}

// Decoder decodes chunks, sharing one schema instance across all uniform
// chunks with the same shape. A nil Decoder is not valid; use NewDecoder.
type Decoder struct {
	schemas map[string]*uniform.RootChunkSchema
}

func NewDecoder() *Decoder {
	return &Decoder{schemas: make(map[string]*uniform.RootChunkSchema)}
}

// UnmarshalChunk decodes a chunk produced by MarshalChunk.
func (d *Decoder) UnmarshalChunk(data []byte) (forest.Chunk, error) {
	r := &reader{data: data}
	tag, err := r.byte()
	if err != nil {
		return forest.Chunk{}, err
	}
	var c forest.Chunk
	switch tag {
	case tagIndirect:
		c, err = r.indirectChunk()
	case tagUniform:
		c, err = r.uniformChunk(d)
	default:
		return forest.Chunk{}, fmt.Errorf("unknown chunk tag %v", tag)
	}
	if err != nil {
		return forest.Chunk{}, err
	}
	if len(r.data) != 0 {
		return forest.Chunk{}, fmt.Errorf("trailing data after chunk")
	}
	return c, nil
}

// UnmarshalChunk decodes a single chunk without schema sharing.
func UnmarshalChunk(data []byte) (forest.Chunk, error) {
	return NewDecoder().UnmarshalChunk(data)
}

// reader consumes the encoding front to back, failing on truncation.
type reader struct {
	data []byte
}

func (r *reader) take(n int) ([]byte, error) {
	if len(r.data) < n {
		return nil, fmt.Errorf("not enough data in chunk encoding")
	}
	out := r.data[:n]
	r.data = r.data[n:]
	return out, nil
}

func (r *reader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) pair() (uint64, uint64, error) {
	b, err := r.take(16)
	if err != nil {
		return 0, 0, err
	}
	return binary.BigEndian.Uint64(b[:8]), binary.BigEndian.Uint64(b[8:]), nil
}

func (r *reader) indirectChunk() (forest.Chunk, error) {
	hi, lo, err := r.pair()
	if err != nil {
		return forest.Chunk{}, err
	}
	c := indirect.New(tree.NewDef(hi, lo))

	present, err := r.byte()
	if err != nil {
		return forest.Chunk{}, err
	}
	if present == 1 {
		n, err := r.uint32()
		if err != nil {
			return forest.Chunk{}, err
		}
		payload, err := r.take(int(n))
		if err != nil {
			return forest.Chunk{}, err
		}
		c.Payload = append([]byte(nil), payload...)
	} else if present != 0 {
		return forest.Chunk{}, fmt.Errorf("unexpected payload marker %v", present)
	}

	labelCount, err := r.uint32()
	if err != nil {
		return forest.Chunk{}, err
	}
	if labelCount > 0 {
		c.Traits = make(map[tree.Label][]tree.ChunkId, labelCount)
	}
	for i := uint32(0); i < labelCount; i++ {
		hi, lo, err := r.pair()
		if err != nil {
			return forest.Chunk{}, err
		}
		label := tree.NewLabel(hi, lo)
		if _, ok := c.Traits[label]; ok {
			return forest.Chunk{}, fmt.Errorf("duplicate trait label")
		}
		childCount, err := r.uint32()
		if err != nil {
			return forest.Chunk{}, err
		}
		children := make([]tree.ChunkId, 0, childCount)
		for j := uint32(0); j < childCount; j++ {
			hi, lo, err := r.pair()
			if err != nil {
				return forest.Chunk{}, err
			}
			children = append(children, tree.ChunkId(tree.NewNodeId(hi, lo)))
		}
		c.Traits[label] = children
	}
	return forest.IndirectChunk(c), nil
}

func (r *reader) uniformChunk(d *Decoder) (forest.Chunk, error) {
	start := r.data
	schema, err := r.schema()
	if err != nil {
		return forest.Chunk{}, err
	}
	encoded := string(start[:len(start)-len(r.data)])

	root, ok := d.schemas[encoded]
	if !ok {
		if root, err = buildRootSchema(schema); err != nil {
			return forest.Chunk{}, err
		}
		d.schemas[encoded] = root
	}

	n, err := r.uint32()
	if err != nil {
		return forest.Chunk{}, err
	}
	data, err := r.take(int(n))
	if err != nil {
		return forest.Chunk{}, err
	}
	if int(n) != int(root.Schema.NodeCount)*int(root.Schema.BytesPerNode) {
		return forest.Chunk{}, fmt.Errorf("chunk data does not match its schema")
	}
	return forest.UniformChunk(uniform.New(root, append([]byte(nil), data...))), nil
}

// buildRootSchema turns the table-construction panic on malformed schemas
// into a decode error: the bytes came from outside the process.
func buildRootSchema(s *uniform.ChunkSchema) (root *uniform.RootChunkSchema, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid schema: %v", r)
		}
	}()
	return uniform.NewRootChunkSchema(*s), nil
}

func (r *reader) schema() (*uniform.ChunkSchema, error) {
	hi, lo, err := r.pair()
	if err != nil {
		return nil, err
	}
	s := &uniform.ChunkSchema{Def: tree.NewDef(hi, lo)}
	if s.NodeCount, err = r.uint32(); err != nil {
		return nil, err
	}
	if s.BytesPerNode, err = r.uint32(); err != nil {
		return nil, err
	}
	if s.IdStride, err = r.uint32(); err != nil {
		return nil, err
	}

	present, err := r.byte()
	if err != nil {
		return nil, err
	}
	if present == 1 {
		p, err := r.uint16()
		if err != nil {
			return nil, err
		}
		s.PayloadSize = uniform.PayloadBytes(p)
	} else if present != 0 {
		return nil, fmt.Errorf("unexpected payload size marker %v", present)
	}

	labelCount, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if labelCount > 0 {
		s.Traits = make(map[tree.Label]uniform.OffsetSchema, labelCount)
	}
	for i := uint32(0); i < labelCount; i++ {
		hi, lo, err := r.pair()
		if err != nil {
			return nil, err
		}
		label := tree.NewLabel(hi, lo)
		if _, ok := s.Traits[label]; ok {
			return nil, fmt.Errorf("duplicate schema trait label")
		}
		idOffset, err := r.uint32()
		if err != nil {
			return nil, err
		}
		byteOffset, err := r.uint32()
		if err != nil {
			return nil, err
		}
		sub, err := r.schema()
		if err != nil {
			return nil, err
		}
		s.Traits[label] = uniform.OffsetSchema{
			IdOffset:   tree.IdOffset(idOffset),
			ByteOffset: byteOffset,
			Schema:     sub,
		}
	}
	return s, nil
}

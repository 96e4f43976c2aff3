// Package idcompress assigns short ids to opaque 128-bit node ids. The
// allocation scheme is not stable: short ids depend on the order they are
// requested. Smaller short ids are handed out first so consumers that handle
// small numbers more efficiently benefit.
package idcompress

import "github.com/seqtree/forest/tree"

// ShortId is a compressed stand-in for a NodeId.
type ShortId uint64

// Table allocates short ids densely, in request order.
type Table struct {
	ids   []tree.NodeId
	index map[tree.NodeId]ShortId
}

func NewTable() *Table {
	return &Table{index: make(map[tree.NodeId]ShortId)}
}

// Shorten returns the short id for id, allocating the next free one on first
// sight.
func (t *Table) Shorten(id tree.NodeId) ShortId {
	if s, ok := t.index[id]; ok {
		return s
	}
	s := ShortId(len(t.ids))
	t.ids = append(t.ids, id)
	t.index[id] = s
	return s
}

// Full returns the NodeId a short id was allocated for. It panics on short
// ids that were never handed out.
func (t *Table) Full(s ShortId) tree.NodeId {
	return t.ids[s]
}

// Len returns the number of allocated short ids.
func (t *Table) Len() int { return len(t.ids) }

// The low shift bits pass through RangeTable unchanged, so ids clustered
// within a 2^shift-aligned block share one table entry.
const (
	shift   = 10
	maskLow = 1<<shift - 1
)

// RangeTable compresses numerically clustered ids: it shortens all but the
// low bits through a Table. This shrinks the table when ids cluster, at the
// cost of walking through the short id space up to 2^shift times faster.
//
// Runs of sequential NodeIds are not guaranteed sequential ShortIds when
// they cross a block boundary.
type RangeTable struct {
	table *Table
}

func NewRangeTable() *RangeTable {
	return &RangeTable{table: NewTable()}
}

func (t *RangeTable) Shorten(id tree.NodeId) ShortId {
	inner := t.table.Shorten(shiftRight(id))
	return inner<<shift | ShortId(id.Lo&maskLow)
}

func (t *RangeTable) Full(s ShortId) tree.NodeId {
	base := shiftLeft(t.table.Full(s >> shift))
	return tree.NewNodeId(base.Hi, base.Lo|uint64(s&maskLow))
}

// Len returns the number of id blocks in the table.
func (t *RangeTable) Len() int { return t.table.Len() }

func shiftRight(id tree.NodeId) tree.NodeId {
	return tree.NewNodeId(id.Hi>>shift, id.Lo>>shift|id.Hi<<(64-shift))
}

func shiftLeft(id tree.NodeId) tree.NodeId {
	return tree.NewNodeId(id.Hi<<shift|id.Lo>>(64-shift), id.Lo<<shift)
}

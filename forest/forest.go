package forest

import (
	"sync"

	"github.com/seqtree/forest/internal/hamt"
	"github.com/seqtree/forest/internal/ordmap"
	"github.com/seqtree/forest/tree"
)

// Forest maps chunk ids to chunks. Chunks inserted into the same forest must
// own non-overlapping ranges of ids; this is a caller contract and is not
// validated.
//
// A Forest value is single-writer: mutate it from one goroutine at a time.
// Clone is O(1) and the clone is fully independent, so snapshots are the way
// to share a forest.
type Forest struct {
	chunks *ordmap.Map[Chunk]

	// Parent data is maintained lazily: old holds the chunk map as of the
	// last reconciliation, and parents is valid for that snapshot. The
	// mutex only guards the reconciliation; it is not a general
	// concurrency guarantee.
	mu      sync.Mutex
	old     *ordmap.Map[Chunk]
	parents *hamt.Map[ParentInfo]
}

// ParentInfo records which chunk owns a chunk as a child, and under which
// label.
type ParentInfo struct {
	Node  tree.ChunkId
	Label tree.Label
}

func New() *Forest {
	return &Forest{
		chunks:  ordmap.New[Chunk](),
		old:     ordmap.New[Chunk](),
		parents: hamt.New[ParentInfo](),
	}
}

// Clone returns an independent forest sharing all structure with f.
// Mutations of either afterwards do not affect the other.
func (f *Forest) Clone() *Forest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &Forest{chunks: f.chunks, old: f.old, parents: f.parents}
}

// Len returns the number of chunks.
func (f *Forest) Len() int { return f.chunks.Len() }

// Insert installs a chunk under id, replacing any existing chunk with the
// same id.
func (f *Forest) Insert(id tree.ChunkId, c Chunk) {
	f.chunks = f.chunks.Insert(id, c)
}

// FindNodes returns the chunk stored under exactly id.
func (f *Forest) FindNodes(id tree.ChunkId) (Chunk, bool) {
	return f.chunks.Get(id)
}

// FindNodesFromNode returns the chunk with the greatest first id ≤ id. By
// the no-overlap contract this is the only chunk that can own id; the caller
// still has to check containment.
func (f *Forest) FindNodesFromNode(id tree.NodeId) (tree.ChunkId, Chunk, bool) {
	return f.chunks.Floor(tree.ChunkId(id))
}

// FindNode returns the node with the given id, if any chunk owns it.
func (f *Forest) FindNode(id tree.NodeId) (Node, bool) {
	cid, c, ok := f.FindNodesFromNode(id)
	if !ok {
		return Node{}, false
	}
	return c.Get(tree.NodeId(cid), id)
}

// Range calls fn on every (chunk id, chunk) entry in id order until fn
// returns false.
func (f *Forest) Range(fn func(tree.ChunkId, Chunk) bool) {
	f.chunks.Range(fn)
}

// Entry is a handle on one chunk slot, for read-modify-write without a
// second lookup by the caller. Writes go through the persistent map; other
// clones of the forest are unaffected.
type Entry struct {
	f  *Forest
	id tree.ChunkId
}

func (f *Forest) Entry(id tree.ChunkId) Entry {
	return Entry{f: f, id: id}
}

func (e Entry) Get() (Chunk, bool) { return e.f.FindNodes(e.id) }

func (e Entry) Set(c Chunk) { e.f.Insert(e.id, c) }

// Modify applies fn to the stored chunk and installs the result. It returns
// false, without calling fn, when the slot is empty.
func (e Entry) Modify(fn func(Chunk) Chunk) bool {
	c, ok := e.Get()
	if !ok {
		return false
	}
	e.Set(fn(c))
	return true
}

package forest

import (
	"testing"

	"github.com/seqtree/forest/tree/indirect"
)

func TestParentReconcileIncremental(t *testing.T) {
	l := lbl(7)
	f := New()
	f.Insert(cid(10), IndirectChunk(indirect.New(def(1)).WithChild(l, cid(20))))
	f.Insert(cid(20), IndirectChunk(indirect.New(def(2))))

	p, ok := f.ParentData().Get(cid(20))
	if !ok || p.Node != cid(10) || p.Label != l {
		t.Fatalf("parent of 20: ok=%v %+v", ok, p)
	}

	// Later mutations are picked up by the next reconciliation.
	f.Insert(cid(30), IndirectChunk(indirect.New(def(3))))
	f.Entry(cid(20)).Modify(func(c Chunk) Chunk {
		ind, _ := c.Indirect()
		return IndirectChunk(ind.WithChild(l, cid(30)))
	})

	p, ok = f.ParentData().Get(cid(30))
	if !ok || p.Node != cid(20) {
		t.Fatalf("parent of 30: ok=%v %+v", ok, p)
	}
	// Unchanged entries survive the incremental update.
	if p, ok := f.ParentData().Get(cid(20)); !ok || p.Node != cid(10) {
		t.Fatalf("parent of 20 lost: ok=%v %+v", ok, p)
	}
}

func TestParentReconcileUpdate(t *testing.T) {
	l1, l2 := lbl(1), lbl(2)
	f := New()
	f.Insert(cid(10), IndirectChunk(indirect.New(def(1)).WithChild(l1, cid(20))))
	f.Insert(cid(20), IndirectChunk(indirect.New(def(2))))
	f.Insert(cid(30), IndirectChunk(indirect.New(def(3))))
	f.ParentData()

	// Replacing the chunk drops the old child edge and adds the new one.
	f.Insert(cid(10), IndirectChunk(indirect.New(def(1)).WithChild(l2, cid(30))))

	if _, ok := f.ParentData().Get(cid(20)); ok {
		t.Fatal("stale parent entry for removed child")
	}
	p, ok := f.ParentData().Get(cid(30))
	if !ok || p.Node != cid(10) || p.Label != l2 {
		t.Fatalf("parent of 30: ok=%v %+v", ok, p)
	}
}

func TestParentReconcileReplacementAsRemoval(t *testing.T) {
	l := lbl(7)
	f := New()
	f.Insert(cid(10), IndirectChunk(indirect.New(def(1)).WithChild(l, cid(20))))
	f.Insert(cid(20), IndirectChunk(indirect.New(def(2))))
	f.ParentData()

	// Removal is modeled as replacement with an empty indirect chunk.
	f.Insert(cid(10), IndirectChunk(indirect.New(def(1))))

	if _, ok := f.ParentData().Get(cid(20)); ok {
		t.Fatal("parent entry survived child removal")
	}
}

func TestParentFromChunkId(t *testing.T) {
	l := lbl(7)
	f := New()
	f.Insert(cid(10), IndirectChunk(indirect.New(def(1)).WithChild(l, cid(20))))
	f.Insert(cid(20), IndirectChunk(indirect.New(def(2))))

	p, ok := f.ParentFromChunkId(cid(20))
	if !ok {
		t.Fatal("parent missing")
	}
	if p.Node.ID() != nid(10) || p.Label != l {
		t.Fatalf("parent: id=%v label=%v", p.Node.ID(), p.Label)
	}

	if _, ok := f.ParentFromChunkId(cid(10)); ok {
		t.Fatal("root chunk has a parent")
	}
}

func TestParentDataIdempotent(t *testing.T) {
	l := lbl(7)
	f := New()
	f.Insert(cid(10), IndirectChunk(indirect.New(def(1)).WithChild(l, cid(20))))
	f.Insert(cid(20), IndirectChunk(indirect.New(def(2))))

	first := f.ParentData()
	second := f.ParentData()
	if first != second {
		t.Fatal("reconciliation ran without any mutation")
	}
}

func TestParentLastWriterWins(t *testing.T) {
	l := lbl(7)
	f := New()
	f.Insert(cid(10), IndirectChunk(indirect.New(def(1)).WithChild(l, cid(99))))
	f.Insert(cid(20), IndirectChunk(indirect.New(def(2)).WithChild(l, cid(99))))
	f.Insert(cid(99), IndirectChunk(indirect.New(def(3))))

	// Two chunks claiming one child is a degenerate input; the index keeps
	// the claim indexed last. One reconciliation indexes chunks in id order,
	// so 20 wins.
	p, ok := f.ParentData().Get(cid(99))
	if !ok {
		t.Fatal("parent of 99 missing")
	}
	if p.Node != cid(20) {
		t.Fatalf("parent of 99: %+v", p)
	}
}

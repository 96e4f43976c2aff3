package indirect

import (
	"bytes"
	"testing"

	"github.com/seqtree/forest/tree"
)

func id(lo uint64) tree.NodeId { return tree.NewNodeId(0, lo) }

func cid(lo uint64) tree.ChunkId { return tree.ChunkId(id(lo)) }

func TestGet(t *testing.T) {
	c := New(tree.NewDef(0, 1))
	if _, ok := c.Get(id(5), id(4)); ok {
		t.Fatal("id below range resolved")
	}
	if _, ok := c.Get(id(5), id(6)); ok {
		t.Fatal("id above range resolved")
	}
	n, ok := c.Get(id(5), id(5))
	if !ok {
		t.Fatal("own id did not resolve")
	}
	if n.ID() != id(5) || n.Def() != tree.NewDef(0, 1) {
		t.Fatalf("bad view: id=%v def=%v", n.ID(), n.Def())
	}
	if _, ok := n.Payload(); ok {
		t.Fatal("payload present on payload-free node")
	}
}

func TestPayload(t *testing.T) {
	c := New(tree.NewDef(0, 1))
	c.Payload = []byte{1, 2, 3}
	n, _ := c.Get(id(5), id(5))
	p, ok := n.Payload()
	if !ok || !bytes.Equal(p, []byte{1, 2, 3}) {
		t.Fatalf("payload: got %v, %v", p, ok)
	}
}

func TestTraits(t *testing.T) {
	l1, l2 := tree.NewLabel(0, 1), tree.NewLabel(0, 2)
	c := New(tree.NewDef(0, 1))
	c.Traits = map[tree.Label][]tree.ChunkId{
		l1: {cid(10), cid(20)},
	}

	if got := c.Children(l1); len(got) != 2 || got[0] != cid(10) || got[1] != cid(20) {
		t.Fatalf("children: got %v", got)
	}
	if got := c.Children(l2); len(got) != 0 {
		t.Fatalf("absent trait: got %v", got)
	}
	if got := c.Labels(); len(got) != 1 || got[0] != l1 {
		t.Fatalf("labels: got %v", got)
	}
}

func TestWithChild(t *testing.T) {
	l := tree.NewLabel(0, 1)
	c := New(tree.NewDef(0, 1))
	c2 := c.WithChild(l, cid(10))
	c3 := c2.WithChild(l, cid(20))

	if len(c.Children(l)) != 0 {
		t.Fatal("WithChild mutated receiver")
	}
	if got := c2.Children(l); len(got) != 1 || got[0] != cid(10) {
		t.Fatalf("first child: got %v", got)
	}
	if got := c3.Children(l); len(got) != 2 || got[1] != cid(20) {
		t.Fatalf("second child: got %v", got)
	}
}

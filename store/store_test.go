package store

import (
	"bytes"
	"testing"

	"github.com/seqtree/forest/forest"
	"github.com/seqtree/forest/tree"
	"github.com/seqtree/forest/tree/indirect"
	"github.com/seqtree/forest/tree/uniform"
)

func cid(lo uint64) tree.ChunkId { return tree.ChunkId(tree.NewNodeId(0, lo)) }

func testIndirect() *indirect.Chunk {
	c := indirect.New(tree.NewDef(3, 4))
	c.Payload = []byte{9, 8, 7}
	c.Traits = map[tree.Label][]tree.ChunkId{
		tree.NewLabel(0, 1): {cid(10), cid(20)},
		tree.NewLabel(0, 2): {cid(30)},
	}
	return c
}

func testUniform() *uniform.Chunk {
	sub := &uniform.ChunkSchema{
		Def:          tree.NewDef(0, 2),
		NodeCount:    1,
		BytesPerNode: 1,
		IdStride:     1,
		PayloadSize:  uniform.PayloadBytes(1),
	}
	traits := make(map[tree.Label]uniform.OffsetSchema)
	for i := 0; i < 4; i++ {
		traits[tree.NewLabel(0, uint64(i+1))] = uniform.OffsetSchema{
			IdOffset:   tree.IdOffset(i + 1),
			ByteOffset: uint32(i),
			Schema:     sub,
		}
	}
	return uniform.New(uniform.NewRootChunkSchema(uniform.ChunkSchema{
		Def:          tree.NewDef(0, 1),
		NodeCount:    2,
		BytesPerNode: 4,
		IdStride:     5,
		Traits:       traits,
	}), []byte{1, 2, 3, 4, 5, 6, 7, 8})
}

func TestIndirectRoundTrip(t *testing.T) {
	raw := MarshalChunk(forest.IndirectChunk(testIndirect()))
	c, err := UnmarshalChunk(raw)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := c.Indirect()
	if !ok {
		t.Fatal("decoded chunk is not indirect")
	}
	want := testIndirect()
	if got.Def != want.Def {
		t.Fatalf("def: got %v", got.Def)
	}
	if !bytes.Equal(got.Payload, want.Payload) {
		t.Fatalf("payload: got %v", got.Payload)
	}
	if len(got.Traits) != len(want.Traits) {
		t.Fatalf("traits: got %v", got.Traits)
	}
	for l, children := range want.Traits {
		gotChildren := got.Traits[l]
		if len(gotChildren) != len(children) {
			t.Fatalf("trait %v: got %v", l, gotChildren)
		}
		for i := range children {
			if gotChildren[i] != children[i] {
				t.Fatalf("trait %v child %v: got %v", l, i, gotChildren[i])
			}
		}
	}
}

func TestUniformRoundTrip(t *testing.T) {
	orig := testUniform()
	raw := MarshalChunk(forest.UniformChunk(orig))
	c, err := UnmarshalChunk(raw)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := c.Uniform()
	if !ok {
		t.Fatal("decoded chunk is not uniform")
	}
	if !bytes.Equal(got.Data, orig.Data) {
		t.Fatalf("data: got %v", got.Data)
	}

	// The decoded chunk behaves like the original.
	first := tree.NewNodeId(0, 0)
	for lo := uint64(0); lo < 10; lo++ {
		wantNode, wantOk := orig.Get(first, tree.NewNodeId(0, lo))
		gotNode, gotOk := got.Get(first, tree.NewNodeId(0, lo))
		if wantOk != gotOk {
			t.Fatalf("id %v: presence differs", lo)
		}
		if !wantOk {
			continue
		}
		if wantNode.Def() != gotNode.Def() {
			t.Fatalf("id %v: def differs", lo)
		}
		wp, wok := wantNode.Payload()
		gp, gok := gotNode.Payload()
		if wok != gok || !bytes.Equal(wp, gp) {
			t.Fatalf("id %v: payload differs", lo)
		}
	}
}

func TestMarshalDeterministic(t *testing.T) {
	a := MarshalChunk(forest.IndirectChunk(testIndirect()))
	b := MarshalChunk(forest.IndirectChunk(testIndirect()))
	if !bytes.Equal(a, b) {
		t.Fatal("encoding is not deterministic")
	}
}

func TestSchemaSharing(t *testing.T) {
	raw := MarshalChunk(forest.UniformChunk(testUniform()))

	dec := NewDecoder()
	a, err := dec.UnmarshalChunk(raw)
	if err != nil {
		t.Fatal(err)
	}
	b, err := dec.UnmarshalChunk(raw)
	if err != nil {
		t.Fatal(err)
	}
	ua, _ := a.Uniform()
	ub, _ := b.Uniform()
	if ua.Schema != ub.Schema {
		t.Fatal("identical schemas were not shared")
	}
}

func TestUnmarshalTruncated(t *testing.T) {
	raw := MarshalChunk(forest.IndirectChunk(testIndirect()))
	for n := 0; n < len(raw); n++ {
		if _, err := UnmarshalChunk(raw[:n]); err == nil {
			t.Fatalf("truncation at %v decoded successfully", n)
		}
	}
}

func TestUnmarshalTrailing(t *testing.T) {
	raw := MarshalChunk(forest.IndirectChunk(testIndirect()))
	if _, err := UnmarshalChunk(append(raw, 0)); err == nil {
		t.Fatal("trailing byte decoded successfully")
	}
}

func buildForest() *forest.Forest {
	f := forest.New()
	root := testIndirect().WithChild(tree.NewLabel(0, 3), cid(0))
	f.Insert(cid(1000), forest.IndirectChunk(root))
	f.Insert(cid(0), forest.UniformChunk(testUniform()))
	f.Insert(cid(10), forest.IndirectChunk(indirect.New(tree.NewDef(0, 5))))
	f.Insert(cid(20), forest.IndirectChunk(indirect.New(tree.NewDef(0, 6))))
	f.Insert(cid(30), forest.IndirectChunk(indirect.New(tree.NewDef(0, 7))))
	return f
}

func checkLoaded(t *testing.T, loaded *forest.Forest) {
	t.Helper()
	if loaded.Len() != 5 {
		t.Fatalf("loaded %v chunks", loaded.Len())
	}
	nav, ok := loaded.NavFrom(tree.NewNodeId(0, 1000))
	if !ok {
		t.Fatal("root missing after load")
	}
	// Root, the two pixels and eight channels, and the three leaf chunks.
	count := 0
	nav.Walk(func(forest.Nav) bool {
		count++
		return true
	})
	if count != 14 {
		t.Fatalf("walk after load: got %v nodes", count)
	}
}

func TestSaveLoadMemory(t *testing.T) {
	s := NewMemoryStore()
	if err := Save(buildForest(), s); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(s)
	if err != nil {
		t.Fatal(err)
	}
	checkLoaded(t, loaded)
}

func TestSaveLoadLevelDB(t *testing.T) {
	s, err := NewLDBStore(t.TempDir() + "/chunks")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := Save(buildForest(), s); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(s)
	if err != nil {
		t.Fatal(err)
	}
	checkLoaded(t, loaded)

	if err := s.Delete(cid(30)); err != nil {
		t.Fatal(err)
	}
	ids, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 4 {
		t.Fatalf("list after delete: got %v ids", len(ids))
	}
}

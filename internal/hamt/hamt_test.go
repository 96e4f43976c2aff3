package hamt

import (
	mrand "math/rand"
	"testing"

	"github.com/seqtree/forest/tree"
)

func key(hi, lo uint64) tree.ChunkId {
	return tree.ChunkId(tree.NewNodeId(hi, lo))
}

func TestInsertGetDelete(t *testing.T) {
	rng := mrand.New(mrand.NewSource(3))
	m := New[int]()
	ref := make(map[tree.ChunkId]int)

	for i := 0; i < 5000; i++ {
		k := key(uint64(rng.Intn(4)), uint64(rng.Intn(800)))
		if rng.Intn(3) < 2 {
			m = m.Insert(k, i)
			ref[k] = i
		} else {
			m = m.Delete(k)
			delete(ref, k)
		}
	}

	if m.Len() != len(ref) {
		t.Fatalf("len: got %v, want %v", m.Len(), len(ref))
	}
	for k, v := range ref {
		if got, ok := m.Get(k); !ok || got != v {
			t.Fatalf("get %v: got %v, %v, want %v", k, got, ok, v)
		}
	}
	count := 0
	m.Range(func(k tree.ChunkId, v int) bool {
		if ref[k] != v {
			t.Fatalf("range %v: got %v, want %v", k, v, ref[k])
		}
		count++
		return true
	})
	if count != len(ref) {
		t.Fatalf("range visited %v entries, want %v", count, len(ref))
	}
}

func TestGetAbsent(t *testing.T) {
	m := New[int]()
	if _, ok := m.Get(key(0, 1)); ok {
		t.Fatal("empty map should have no entries")
	}
	m = m.Insert(key(0, 1), 1)
	if _, ok := m.Get(key(0, 2)); ok {
		t.Fatal("absent key found")
	}
	if m2 := m.Delete(key(0, 2)); m2 != m {
		t.Fatal("deleting absent key should return receiver")
	}
}

func TestPersistence(t *testing.T) {
	m := New[int]()
	for i := 0; i < 500; i++ {
		m = m.Insert(key(0, uint64(i)), i)
	}
	snapshot := m

	for i := 0; i < 500; i += 3 {
		m = m.Delete(key(0, uint64(i)))
	}
	m = m.Insert(key(9, 9), 99)

	if snapshot.Len() != 500 {
		t.Fatalf("snapshot len changed: %v", snapshot.Len())
	}
	for i := 0; i < 500; i++ {
		if v, ok := snapshot.Get(key(0, uint64(i))); !ok || v != i {
			t.Fatalf("snapshot lost entry %v", i)
		}
	}
	if _, ok := snapshot.Get(key(9, 9)); ok {
		t.Fatal("snapshot sees later insert")
	}
}

func TestOverwrite(t *testing.T) {
	m := New[int]().Insert(key(1, 1), 1).Insert(key(1, 1), 2)
	if m.Len() != 1 {
		t.Fatalf("len after overwrite: %v", m.Len())
	}
	if v, _ := m.Get(key(1, 1)); v != 2 {
		t.Fatalf("overwrite: got %v", v)
	}
}

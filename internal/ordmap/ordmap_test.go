package ordmap

import (
	mrand "math/rand"
	"sort"
	"testing"

	"github.com/seqtree/forest/tree"
)

func key(lo uint64) tree.ChunkId {
	return tree.ChunkId(tree.NewNodeId(0, lo))
}

func eqInt(a, b int) bool { return a == b }

func checkAgainst(t *testing.T, m *Map[int], ref map[tree.ChunkId]int) {
	t.Helper()
	if m.Len() != len(ref) {
		t.Fatalf("len: got %v, want %v", m.Len(), len(ref))
	}
	for k, v := range ref {
		got, ok := m.Get(k)
		if !ok || got != v {
			t.Fatalf("get %v: got %v, %v, want %v", k, got, ok, v)
		}
	}
	// Range must visit exactly the reference entries, in key order.
	var keys []tree.ChunkId
	m.Range(func(k tree.ChunkId, v int) bool {
		if ref[k] != v {
			t.Fatalf("range %v: got %v, want %v", k, v, ref[k])
		}
		keys = append(keys, k)
		return true
	})
	if len(keys) != len(ref) {
		t.Fatalf("range visited %v entries, want %v", len(keys), len(ref))
	}
	for i := 1; i < len(keys); i++ {
		if !keys[i-1].Less(keys[i]) {
			t.Fatalf("range out of order at %v", i)
		}
	}
}

func TestInsertGetDelete(t *testing.T) {
	rng := mrand.New(mrand.NewSource(1))
	m := New[int]()
	ref := make(map[tree.ChunkId]int)

	for i := 0; i < 2000; i++ {
		k := key(uint64(rng.Intn(500)))
		switch rng.Intn(3) {
		case 0, 1:
			m = m.Insert(k, i)
			ref[k] = i
		case 2:
			m = m.Delete(k)
			delete(ref, k)
		}
	}
	checkAgainst(t, m, ref)
}

func TestFloor(t *testing.T) {
	m := New[int]()
	for _, lo := range []uint64{10, 20, 30} {
		m = m.Insert(key(lo), int(lo))
	}

	if _, _, ok := m.Floor(key(9)); ok {
		t.Fatal("floor below min should be absent")
	}
	for _, tc := range []struct{ query, want uint64 }{
		{10, 10}, {15, 10}, {20, 20}, {29, 20}, {30, 30}, {1000, 30},
	} {
		k, v, ok := m.Floor(key(tc.query))
		if !ok || k != key(tc.want) || v != int(tc.want) {
			t.Fatalf("floor(%v): got %v, %v, %v", tc.query, k, v, ok)
		}
	}
}

func TestPersistence(t *testing.T) {
	m := New[int]()
	for i := 0; i < 100; i++ {
		m = m.Insert(key(uint64(i)), i)
	}
	snapshot := m

	for i := 0; i < 100; i += 2 {
		m = m.Delete(key(uint64(i)))
	}
	m = m.Insert(key(1000), 1000)

	if snapshot.Len() != 100 {
		t.Fatalf("snapshot len changed: %v", snapshot.Len())
	}
	for i := 0; i < 100; i++ {
		if v, ok := snapshot.Get(key(uint64(i))); !ok || v != i {
			t.Fatalf("snapshot lost entry %v", i)
		}
	}
	if _, ok := snapshot.Get(key(1000)); ok {
		t.Fatal("snapshot sees later insert")
	}
}

func TestDeleteAbsent(t *testing.T) {
	m := New[int]().Insert(key(1), 1)
	if m2 := m.Delete(key(2)); m2 != m {
		t.Fatal("deleting absent key should return receiver")
	}
}

func collectDiff(old, new *Map[int]) []Edit[int] {
	var edits []Edit[int]
	Diff(old, new, eqInt, func(e Edit[int]) { edits = append(edits, e) })
	return edits
}

func diffBrute(old, new *Map[int]) []Edit[int] {
	seen := make(map[tree.ChunkId][2]*int)
	old.Range(func(k tree.ChunkId, v int) bool {
		vCopy := v
		seen[k] = [2]*int{&vCopy, nil}
		return true
	})
	new.Range(func(k tree.ChunkId, v int) bool {
		vCopy := v
		pair := seen[k]
		pair[1] = &vCopy
		seen[k] = pair
		return true
	})

	var keys []tree.ChunkId
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	var edits []Edit[int]
	for _, k := range keys {
		pair := seen[k]
		switch {
		case pair[1] == nil:
			edits = append(edits, Edit[int]{Kind: EditRemove, Key: k, Old: *pair[0]})
		case pair[0] == nil:
			edits = append(edits, Edit[int]{Kind: EditAdd, Key: k, New: *pair[1]})
		case *pair[0] != *pair[1]:
			edits = append(edits, Edit[int]{Kind: EditUpdate, Key: k, Old: *pair[0], New: *pair[1]})
		}
	}
	return edits
}

func TestDiffRandom(t *testing.T) {
	rng := mrand.New(mrand.NewSource(7))

	for round := 0; round < 50; round++ {
		old := New[int]()
		for i := 0; i < 200; i++ {
			old = old.Insert(key(uint64(rng.Intn(300))), rng.Intn(10))
		}

		new := old
		for i := 0; i < 30; i++ {
			k := key(uint64(rng.Intn(300)))
			if rng.Intn(2) == 0 {
				new = new.Insert(k, rng.Intn(10)+10)
			} else {
				new = new.Delete(k)
			}
		}

		got := collectDiff(old, new)
		want := diffBrute(old, new)
		if len(got) != len(want) {
			t.Fatalf("round %v: %v edits, want %v", round, len(got), len(want))
		}
		for i := range got {
			g, w := got[i], want[i]
			if g.Kind != w.Kind || g.Key != w.Key || g.Old != w.Old || g.New != w.New {
				t.Fatalf("round %v edit %v: got %+v, want %+v", round, i, g, w)
			}
		}
	}
}

func TestDiffIdentical(t *testing.T) {
	m := New[int]()
	for i := 0; i < 100; i++ {
		m = m.Insert(key(uint64(i)), i)
	}
	if edits := collectDiff(m, m); len(edits) != 0 {
		t.Fatalf("diff of identical maps produced %v edits", len(edits))
	}
}

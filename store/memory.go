package store

import (
	"errors"

	"github.com/seqtree/forest/tree"
)

func dup(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// MemoryStore implements ChunkStore over an in-memory map.
type MemoryStore struct {
	Data map[tree.ChunkId][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{Data: make(map[tree.ChunkId][]byte)}
}

func (m *MemoryStore) BatchGet(ids []tree.ChunkId) (map[tree.ChunkId][]byte, error) {
	out := make(map[tree.ChunkId][]byte)
	for _, id := range ids {
		if d, ok := m.Data[id]; ok {
			out[id] = dup(d)
		}
	}
	return out, nil
}

func (m *MemoryStore) BatchPut(data map[tree.ChunkId][]byte) error {
	for id, d := range data {
		if d == nil {
			return errors.New("unable to store nil chunk")
		}
		m.Data[id] = dup(d)
	}
	return nil
}

func (m *MemoryStore) Delete(id tree.ChunkId) error {
	delete(m.Data, id)
	return nil
}

func (m *MemoryStore) List() ([]tree.ChunkId, error) {
	out := make([]tree.ChunkId, 0, len(m.Data))
	for id := range m.Data {
		out = append(out, id)
	}
	return out, nil
}

// Package store persists chunks outside a forest. It defines a small
// batch-oriented key-value interface, a binary codec for both chunk kinds,
// and helpers for saving and loading whole forests.
//
// The encoding is a storage convenience with no compatibility promise across
// versions.
package store

import (
	"github.com/seqtree/forest/forest"
	"github.com/seqtree/forest/tree"
)

// ChunkStore is the interface for an internally-consistent store of encoded
// chunks keyed by chunk id.
type ChunkStore interface {
	BatchGet(ids []tree.ChunkId) (map[tree.ChunkId][]byte, error)
	BatchPut(data map[tree.ChunkId][]byte) error
	Delete(id tree.ChunkId) error
	List() ([]tree.ChunkId, error)
}

// Save writes every chunk of f to s.
func Save(f *forest.Forest, s ChunkStore) error {
	data := make(map[tree.ChunkId][]byte, f.Len())
	f.Range(func(id tree.ChunkId, c forest.Chunk) bool {
		data[id] = MarshalChunk(c)
		return true
	})
	return s.BatchPut(data)
}

// Load reads every chunk in s into a fresh forest. Chunks with identical
// schemas share one decoded schema instance.
func Load(s ChunkStore) (*forest.Forest, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}
	data, err := s.BatchGet(ids)
	if err != nil {
		return nil, err
	}

	dec := NewDecoder()
	f := forest.New()
	for _, id := range ids {
		raw, ok := data[id]
		if !ok {
			continue
		}
		c, err := dec.UnmarshalChunk(raw)
		if err != nil {
			return nil, err
		}
		f.Insert(id, c)
	}
	return f, nil
}

package main

import (
	"sync/atomic"
	"time"

	"github.com/seqtree/forest/forest"
	"github.com/seqtree/forest/store"
	"github.com/seqtree/forest/tree"
)

// InsertRequest asks the inserter to install one chunk.
type InsertRequest struct {
	Id    tree.ChunkId
	Chunk forest.Chunk
	Raw   []byte // codec encoding, persisted as-is

	Done chan error
}

// inserter owns the canonical forest. It applies inserts one at a time,
// persists them, and publishes an O(1) clone for readers after each change.
// Readers never see a half-applied state: they always work against the last
// published snapshot.
func inserter(f *forest.Forest, chunks store.ChunkStore, snapshot *atomic.Pointer[forest.Forest], ch <-chan InsertRequest) {
	for req := range ch {
		start := time.Now()
		err := chunks.BatchPut(map[tree.ChunkId][]byte{req.Id: req.Raw})
		if err == nil {
			f.Insert(req.Id, req.Chunk)
			f.ParentData()
			snapshot.Store(f.Clone())
		}
		insertDur.Observe(float64(time.Since(start).Milliseconds()))
		if err == nil {
			insertOps.WithLabelValues("true").Inc()
		} else {
			insertOps.WithLabelValues("false").Inc()
		}

		req.Done <- err
	}
}

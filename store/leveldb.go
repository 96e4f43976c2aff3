package store

import (
	"fmt"
	"strconv"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/seqtree/forest/tree"
)

// LDBStore implements ChunkStore over a LevelDB database. Chunks live under
// "c"-prefixed hex keys.
type LDBStore struct {
	conn *leveldb.DB
}

func NewLDBStore(file string) (*LDBStore, error) {
	conn, err := leveldb.OpenFile(file, nil)
	if errors.IsCorrupted(err) {
		conn, err = leveldb.RecoverFile(file, nil)
	}
	if err != nil {
		return nil, err
	}
	return &LDBStore{conn: conn}, nil
}

func (s *LDBStore) Close() error { return s.conn.Close() }

func chunkKey(id tree.ChunkId) []byte {
	return []byte("c" + id.String())
}

func parseChunkKey(key []byte) (tree.ChunkId, error) {
	if len(key) != 33 || key[0] != 'c' {
		return tree.ChunkId{}, fmt.Errorf("malformed chunk key %q", key)
	}
	hi, err := strconv.ParseUint(string(key[1:17]), 16, 64)
	if err != nil {
		return tree.ChunkId{}, fmt.Errorf("malformed chunk key %q: %v", key, err)
	}
	lo, err := strconv.ParseUint(string(key[17:33]), 16, 64)
	if err != nil {
		return tree.ChunkId{}, fmt.Errorf("malformed chunk key %q: %v", key, err)
	}
	return tree.ChunkId(tree.NewNodeId(hi, lo)), nil
}

func (s *LDBStore) BatchGet(ids []tree.ChunkId) (map[tree.ChunkId][]byte, error) {
	out := make(map[tree.ChunkId][]byte)
	for _, id := range ids {
		value, err := s.conn.Get(chunkKey(id), nil)
		if err == leveldb.ErrNotFound {
			continue
		} else if err != nil {
			return nil, err
		}
		out[id] = value
	}
	return out, nil
}

func (s *LDBStore) BatchPut(data map[tree.ChunkId][]byte) error {
	b := new(leveldb.Batch)
	for id, d := range data {
		b.Put(chunkKey(id), d)
	}
	return s.conn.Write(b, nil)
}

func (s *LDBStore) Delete(id tree.ChunkId) error {
	return s.conn.Delete(chunkKey(id), nil)
}

func (s *LDBStore) List() ([]tree.ChunkId, error) {
	var out []tree.ChunkId
	iter := s.conn.NewIterator(util.BytesPrefix([]byte("c")), nil)
	defer iter.Release()
	for iter.Next() {
		id, err := parseChunkKey(iter.Key())
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, iter.Error()
}

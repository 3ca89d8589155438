// Package store persists chunk sequences in a bbolt file so that unchanged
// documents need not be partitioned again after a restart.
package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var (
	bucketChunkSets = []byte("chunk_sets")
	bucketMeta      = []byte("meta")
)

// BoltArchive implements port.ChunkArchive on bbolt. Each key is a digest of
// a file's path and contents; the value is its full chunk sequence.
type BoltArchive struct {
	db *bbolt.DB
}

var _ port.ChunkArchive = (*BoltArchive)(nil)

type chunkSet struct {
	Chunks []domain.Chunk `json:"chunks"`
}

func NewBoltArchive(path string) (*BoltArchive, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketChunkSets, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltArchive{db: db}, nil
}

func (a *BoltArchive) DB() *bbolt.DB {
	return a.db
}

// Get returns the chunks archived under digest. Metadata numbers come back
// as float64 after the JSON round trip.
func (a *BoltArchive) Get(digest string) ([]domain.Chunk, bool, error) {
	var set chunkSet
	var found bool
	err := a.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChunkSets).Get([]byte(digest))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &set)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read chunk set %s: %w", digest, err)
	}
	return set.Chunks, found, nil
}

func (a *BoltArchive) Put(digest string, chunks []domain.Chunk) error {
	data, err := json.Marshal(chunkSet{Chunks: chunks})
	if err != nil {
		return err
	}
	return a.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunkSets).Put([]byte(digest), data)
	})
}

func (a *BoltArchive) Delete(digest string) error {
	return a.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunkSets).Delete([]byte(digest))
	})
}

// Len returns the number of archived chunk sets.
func (a *BoltArchive) Len() (int, error) {
	var n int
	err := a.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketChunkSets).Stats().KeyN
		return nil
	})
	return n, err
}

// Clear removes every archived chunk set, keeping schema metadata.
func (a *BoltArchive) Clear() error {
	return a.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketChunkSets); err != nil && err != bbolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(bucketChunkSets)
		return err
	})
}

func (a *BoltArchive) Close() error {
	return a.db.Close()
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"repoindex/config"
	"repoindex/internal/domain"
)

// ErrNotFound is returned when a memory id is unknown.
var ErrNotFound = errors.New("memory not found")

var (
	bucketMemories = []byte("memories")
	bucketChunkIDs = []byte("chunk_ids")
	bucketMeta     = []byte("meta")
)

// BoltStore is a durable MemoryStore backed by a single bbolt file. Each
// Write is its own transaction.
type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	if err := config.EnsureDir(path); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketMemories, bucketChunkIDs, bucketMeta} {
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

	s := &BoltStore{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Write stores record under a new sequential id and returns that id. When
// the record metadata carries a chunk_id, the id is also indexed by it.
func (s *BoltStore) Write(ctx context.Context, record domain.MemoryRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var id string
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMemories)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		id = fmt.Sprintf("mem-%08d", seq)
		record.ID = id

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to encode memory: %w", err)
		}
		if err := b.Put([]byte(id), data); err != nil {
			return err
		}

		if chunkID, ok := record.Metadata["chunk_id"].(string); ok && chunkID != "" {
			return tx.Bucket(bucketChunkIDs).Put([]byte(chunkID), []byte(id))
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *BoltStore) Get(id string) (domain.MemoryRecord, error) {
	var record domain.MemoryRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMemories).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &record)
	})
	return record, err
}

// FindByChunkID returns the most recent memory written for chunkID.
func (s *BoltStore) FindByChunkID(chunkID string) (domain.MemoryRecord, error) {
	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketChunkIDs).Get([]byte(chunkID))
		if v == nil {
			return fmt.Errorf("%w: chunk %s", ErrNotFound, chunkID)
		}
		id = string(v)
		return nil
	})
	if err != nil {
		return domain.MemoryRecord{}, err
	}
	return s.Get(id)
}

func (s *BoltStore) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketMemories).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

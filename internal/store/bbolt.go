package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kilupskalvis/vhist/internal/models"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketBatches = []byte("batches")
	bucketHeaders = []byte("batch_headers")
)

// BboltJournal implements Journal using bbolt.
// Batches are keyed by their big-endian sequence number so cursor order is sequence order.
type BboltJournal struct {
	db *bolt.DB
}

// NewBboltJournal opens or creates a bbolt journal at the given path.
func NewBboltJournal(dbPath string) (*BboltJournal, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketBatches, bucketHeaders} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &BboltJournal{db: db}, nil
}

// Close releases the bbolt database.
func (j *BboltJournal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

// Append stores a batch under the bucket's next sequence number.
func (j *BboltJournal) Append(_ context.Context, b *models.Batch) (uint64, error) {
	if err := checkBatch(b); err != nil {
		return 0, err
	}

	err := j.db.Update(func(tx *bolt.Tx) error {
		batches := tx.Bucket(bucketBatches)
		seq, err := batches.NextSequence()
		if err != nil {
			return fmt.Errorf("next sequence: %w", err)
		}

		b.Seq = seq
		b.AppendedAt = time.Now().UTC()

		data, err := json.Marshal(b)
		if err != nil {
			return fmt.Errorf("marshal batch: %w", err)
		}
		if err := batches.Put(seqKey(seq), data); err != nil {
			return fmt.Errorf("store batch: %w", err)
		}

		header, err := json.Marshal(b.Header())
		if err != nil {
			return fmt.Errorf("marshal batch header: %w", err)
		}
		return tx.Bucket(bucketHeaders).Put(seqKey(seq), header)
	})
	if err != nil {
		return 0, err
	}
	return b.Seq, nil
}

// Get retrieves a batch by sequence number. Returns ErrNotFound if missing.
func (j *BboltJournal) Get(_ context.Context, seq uint64) (*models.Batch, error) {
	var batch *models.Batch
	err := j.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketBatches).Get(seqKey(seq))
		if data == nil {
			return ErrNotFound
		}
		batch = &models.Batch{}
		return json.Unmarshal(data, batch)
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// List returns all batch headers in sequence order.
func (j *BboltJournal) List(_ context.Context) ([]models.BatchHeader, error) {
	var headers []models.BatchHeader
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHeaders).ForEach(func(_, v []byte) error {
			var h models.BatchHeader
			if err := json.Unmarshal(v, &h); err != nil {
				return fmt.Errorf("unmarshal batch header: %w", err)
			}
			headers = append(headers, h)
			return nil
		})
	})
	return headers, err
}

// Replay decodes and hands every batch to fn in sequence order.
// fn runs inside a read transaction and must not write to the journal.
func (j *BboltJournal) Replay(ctx context.Context, fn func(*models.Batch) error) error {
	return j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketBatches).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var b models.Batch
			if err := json.Unmarshal(v, &b); err != nil {
				return fmt.Errorf("unmarshal batch %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if err := fn(&b); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of journaled batches.
func (j *BboltJournal) Count(_ context.Context) (int, error) {
	var count int
	err := j.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(bucketBatches).Stats().KeyN
		return nil
	})
	return count, err
}

package store

import (
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/persist"
)

var reviewsBucket = []byte("reviews")

// DefaultOpenTimeout bounds how long Open waits for the file lock.
const DefaultOpenTimeout = 5 * time.Second

// BoltStore persists records in a bbolt file. Each record is stored as
// LZ4-compressed JSON under its ID.
type BoltStore struct {
	db    *bbolt.DB
	codec persist.Codec
}

// OpenBolt opens or creates the database at path.
func OpenBolt(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: DefaultOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("open review store %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, bucketErr := tx.CreateBucketIfNotExists(reviewsBucket)

		return bucketErr
	})
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("create reviews bucket: %w", err)
	}

	return &BoltStore{
		db:    db,
		codec: persist.NewLZ4Codec(&persist.JSONCodec{}),
	}, nil
}

// Path returns the database file path.
func (b *BoltStore) Path() string {
	return b.db.Path()
}

// Create implements Store.
func (b *BoltStore) Create(rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}

	stored := rec.Clone()
	stamp(stored, time.Now().UTC())

	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(reviewsBucket)
		if bucket.Get([]byte(rec.ID)) != nil {
			return fmt.Errorf("%w: %s", ErrExists, rec.ID)
		}

		return b.put(bucket, stored)
	})

	return closedErr(err)
}

// Get implements Store.
func (b *BoltStore) Get(id string) (*Record, error) {
	var rec *Record

	err := b.db.View(func(tx *bbolt.Tx) error {
		var getErr error

		rec, getErr = b.get(tx.Bucket(reviewsBucket), id)

		return getErr
	})
	if err != nil {
		return nil, closedErr(err)
	}

	return rec, nil
}

// Update implements Store.
func (b *BoltStore) Update(id string, fn func(*Record) error) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(reviewsBucket)

		rec, err := b.get(bucket, id)
		if err != nil {
			return err
		}

		err = fn(rec)
		if err != nil {
			return err
		}

		rec.ID = id
		stamp(rec, time.Now().UTC())

		return b.put(bucket, rec)
	})

	return closedErr(err)
}

// AppendFindings implements Store.
func (b *BoltStore) AppendFindings(id string, findings []finding.Finding) error {
	return b.Update(id, func(rec *Record) error {
		rec.Findings = append(rec.Findings, findings...)

		return nil
	})
}

// UpdateFinding implements Store.
func (b *BoltStore) UpdateFinding(id string, number int, fn func(*finding.Finding) error) (finding.Finding, error) {
	return updateFinding(b, id, number, fn)
}

// List implements Store.
func (b *BoltStore) List() ([]Record, error) {
	var out []Record

	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(reviewsBucket).ForEach(func(key, value []byte) error {
			var rec Record

			err := persist.Unmarshal(b.codec, value, &rec)
			if err != nil {
				return fmt.Errorf("decode review %s: %w", key, err)
			}

			out = append(out, rec.Brief())

			return nil
		})
	})
	if err != nil {
		return nil, closedErr(err)
	}

	sortNewestFirst(out)

	return out, nil
}

// Ping implements Store.
func (b *BoltStore) Ping() error {
	err := b.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(reviewsBucket) == nil {
			return errors.New("reviews bucket missing")
		}

		return nil
	})
	return closedErr(err)
}

// Close implements Store.
func (b *BoltStore) Close() error {
	return b.db.Close()
}

func (b *BoltStore) get(bucket *bbolt.Bucket, id string) (*Record, error) {
	data := bucket.Get([]byte(id))
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	var rec Record

	err := persist.Unmarshal(b.codec, data, &rec)
	if err != nil {
		return nil, fmt.Errorf("decode review %s: %w", id, err)
	}

	return &rec, nil
}

func (b *BoltStore) put(bucket *bbolt.Bucket, rec *Record) error {
	data, err := persist.Marshal(b.codec, rec)
	if err != nil {
		return fmt.Errorf("encode review %s: %w", rec.ID, err)
	}

	return bucket.Put([]byte(rec.ID), data)
}

// closedErr reports use of a closed database as ErrClosed.
func closedErr(err error) error {
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}

	return err
}

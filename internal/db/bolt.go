package db

import (
	"time"

	bolt "go.etcd.io/bbolt"
)

var kvBucket = []byte("kv")

// Bolt is a BoltDB backed KV keeping every key in a single bucket.
type Bolt struct {
	db *bolt.DB
}

func NewBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(kvBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) View(fn func(Tx) error) error {
	return b.db.View(func(tx *bolt.Tx) error {
		return fn(&boltTx{bucket: tx.Bucket(kvBucket)})
	})
}

func (b *Bolt) Update(fn func(Tx) error) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return fn(&boltTx{bucket: tx.Bucket(kvBucket)})
	})
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

type boltTx struct {
	bucket *bolt.Bucket
}

func (t *boltTx) Get(key string) (string, bool, error) {
	v := t.bucket.Get([]byte(key))
	if v == nil {
		return "", false, nil
	}
	// v is only valid for the life of the transaction; string() copies it.
	return string(v), true, nil
}

func (t *boltTx) Put(key, value string) error {
	return t.bucket.Put([]byte(key), []byte(value))
}

func (t *boltTx) Delete(key string) error {
	return t.bucket.Delete([]byte(key))
}

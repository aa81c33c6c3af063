package cmd

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
)

const verdictBucket = "verdicts"

// Verdict is what verifyCmd caches per archive, keyed by the SHA-256 of the
// archive's encrypted 0xC00-byte header block (changes outside the header
// block do not change the key), adapted from the teacher's
// db/persistentDB.go generic gob-encoded bucket store.
type Verdict struct {
	FileName      string
	SignatureMain bool
	SignatureAcid string
	PartitionFail [4]string
	CheckedAt     time.Time
}

type verdictCache struct {
	db *bolt.DB
}

func openVerdictCache(baseFolder string) (*verdictCache, error) {
	db, err := bolt.Open(filepath.Join(baseFolder, "ncatool.db"), 0600, &bolt.Options{Timeout: time.Minute})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(verdictBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &verdictCache{db: db}, nil
}

func (c *verdictCache) Close() error { return c.db.Close() }

func (c *verdictCache) Put(fileHash string, v Verdict) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(verdictBucket))
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(v); err != nil {
			return err
		}
		return b.Put([]byte(fileHash), buf.Bytes())
	})
}

func (c *verdictCache) Get(fileHash string) (Verdict, bool, error) {
	var out Verdict
	found := false
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(verdictBucket))
		raw := b.Get([]byte(fileHash))
		if raw == nil {
			return nil
		}
		found = true
		return gob.NewDecoder(bytes.NewReader(raw)).Decode(&out)
	})
	if err != nil {
		return out, false, fmt.Errorf("verdict cache: %w", err)
	}
	return out, found, nil
}

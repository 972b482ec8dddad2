package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketCounters = []byte("ratelimit")

// Bolt keeps counters in a bbolt file so they survive restarts of a
// single-instance deployment.
type Bolt struct {
	cfg Config
	db  *bbolt.DB
	now func() time.Time
}

func OpenBolt(path string, cfg Config) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("ratelimit: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCounters)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ratelimit: create bucket: %w", err)
	}
	return &Bolt{cfg: cfg.withDefaults(), db: db, now: time.Now}, nil
}

func (b *Bolt) WithClock(now func() time.Time) *Bolt {
	b.now = now
	return b
}

func (b *Bolt) Close() error { return b.db.Close() }

func (b *Bolt) Allow(_ context.Context, key string) (bool, error) {
	var allowed bool
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCounters)
		var c counter
		if raw := bucket.Get([]byte(key)); raw != nil {
			if err := json.Unmarshal(raw, &c); err != nil {
				return fmt.Errorf("decode counter: %w", err)
			}
		}
		allowed = c.hit(b.now(), b.cfg)
		raw, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("encode counter: %w", err)
		}
		return bucket.Put([]byte(key), raw)
	})
	if err != nil {
		return false, fmt.Errorf("ratelimit: %w", err)
	}
	return allowed, nil
}

func (b *Bolt) Cleanup(_ context.Context) error {
	now := b.now()
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketCounters)
		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var c counter
			if err := json.Unmarshal(v, &c); err != nil || !now.Before(c.ResetAt) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *Bolt) Len() int {
	n := 0
	_ = b.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketCounters).Stats().KeyN
		return nil
	})
	return n
}

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ChurchLedger/internal/config"

	"go.etcd.io/bbolt"
)

var bucketDrafts = []byte("drafts")

// BoltStore persists drafts so a conversation survives a restart.
type BoltStore struct {
	db  *bbolt.DB
	ttl time.Duration
	now func() time.Time
}

func OpenBoltStore(path string, ttl time.Duration) (*BoltStore, error) {
	if ttl <= 0 {
		ttl = config.DefaultDraftTTL
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("session: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("session: open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDrafts)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session: create bucket: %w", err)
	}
	return &BoltStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *BoltStore) WithClock(now func() time.Time) *BoltStore {
	s.now = now
	return s
}

func (s *BoltStore) Close() error { return s.db.Close() }

func chatKey(chatID int64) []byte {
	return []byte(strconv.FormatInt(chatID, 10))
}

func (s *BoltStore) Get(_ context.Context, chatID int64) (*Draft, bool, error) {
	var d *Draft
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketDrafts).Get(chatKey(chatID))
		if raw == nil {
			return nil
		}
		d = &Draft{}
		return json.Unmarshal(raw, d)
	})
	if err != nil {
		return nil, false, fmt.Errorf("session: get draft: %w", err)
	}
	if d == nil || !s.now().Before(d.ExpiresAt) {
		return nil, false, nil
	}
	return d, true, nil
}

func (s *BoltStore) Put(_ context.Context, d *Draft) error {
	cp := *d
	cp.ExpiresAt = s.now().Add(s.ttl)
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("session: encode draft: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDrafts).Put(chatKey(d.ChatID), raw)
	})
}

func (s *BoltStore) Delete(_ context.Context, chatID int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDrafts).Delete(chatKey(chatID))
	})
}

func (s *BoltStore) CleanupExpired(_ context.Context) error {
	now := s.now()
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDrafts)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var d Draft
			if err := json.Unmarshal(v, &d); err != nil || !now.Before(d.ExpiresAt) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

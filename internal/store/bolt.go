// Package store persists the guard leases and the vendor tokens.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/clambin/opendoor/internal/ewelink"
	"github.com/clambin/opendoor/internal/guard"
	"go.etcd.io/bbolt"
	"golang.org/x/oauth2"
	"time"
)

var (
	leaseBucket = []byte("leases")
	tokenBucket = []byte("tokens")
	tokenKey    = []byte("ewelink")
)

var (
	_ guard.Store        = &Bolt{}
	_ ewelink.TokenStore = &Bolt{}
)

// Bolt stores leases and tokens in a local bbolt database.
type Bolt struct {
	db *bbolt.DB
}

// OpenBolt opens (or creates) the database at path.
func OpenBolt(path string) (*Bolt, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{leaseBucket, tokenBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init %s: %w", path, err)
	}
	return &Bolt{db: db}, nil
}

func (b *Bolt) Close() error {
	return b.db.Close()
}

type lease struct {
	AcquiredAt time.Time `json:"acquiredAt"`
}

func (b *Bolt) Acquire(_ context.Context, key string, now time.Time, expiry time.Duration) (bool, error) {
	var granted bool
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(leaseBucket)
		if v := bucket.Get([]byte(key)); v != nil {
			var current lease
			if err := json.Unmarshal(v, &current); err == nil && now.Sub(current.AcquiredAt) < expiry {
				return nil
			}
		}
		v, err := json.Marshal(lease{AcquiredAt: now})
		if err != nil {
			return err
		}
		granted = true
		return bucket.Put([]byte(key), v)
	})
	return granted && err == nil, err
}

func (b *Bolt) Release(_ context.Context, key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(leaseBucket).Delete([]byte(key))
	})
}

// LoadToken returns the saved token, or nil if no token was saved yet.
func (b *Bolt) LoadToken() (*oauth2.Token, error) {
	var token *oauth2.Token
	err := b.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(tokenBucket).Get(tokenKey)
		if v == nil {
			return nil
		}
		token = new(oauth2.Token)
		return json.Unmarshal(v, token)
	})
	return token, err
}

func (b *Bolt) SaveToken(token *oauth2.Token) error {
	v, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(tokenBucket).Put(tokenKey, v)
	})
}

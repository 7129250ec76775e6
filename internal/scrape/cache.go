package scrape

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const pageKeyPrefix = "page:"

// PageCache keeps fetched page bodies keyed by URL so reruns do not hit the site again.
type PageCache struct {
	db  *badger.DB
	ttl time.Duration
}

// OpenPageCache opens (or creates) a cache in dir. Entries expire after ttl; zero keeps them forever.
func OpenPageCache(dir string, ttl time.Duration) (*PageCache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open page cache: %w", err)
	}
	return &PageCache{db: db, ttl: ttl}, nil
}

// Get returns the cached body for url, if any.
func (c *PageCache) Get(url string) ([]byte, bool, error) {
	var body []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(pageKeyPrefix + url))
		if err != nil {
			return err
		}
		body, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached page: %w", err)
	}
	return body, true, nil
}

// Put stores body for url.
func (c *PageCache) Put(url string, body []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(pageKeyPrefix+url), body)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("cache page: %w", err)
		}
		return nil
	})
}

func (c *PageCache) Close() error {
	return c.db.Close()
}

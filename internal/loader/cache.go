package loader

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

var cacheKeyPrefix = []byte("h/")

// Cache stores fetched file contents keyed by content hash.
type Cache struct {
	db  *badger.DB
	log *zap.Logger
}

// OpenCache opens (or creates) a badger-backed cache in dir. An empty dir
// keeps everything in memory.
func OpenCache(dir string, log *zap.Logger) (*Cache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{log.Sugar()})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open cache %q: %w", dir, err)
	}
	return &Cache{db: db, log: log}, nil
}

// Get returns the cached bytes for hash and whether they were present.
func (c *Cache) Get(hash string) ([]byte, bool, error) {
	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(hash))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", hash, err)
	}
	return data, true, nil
}

// Put stores data under hash.
func (c *Cache) Put(hash string, data []byte) error {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(cacheKey(hash), data)
	})
	if err != nil {
		return fmt.Errorf("cache put %s: %w", hash, err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(hash string) []byte {
	key := make([]byte, 0, len(cacheKeyPrefix)+len(hash))
	key = append(key, cacheKeyPrefix...)
	return append(key, hash...)
}

// badgerLogger routes badger's internal logging through zap.
type badgerLogger struct {
	s *zap.SugaredLogger
}

func (l badgerLogger) Errorf(f string, v ...interface{})   { l.s.Errorf(f, v...) }
func (l badgerLogger) Warningf(f string, v ...interface{}) { l.s.Warnf(f, v...) }
func (l badgerLogger) Infof(f string, v ...interface{})    { l.s.Debugf(f, v...) }
func (l badgerLogger) Debugf(f string, v ...interface{})   { l.s.Debugf(f, v...) }

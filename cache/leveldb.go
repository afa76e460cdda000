package cache

import (
	"bytes"

	"github.com/jmhodges/levigo"
	"github.com/pkg/errors"
)

type LevelDB struct {
	db        *levigo.DB
	cache     *levigo.Cache
	wo        *levigo.WriteOptions
	ro        *levigo.ReadOptions
	batchSize int
}

func openLevelDBStore(path string, opts *storeOptions) (*LevelDB, error) {
	o := opts.LevelDB
	lopts := levigo.NewOptions()
	defer lopts.Close()
	lopts.SetCreateIfMissing(true)

	c := &LevelDB{batchSize: opts.BatchSize}
	if o.CacheSizeM > 0 {
		c.cache = levigo.NewLRUCache(o.CacheSizeM * 1024 * 1024)
		lopts.SetCache(c.cache)
	}
	if o.MaxOpenFiles > 0 {
		lopts.SetMaxOpenFiles(o.MaxOpenFiles)
	}
	if o.BlockRestartInterval > 0 {
		lopts.SetBlockRestartInterval(o.BlockRestartInterval)
	}
	if o.WriteBufferSizeM > 0 {
		lopts.SetWriteBufferSize(o.WriteBufferSizeM * 1024 * 1024)
	}
	if o.BlockSizeK > 0 {
		lopts.SetBlockSize(o.BlockSizeK * 1024)
	}

	db, err := levigo.Open(path, lopts)
	if err != nil {
		if c.cache != nil {
			c.cache.Close()
		}
		return nil, errors.Wrapf(err, "opening leveldb store %s", path)
	}
	c.db = db
	c.wo = levigo.NewWriteOptions()
	c.ro = levigo.NewReadOptions()
	return c, nil
}

func (c *LevelDB) Get(key []byte) ([]byte, error) {
	data, err := c.db.Get(c.ro, key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, NotFound
	}
	return data, nil
}

func (c *LevelDB) Write(fn func(put PutFunc) error) error {
	batch := levigo.NewWriteBatch()
	defer func() { batch.Close() }()

	n := 0
	put := func(key, value []byte) error {
		batch.Put(key, value)
		n++
		if c.batchSize > 0 && n >= c.batchSize {
			if err := c.db.Write(c.wo, batch); err != nil {
				return err
			}
			batch.Clear()
			n = 0
		}
		return nil
	}
	if err := fn(put); err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	return c.db.Write(c.wo, batch)
}

func (c *LevelDB) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	ro := levigo.NewReadOptions()
	defer ro.Close()
	ro.SetFillCache(false)
	it := c.db.NewIterator(ro)
	defer it.Close()

	for it.Seek(prefix); it.Valid(); it.Next() {
		key := it.Key()
		if !bytes.HasPrefix(key, prefix) {
			break
		}
		if err := fn(key, it.Value()); err != nil {
			return err
		}
	}
	return it.GetError()
}

func (c *LevelDB) Close() error {
	if c.ro != nil {
		c.ro.Close()
		c.ro = nil
	}
	if c.wo != nil {
		c.wo.Close()
		c.wo = nil
	}
	if c.db != nil {
		c.db.Close()
		c.db = nil
	}
	if c.cache != nil {
		c.cache.Close()
		c.cache = nil
	}
	return nil
}

package cache

import (
	"strings"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"

	"github.com/omniscale/osmfilter/log"
)

type BadgerDB struct {
	*badger.DB
	batchSize int
}

func openBadgerStore(path string, opts *storeOptions) (*BadgerDB, error) {
	bopts := badger.DefaultOptions
	bopts.Dir = path
	bopts.ValueDir = path
	bopts.Logger = badgerLogger{}
	bopts.SyncWrites = opts.Badger.SyncWrites
	if opts.Badger.ValueLogFileSize > 0 {
		bopts.ValueLogFileSize = opts.Badger.ValueLogFileSize
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening badger store %s", path)
	}
	return &BadgerDB{DB: db, batchSize: opts.BatchSize}, nil
}

func (db *BadgerDB) Get(key []byte) ([]byte, error) {
	var data []byte
	err := db.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return NotFound
		} else if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	return data, err
}

func (db *BadgerDB) Write(fn func(put PutFunc) error) error {
	txn := db.DB.NewTransaction(true)
	defer func() { txn.Discard() }()

	n := 0
	put := func(key, value []byte) error {
		// the transaction references key and value until commit
		key = append([]byte(nil), key...)
		value = append([]byte(nil), value...)
		if db.batchSize > 0 && n >= db.batchSize {
			if err := txn.Commit(); err != nil {
				return err
			}
			txn = db.DB.NewTransaction(true)
			n = 0
		}
		err := txn.Set(key, value)
		if err == badger.ErrTxnTooBig {
			if err := txn.Commit(); err != nil {
				return err
			}
			txn = db.DB.NewTransaction(true)
			n = 0
			err = txn.Set(key, value)
		}
		if err != nil {
			return err
		}
		n++
		return nil
	}
	if err := fn(put); err != nil {
		return err
	}
	return txn.Commit()
}

func (db *BadgerDB) Iterate(prefix []byte, fn func(key, value []byte) error) error {
	return db.DB.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.Key()
			err := item.Value(func(val []byte) error {
				return fn(key, val)
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// badgerLogger sends badger messages to our log. Info messages are only
// shown in verbose mode.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	log.Printf("[error] badger: "+strings.TrimSpace(format), args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	log.Printf("[warn] badger: "+strings.TrimSpace(format), args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	log.Printf("[debug] badger: "+strings.TrimSpace(format), args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	log.Printf("[debug] badger: "+strings.TrimSpace(format), args...)
}

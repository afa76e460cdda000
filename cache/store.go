package cache

import (
	bin "encoding/binary"
	"errors"
	"fmt"
)

var (
	NotFound = errors.New("not found")
)

// Backend selects the key/value store of new cache artifacts.
type Backend string

const (
	BadgerBackend  Backend = "badger"
	LevelDBBackend Backend = "leveldb"
)

const DefaultBackend = BadgerBackend

func ParseBackend(s string) (Backend, error) {
	switch Backend(s) {
	case "":
		return DefaultBackend, nil
	case BadgerBackend, LevelDBBackend:
		return Backend(s), nil
	}
	return "", fmt.Errorf("unknown cache backend %q (badger or leveldb)", s)
}

// PutFunc stores value for key. Key and value are not retained after the
// call returns.
type PutFunc func(key, value []byte) error

// Store is an ordered key/value store.
type Store interface {
	// Get returns NotFound for missing keys.
	Get(key []byte) ([]byte, error)
	// Write calls fn with a PutFunc that collects puts into batches.
	// Only puts of a successful fn are guaranteed to be persisted.
	Write(fn func(put PutFunc) error) error
	// Iterate calls fn for all keys with prefix in key order. value is
	// only valid until fn returns.
	Iterate(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

func openStore(backend Backend, path string) (Store, error) {
	switch backend {
	case BadgerBackend:
		return openBadgerStore(path, &globalStoreOptions)
	case LevelDBBackend:
		return openLevelDBStore(path, &globalStoreOptions)
	}
	return nil, fmt.Errorf("unknown cache backend %q", backend)
}

// Key prefixes. Each entity is stored under prefix + 8 byte big endian ID.
const (
	nodePrefix           = 'n'
	wayPrefix            = 'w'
	relationPrefix       = 'r'
	coordPrefix          = 'c'
	memberWayPrefix      = 'W'
	memberRelationPrefix = 'R'
)

var metaKey = []byte("meta")

func idToKeyBuf(prefix byte, id int64) []byte {
	b := make([]byte, 9)
	b[0] = prefix
	bin.BigEndian.PutUint64(b[1:], uint64(id))
	return b
}

func idFromKeyBuf(buf []byte) (int64, error) {
	if len(buf) != 9 {
		return 0, fmt.Errorf("invalid cache key %q", buf)
	}
	return int64(bin.BigEndian.Uint64(buf[1:])), nil
}

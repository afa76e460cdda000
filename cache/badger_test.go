package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStore(t *testing.T) {
	dir := t.TempDir()
	db, err := openBadgerStore(dir, &storeOptions{
		BatchSize: 2,
		Badger:    badgerOptions{SyncWrites: true, ValueLogFileSize: 1 << 20},
	})
	require.NoError(t, err)

	err = db.Write(func(put PutFunc) error {
		for i := int64(0); i < 5; i++ {
			if err := put(idToKeyBuf(nodePrefix, i), []byte(fmt.Sprint(i))); err != nil {
				return err
			}
		}
		return put(idToKeyBuf(wayPrefix, 1), []byte("way"))
	})
	require.NoError(t, err)

	v, err := db.Get(idToKeyBuf(nodePrefix, 3))
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), v)
	_, err = db.Get(idToKeyBuf(nodePrefix, 7))
	assert.Equal(t, NotFound, err)

	var ids []int64
	err = db.Iterate([]byte{nodePrefix}, func(key, value []byte) error {
		id, err := idFromKeyBuf(key)
		ids = append(ids, id)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, ids)
	require.NoError(t, db.Close())

	// data is stored in path
	_, err = os.Stat(filepath.Join(dir, "MANIFEST"))
	assert.NoError(t, err)
}

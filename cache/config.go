package cache

import (
	"encoding/json"
	"os"

	"github.com/omniscale/osmfilter/log"
)

type levelDBOptions struct {
	CacheSizeM           int
	MaxOpenFiles         int
	BlockRestartInterval int
	WriteBufferSizeM     int
	BlockSizeK           int
}

type badgerOptions struct {
	SyncWrites       bool
	ValueLogFileSize int64
}

type storeOptions struct {
	// BatchSize is the number of entries written with a single
	// transaction or write batch.
	BatchSize int
	LevelDB   levelDBOptions
	Badger    badgerOptions
}

const defaultConfig = `
{
    "BatchSize": 8192,
    "LevelDB": {
        "CacheSizeM": 16,
        "WriteBufferSizeM": 64,
        "BlockSizeK": 0,
        "MaxOpenFiles": 64,
        "BlockRestartInterval": 128
    },
    "Badger": {
        "SyncWrites": false,
        "ValueLogFileSize": 268435456
    }
}
`

var globalStoreOptions storeOptions

func init() {
	err := json.Unmarshal([]byte(defaultConfig), &globalStoreOptions)
	if err != nil {
		panic(err)
	}

	cacheConfFile := os.Getenv("OSMFILTER_CACHE_CONFIG")
	if cacheConfFile != "" {
		data, err := os.ReadFile(cacheConfFile)
		if err != nil {
			log.Println("[warn] Unable to read cache config:", err)
		}
		err = json.Unmarshal(data, &globalStoreOptions)
		if err != nil {
			log.Println("[warn] Unable to parse cache config:", err)
		}
	}
}

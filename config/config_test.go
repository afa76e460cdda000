package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omniscale/osmfilter/log"
)

func TestNameFromFile(t *testing.T) {
	for _, tc := range []struct {
		file string
		name string
	}{
		{"bremen-latest.osm.pbf", "bremen-latest"},
		{"/data/denmark.pbf", "denmark"},
		{"data/extract", "extract"},
		{".osm.pbf", ".osm"},
	} {
		t.Run(tc.file, func(t *testing.T) {
			assert.Equal(t, tc.name, NameFromFile(tc.file))
		})
	}
}

func TestParseRun(t *testing.T) {
	opts, _, errs := parseRun([]string{"-read", "/data/dk.osm.pbf", "-filter", "walk.yml"}, os.Stderr)
	require.Empty(t, errs)
	assert.Equal(t, "dk", opts.Name)
	assert.Equal(t, defaultCacheDir, opts.CacheDir)
	assert.Equal(t, "Line", opts.ExportType)
	assert.True(t, opts.Elements)
	assert.True(t, opts.LoadElements)
	assert.False(t, opts.Overwritecache)
	assert.Equal(t, log.LProgress, opts.LogLevel())

	opts, _, errs = parseRun([]string{
		"-read", "dk.osm.pbf", "-filter", "walk.yml", "-name", "walk",
		"-exporttype", "multiline", "-quiet", "-cachebackend", "leveldb",
	}, os.Stderr)
	require.Empty(t, errs)
	assert.Equal(t, "walk", opts.Name)
	assert.Equal(t, "leveldb", opts.CacheBackend)
	assert.Equal(t, log.LWarn, opts.LogLevel())
}

func TestParseRunLogLevel(t *testing.T) {
	opts, _, errs := parseRun([]string{"-read", "dk.osm.pbf", "-filter", "walk.yml", "-loglevel", "info"}, os.Stderr)
	require.Empty(t, errs)
	assert.Equal(t, log.LInfo, opts.LogLevel())

	opts, _, errs = parseRun([]string{"-read", "dk.osm.pbf", "-filter", "walk.yml", "-verbose"}, os.Stderr)
	require.Empty(t, errs)
	assert.Equal(t, log.LDebug, opts.LogLevel())

	_, _, errs = parseRun([]string{"-read", "dk.osm.pbf", "-filter", "walk.yml", "-loglevel", "loud"}, os.Stderr)
	assert.Len(t, errs, 1)

	_, _, errs = parseRun([]string{"-read", "dk.osm.pbf", "-filter", "walk.yml", "-loglevel", "warn", "-quiet"}, os.Stderr)
	assert.Len(t, errs, 1)
}

func TestParseRunErrors(t *testing.T) {
	_, _, errs := parseRun([]string{}, os.Stderr)
	assert.Len(t, errs, 3, "missing -read, -filter and -name")

	_, _, errs = parseRun([]string{
		"-read", "dk.osm.pbf", "-filter", "walk.yml",
		"-exporttype", "Polygon", "-cachebackend", "rocksdb", "-quiet", "-verbose",
	}, os.Stderr)
	assert.Len(t, errs, 3)

	_, _, errs = parseRun([]string{
		"-read", "dk.osm.pbf", "-filter", "walk.yml", "-write", "out.geojson", "-elements=false",
	}, os.Stderr)
	assert.Len(t, errs, 1)

	_, _, errs = parseRun([]string{"-read", "dk.osm.pbf", "-filter", "walk.yml", "extra"}, os.Stderr)
	assert.Len(t, errs, 1)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	conf := filepath.Join(dir, "osmfilter.json")
	require.NoError(t, os.WriteFile(conf, []byte(`{
		"cachedir": "/var/cache/osmfilter",
		"cache_backend": "leveldb",
		"filter": "/etc/osmfilter/walk.yml",
		"exporttype": "Point"
	}`), 0644))

	opts, _, errs := parseRun([]string{"-read", "dk.osm.pbf", "-config", conf}, os.Stderr)
	require.Empty(t, errs)
	assert.Equal(t, "/var/cache/osmfilter", opts.CacheDir)
	assert.Equal(t, "leveldb", opts.CacheBackend)
	assert.Equal(t, "/etc/osmfilter/walk.yml", opts.FilterFile)
	assert.Equal(t, "Point", opts.ExportType)

	// command line wins
	opts, _, errs = parseRun([]string{
		"-read", "dk.osm.pbf", "-config", conf,
		"-cachedir", "/tmp/other", "-filter", "bike.yml", "-cachebackend", "badger", "-exporttype", "MultiLine",
	}, os.Stderr)
	require.Empty(t, errs)
	assert.Equal(t, "/tmp/other", opts.CacheDir)
	assert.Equal(t, "badger", opts.CacheBackend)
	assert.Equal(t, "bike.yml", opts.FilterFile)
	assert.Equal(t, "MultiLine", opts.ExportType)

	require.NoError(t, os.WriteFile(conf, []byte(`{"mapping": "foo.yml"}`), 0644))
	_, _, errs = parseRun([]string{"-read", "dk.osm.pbf", "-config", conf}, os.Stderr)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), conf)

	_, _, errs = parseRun([]string{"-read", "dk.osm.pbf", "-config", filepath.Join(dir, "missing.json")}, os.Stderr)
	assert.Len(t, errs, 1)
}

/*
Package cache persists prefiltered datasets and resolved elements between
runs.

Each artifact is stored as <cachedir>/<name>.dataset or
<cachedir>/<name>.elements. The artifact is a symlink to a key/value store
directory next to it. New stores are written to a fresh directory and the
symlink is replaced atomically after the store is complete, so a failed
write never touches the previous artifact.

An artifact is only loaded if its meta record matches the cache Version and
the fingerprint of the current run. Everything else is a miss.
*/
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/omniscale/osmfilter/log"
)

// Version of the cache format. Increase for every change of the
// serialization, including the tag codepoints in cache/binary.
const Version = 1

// Artifact names.
const (
	DatasetArtifact  = "dataset"
	ElementsArtifact = "elements"
)

// Meta is stored with every artifact.
type Meta struct {
	Version     int            `json:"version"`
	Fingerprint string         `json:"fingerprint"`
	Kind        string         `json:"kind"`
	Created     time.Time      `json:"created"`
	Counts      map[string]int `json:"counts"`
}

type Cache struct {
	dir     string
	name    string
	backend Backend
}

// Open prepares the cache named name in dir. New artifacts are written with
// backend.
func Open(dir, name string, backend Backend) (*Cache, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return nil, errors.Errorf("invalid cache name %q", name)
	}
	if backend == "" {
		backend = DefaultBackend
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrapf(err, "creating cache dir %s", dir)
	}
	return &Cache{dir: dir, name: name, backend: backend}, nil
}

func (c *Cache) Dir() string      { return c.dir }
func (c *Cache) Name() string     { return c.name }
func (c *Cache) Backend() Backend { return c.backend }

// Path returns the path of the artifact symlink.
func (c *Cache) Path(artifact string) string {
	return filepath.Join(c.dir, c.name+"."+artifact)
}

// storePrefix is the file name prefix of all store directories of the
// artifact. The backend name follows the prefix.
func (c *Cache) storePrefix(artifact string) string {
	return c.name + "." + artifact + "."
}

// openArtifact opens the store the artifact points to. It returns nil if the
// artifact does not exist or was written with another backend.
func (c *Cache) openArtifact(artifact string) (Store, error) {
	link := c.Path(artifact)
	target, err := filepath.EvalSymlinks(link)
	if os.IsNotExist(err) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrapf(err, "resolving cache artifact %s", link)
	}
	base := filepath.Base(target)
	if !strings.HasPrefix(base, c.storePrefix(artifact)+string(c.backend)+"-") {
		log.Printf("[info] Ignoring cache %s (not written with %s backend)", link, c.backend)
		return nil, nil
	}
	st, err := openStore(c.backend, target)
	if err != nil {
		return nil, errors.Wrapf(err, "opening cache artifact %s", link)
	}
	return st, nil
}

// readMeta returns nil if the store has no valid meta record for
// artifact and fingerprint. Read errors are treated like a miss.
func (c *Cache) readMeta(st Store, artifact, fingerprint string) (*Meta, error) {
	meta, err := loadMeta(st)
	if err != nil {
		log.Printf("[warn] Cache %s with invalid meta record: %s", c.Path(artifact), err)
		return nil, nil
	}
	if meta == nil {
		log.Printf("[warn] Cache %s without meta record", c.Path(artifact))
		return nil, nil
	}
	if meta.Version != Version || meta.Kind != artifact {
		log.Printf("[info] Cache %s has version %d (%s), expected %d (%s)",
			c.Path(artifact), meta.Version, meta.Kind, Version, artifact)
		return nil, nil
	}
	if meta.Fingerprint != fingerprint {
		log.Printf("[info] Cache %s is outdated", c.Path(artifact))
		return nil, nil
	}
	return meta, nil
}

// Meta returns the meta record of the artifact, or nil if it does not
// exist. The fingerprint is not checked.
func (c *Cache) Meta(artifact string) (*Meta, error) {
	st, err := c.openArtifact(artifact)
	if err != nil || st == nil {
		return nil, err
	}
	defer st.Close()
	meta, err := loadMeta(st)
	if err != nil {
		return nil, errors.Wrapf(err, "meta of %s", c.Path(artifact))
	}
	return meta, nil
}

// loadMeta returns nil if the store has no meta record.
func loadMeta(st Store) (*Meta, error) {
	data, err := st.Get(metaKey)
	if err == NotFound {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	meta := &Meta{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, errors.Wrap(err, "parsing meta record")
	}
	return meta, nil
}

// write creates a new store for the artifact, calls fn to fill it and
// publishes the store if fn and the meta record were written.
func (c *Cache) write(artifact, fingerprint string, counts map[string]int, fn func(put PutFunc) error) (err error) {
	tmp, err := os.MkdirTemp(c.dir, c.storePrefix(artifact)+string(c.backend)+"-")
	if err != nil {
		return errors.Wrapf(err, "creating cache store for %s", c.Path(artifact))
	}
	defer func() {
		if err != nil {
			if rerr := os.RemoveAll(tmp); rerr != nil {
				log.Printf("[warn] Removing %s: %s", tmp, rerr)
			}
		}
	}()

	st, err := openStore(c.backend, tmp)
	if err != nil {
		return err
	}
	meta, err := json.Marshal(Meta{
		Version:     Version,
		Fingerprint: fingerprint,
		Kind:        artifact,
		Created:     time.Now().UTC(),
		Counts:      counts,
	})
	if err != nil {
		st.Close()
		return err
	}
	err = st.Write(func(put PutFunc) error {
		if err := fn(put); err != nil {
			return err
		}
		// meta is written last, incomplete stores are never valid
		return put(metaKey, meta)
	})
	if cerr := st.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return errors.Wrapf(err, "writing cache %s", c.Path(artifact))
	}

	if err := c.publish(artifact, tmp); err != nil {
		return err
	}
	c.removeStale(artifact, filepath.Base(tmp))
	return nil
}

// publish points the artifact symlink to dir. The symlink is replaced with
// a rename and is never missing or incomplete.
func (c *Cache) publish(artifact, dir string) error {
	link := c.Path(artifact)
	tmpLink := dir + ".link"
	if err := os.Symlink(filepath.Base(dir), tmpLink); err != nil {
		return errors.Wrapf(err, "publishing cache %s", link)
	}
	if err := os.Rename(tmpLink, link); err != nil {
		os.Remove(tmpLink)
		return errors.Wrapf(err, "publishing cache %s", link)
	}
	return nil
}

// removeStale removes all store directories of artifact except keep.
func (c *Cache) removeStale(artifact, keep string) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		log.Printf("[warn] Listing %s: %s", c.dir, err)
		return
	}
	prefix := c.storePrefix(artifact)
	for _, e := range entries {
		if !e.IsDir() || e.Name() == keep || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		path := filepath.Join(c.dir, e.Name())
		log.Printf("[debug] Removing stale cache %s", path)
		if err := os.RemoveAll(path); err != nil {
			log.Printf("[warn] Removing %s: %s", path, err)
		}
	}
}

// Remove removes all artifacts.
func (c *Cache) Remove() error {
	for _, artifact := range []string{DatasetArtifact, ElementsArtifact} {
		if err := os.Remove(c.Path(artifact)); err != nil && !os.IsNotExist(err) {
			return errors.Wrapf(err, "removing cache %s", c.Path(artifact))
		}
		c.removeStale(artifact, "")
	}
	return nil
}

package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	farm "github.com/dgryski/go-farm"
	"github.com/pkg/errors"

	"github.com/omniscale/osmfilter/filter"
)

// FileIdentity identifies an input file without reading its content.
type FileIdentity struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Identify returns the identity of filename with an absolute path.
func Identify(filename string) (FileIdentity, error) {
	path, err := filepath.Abs(filename)
	if err != nil {
		return FileIdentity{}, errors.Wrapf(err, "identifying %s", filename)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return FileIdentity{}, errors.Wrapf(err, "identifying %s", filename)
	}
	return FileIdentity{Path: path, Size: fi.Size(), ModTime: fi.ModTime()}, nil
}

// Fingerprint returns the fingerprint of a dataset read from the input file
// with prefilter. It only depends on the structure of the prefilter, not on
// the order of keys or values.
func Fingerprint(prefilter *filter.Prefilter, input FileIdentity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "dataset v%d\n", Version)
	fmt.Fprintf(&b, "input %q %d %d\n", input.Path, input.Size, input.ModTime.UnixNano())
	fmt.Fprintf(&b, "prefilter %s\n", prefilter.Canonical())
	return hash(b.String())
}

// ElementsFingerprint returns the fingerprint of elements built from the
// dataset with datasetFingerprint after applying rules.
func ElementsFingerprint(datasetFingerprint string, rules *filter.RuleFilter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "elements v%d\n", Version)
	fmt.Fprintf(&b, "dataset %s\n", datasetFingerprint)
	fmt.Fprintf(&b, "rules %s\n", rules.Canonical())
	return hash(b.String())
}

func hash(s string) string {
	return fmt.Sprintf("%016x", farm.Fingerprint64([]byte(s)))
}

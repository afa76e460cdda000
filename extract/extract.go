/*
Package extract runs the complete filter pipeline: reading the prefiltered
dataset, applying the white- and blackfilter rules, building the elements
and exporting them as GeoJSON.

Dataset and elements are cached in CacheDir and reused by later runs with
the same input file and filters.
*/
package extract

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/omniscale/osmfilter/builder"
	"github.com/omniscale/osmfilter/cache"
	"github.com/omniscale/osmfilter/element"
	"github.com/omniscale/osmfilter/filter"
	"github.com/omniscale/osmfilter/filter/config"
	"github.com/omniscale/osmfilter/geom/geojson"
	"github.com/omniscale/osmfilter/log"
	"github.com/omniscale/osmfilter/reader"
	"github.com/omniscale/osmfilter/stats"
)

const progressInterval = 2 * time.Second

type Options struct {
	// Name of the cache artifacts.
	Name string
	// Input is the OSM PBF file.
	Input string
	// Output is the GeoJSON file. Nothing is exported if empty.
	Output       string
	CacheDir     string
	CacheBackend cache.Backend
	Filter       *config.FilterSpec

	// NewPrefilterData reads Input even if the cached dataset is valid.
	// Cached elements are rebuilt as well.
	NewPrefilterData bool
	// CreateElements builds the elements of the filtered dataset.
	CreateElements bool
	// LoadElements loads the elements from the cache if they are valid.
	LoadElements bool

	ExportType     geojson.Type
	SkipDegenerate bool
	// Concurrency of the decoder and builder, defaults to the number of
	// CPUs.
	Concurrency int
}

// Run reads and filters Input. It returns the dataset with all entities
// accepted by the filter rules, and the elements if CreateElements is set.
func Run(ctx context.Context, opts Options) (*element.Dataset, *element.Elements, error) {
	if opts.Filter == nil {
		return nil, nil, errors.New("missing filter")
	}
	defer log.Step("osmfilter " + opts.Name)()

	prefilter := filter.NewPrefilter(opts.Filter.Prefilter)
	rules, err := filter.NewRuleFilter(opts.Filter)
	if err != nil {
		return nil, nil, err
	}

	osmCache, err := cache.Open(opts.CacheDir, opts.Name, opts.CacheBackend)
	if err != nil {
		return nil, nil, err
	}

	input, err := cache.Identify(opts.Input)
	if err != nil {
		return nil, nil, err
	}
	fingerprint := cache.Fingerprint(prefilter, input)

	var ds *element.Dataset
	if !opts.NewPrefilterData {
		ds, err = osmCache.LoadDataset(fingerprint)
		if err != nil {
			return nil, nil, err
		}
	}
	if ds == nil {
		ds, err = readDataset(ctx, opts, prefilter)
		if err != nil {
			return nil, nil, err
		}
		if err := osmCache.StoreDataset(fingerprint, ds); err != nil {
			return nil, nil, err
		}
	}

	step := log.Step("Applying filter rules")
	filtered := rules.Apply(ds)
	c := filtered.Counts()
	log.Printf("[info] %d nodes, %d ways and %d relations accepted by filter rules",
		c.Nodes, c.Ways, c.Relations)
	step()

	var el *element.Elements
	if opts.CreateElements {
		el, err = elements(ctx, osmCache, cache.ElementsFingerprint(fingerprint, rules), filtered, opts)
		if err != nil {
			return nil, nil, err
		}
	}

	if opts.Output != "" {
		_, err := geojson.ExportFile(opts.Output, el, filtered, geojson.Options{
			Type:           opts.ExportType,
			SkipDegenerate: opts.SkipDegenerate,
		})
		if err != nil {
			return nil, nil, err
		}
	}
	return filtered, el, nil
}

func readDataset(ctx context.Context, opts Options, prefilter *filter.Prefilter) (*element.Dataset, error) {
	defer log.Step("Reading OSM data")()
	progress := stats.StatsReporter(progressInterval)
	ds, err := reader.ReadPbf(ctx, opts.Input, prefilter, reader.Options{
		Concurrency: opts.Concurrency,
		Progress:    progress,
	})
	progress.Stop()
	return ds, err
}

func elements(ctx context.Context, osmCache *cache.Cache, fingerprint string, ds *element.Dataset, opts Options) (*element.Elements, error) {
	if opts.LoadElements && !opts.NewPrefilterData {
		el, err := osmCache.LoadElements(fingerprint)
		if err != nil {
			return nil, err
		}
		if el != nil {
			return el, nil
		}
	}
	el, err := builder.Build(ctx, ds, builder.Options{Concurrency: opts.Concurrency})
	if err != nil {
		return nil, err
	}
	if err := osmCache.StoreElements(fingerprint, el); err != nil {
		return nil, err
	}
	return el, nil
}

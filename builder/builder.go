/*
Package builder resolves the references of retained ways and relations.

Ways are resolved to their node coordinates, relations to their members.
Member relations are resolved to their immediate members only, their own
relation members are kept as references. Missing references never fail a
build, they are skipped for ways and kept as unresolved members for
relations.
*/
package builder

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/dustin/go-humanize"
	osm "github.com/omniscale/go-osm"
	"golang.org/x/sync/errgroup"

	"github.com/omniscale/osmfilter/element"
	"github.com/omniscale/osmfilter/log"
)

// MaxWarnings is the number of missing reference warnings that are logged
// individually.
const MaxWarnings = 100

// memberDepth is the depth up to which member relations are resolved.
const memberDepth = 1

type Options struct {
	// Concurrency is the number of workers, defaults to the number of CPUs.
	Concurrency int
}

type builder struct {
	ds       *element.Dataset
	warnings int64
	missing  int64
}

// Build resolves all ways and relations of ds.
func Build(ctx context.Context, ds *element.Dataset, opts Options) (*element.Elements, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	defer log.Step("Building elements")()

	b := &builder{ds: ds}
	el := element.NewElements()

	wayIDs := element.SortedIDs(ds.Ways)
	ways := make([]*element.ResolvedWay, len(wayIDs))
	err := run(ctx, concurrency, len(wayIDs), func(i int) {
		ways[i] = b.resolveWay(ds.Ways[wayIDs[i]], true)
	})
	if err != nil {
		return nil, err
	}
	for i, id := range wayIDs {
		el.Ways[id] = ways[i]
	}

	relIDs := element.SortedIDs(ds.Relations)
	rels := make([]*element.ResolvedRelation, len(relIDs))
	err = run(ctx, concurrency, len(relIDs), func(i int) {
		rels[i] = b.resolveRelation(ds.Relations[relIDs[i]], memberDepth)
	})
	if err != nil {
		return nil, err
	}
	for i, id := range relIDs {
		el.Relations[id] = rels[i]
	}

	if warnings := atomic.LoadInt64(&b.warnings); warnings > MaxWarnings {
		log.Printf("[warn] %s more ways with missing nodes", humanize.Comma(warnings-MaxWarnings))
	}
	if missing := atomic.LoadInt64(&b.missing); missing > 0 {
		log.Printf("[info] %s references could not be resolved", humanize.Comma(missing))
	}
	log.Printf("[info] Resolved %s ways and %s relations",
		humanize.Comma(int64(len(el.Ways))), humanize.Comma(int64(len(el.Relations))))
	return el, nil
}

// run calls fn for 0 <= i < n with concurrency workers. Each i is passed to
// exactly one call.
func run(ctx context.Context, concurrency, n int, fn func(i int)) error {
	g, ctx := errgroup.WithContext(ctx)
	next := make(chan int)
	g.Go(func() error {
		defer close(next)
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			select {
			case next <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for i := range next {
				fn(i)
			}
			return nil
		})
	}
	return g.Wait()
}

// resolveWay keeps the order of the refs and skips all missing nodes.
// Missing nodes of top level ways are logged.
func (b *builder) resolveWay(w *osm.Way, warn bool) *element.ResolvedWay {
	rw := &element.ResolvedWay{
		ID:     w.ID,
		Tags:   w.Tags,
		Refs:   make([]int64, 0, len(w.Refs)),
		Coords: make([]element.Coord, 0, len(w.Refs)),
	}
	var firstMissing int64
	for _, ref := range w.Refs {
		c, ok := b.ds.Coord(ref)
		if !ok {
			if rw.Missing == 0 {
				firstMissing = ref
			}
			rw.Missing += 1
			continue
		}
		rw.Refs = append(rw.Refs, ref)
		rw.Coords = append(rw.Coords, c)
	}
	if rw.Missing > 0 {
		atomic.AddInt64(&b.missing, int64(rw.Missing))
		if warn && atomic.AddInt64(&b.warnings, 1) <= MaxWarnings {
			log.Printf("[warn] way %d: %d of %d nodes missing (first %d)",
				w.ID, rw.Missing, len(w.Refs), firstMissing)
		}
	}
	return rw
}

// resolveRelation resolves all members. Relation members are only resolved
// for depth > 0.
func (b *builder) resolveRelation(r *osm.Relation, depth int) *element.ResolvedRelation {
	rr := &element.ResolvedRelation{
		ID:      r.ID,
		Tags:    r.Tags,
		Members: make([]element.ResolvedMember, 0, len(r.Members)),
	}
	for _, m := range r.Members {
		rm := element.ResolvedMember{Type: element.MemberKind(m.Type), ID: m.ID, Role: m.Role}
		switch rm.Type {
		case element.Node:
			if nd, ok := b.ds.Node(m.ID); ok {
				rm.Node = &element.ResolvedNode{ID: m.ID, Tags: nd.Tags, Coord: element.CoordOf(nd)}
			} else if c, ok := b.ds.Coord(m.ID); ok {
				rm.Node = &element.ResolvedNode{ID: m.ID, Coord: c}
			}
		case element.Way:
			if w, ok := b.ds.Way(m.ID); ok {
				rm.Way = b.resolveWay(w, false)
			}
		case element.Relation:
			if depth == 0 {
				rr.Members = append(rr.Members, rm)
				continue
			}
			if sub, ok := b.ds.Relation(m.ID); ok {
				rm.Relation = b.resolveRelation(sub, depth-1)
			}
		}
		if !rm.Resolved() {
			rr.Missing += 1
		}
		rr.Members = append(rr.Members, rm)
	}
	if rr.Missing > 0 {
		atomic.AddInt64(&b.missing, int64(rr.Missing))
		log.Printf("[debug] relation %d: %d of %d members missing", r.ID, rr.Missing, len(r.Members))
	}
	return rr
}

// Package reader reads the prefiltered Dataset from a PBF file.
package reader

import (
	"context"

	"github.com/dustin/go-humanize"
	osm "github.com/omniscale/go-osm"

	"github.com/omniscale/osmfilter/element"
	"github.com/omniscale/osmfilter/filter"
	"github.com/omniscale/osmfilter/log"
	"github.com/omniscale/osmfilter/parser/pbf"
	"github.com/omniscale/osmfilter/stats"
)

type Options struct {
	// Concurrency is the number of parallel block decoders.
	Concurrency int
	// Progress is optional.
	Progress *stats.Statistics
}

type idSet map[int64]struct{}

func (s idSet) add(id int64) { s[id] = struct{}{} }

func (s idSet) has(id int64) bool {
	_, ok := s[id]
	return ok
}

type reader struct {
	pbf       *pbf.Pbf
	prefilter *filter.Prefilter
	opts      Options
	ds        *element.Dataset
}

// ReadPbf reads all entities of filename that are retained by prefilter.
//
// Nodes, ways and relations that are referenced by retained entities
// are collected in additional passes, in the order relations, ways and
// nodes. Member relations are resolved to a depth of one. A pass is
// skipped if no entity of the kind is referenced.
func ReadPbf(ctx context.Context, filename string, prefilter *filter.Prefilter, opts Options) (*element.Dataset, error) {
	f, err := pbf.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header := f.Header()
	log.Printf("[info] reading %s (%s)", filename, humanize.Bytes(uint64(header.Size)))
	if !header.Time.IsZero() {
		log.Printf("[info] %s contains data till %v", filename, header.Time.Local())
	}

	r := &reader{pbf: f, prefilter: prefilter, opts: opts, ds: element.NewDataset()}
	if err := r.readEntities(ctx); err != nil {
		return nil, err
	}
	if err := r.readReferences(ctx); err != nil {
		return nil, err
	}
	return r.ds, nil
}

func (r *reader) parse(ctx context.Context, skip [3]bool, fn func(*pbf.Batch)) error {
	p := pbf.NewParser(r.pbf, pbf.Config{
		Concurrency:   r.opts.Concurrency,
		SkipNodes:     skip[element.Node],
		SkipWays:      skip[element.Way],
		SkipRelations: skip[element.Relation],
	})
	return p.Parse(ctx, func(b *pbf.Batch) error {
		fn(b)
		return nil
	})
}

func (r *reader) progress(kind element.Kind, scanned, retained int) {
	if r.opts.Progress == nil {
		return
	}
	r.opts.Progress.AddScanned(kind, scanned)
	r.opts.Progress.AddRetained(kind, retained)
}

// readEntities inserts all entities that pass the prefilter.
func (r *reader) readEntities(ctx context.Context) error {
	var skip [3]bool
	for _, kind := range element.Kinds {
		skip[kind] = r.prefilter.Rejects(kind)
	}
	if skip[element.Node] && skip[element.Way] && skip[element.Relation] {
		log.Println("[warn] prefilter rejects all nodes, ways and relations")
		return nil
	}

	return r.parse(ctx, skip, func(b *pbf.Batch) {
		retained := 0
		for i := range b.Nodes {
			if r.prefilter.Match(element.Node, b.Nodes[i].Tags) {
				nd := b.Nodes[i]
				r.ds.AddNode(&nd)
				retained += 1
			}
		}
		r.progress(element.Node, len(b.Nodes), retained)

		retained = 0
		for i := range b.Ways {
			if r.prefilter.Match(element.Way, b.Ways[i].Tags) {
				w := b.Ways[i]
				r.ds.AddWay(&w)
				retained += 1
			}
		}
		r.progress(element.Way, len(b.Ways), retained)

		retained = 0
		for i := range b.Relations {
			if r.prefilter.Match(element.Relation, b.Relations[i].Tags) {
				rel := b.Relations[i]
				r.ds.AddRelation(&rel)
				retained += 1
			}
		}
		r.progress(element.Relation, len(b.Relations), retained)
	})
}

func onlyKind(kind element.Kind) [3]bool {
	skip := [3]bool{true, true, true}
	skip[kind] = false
	return skip
}

func (r *reader) readReferences(ctx context.Context) error {
	ds := r.ds

	wantRels := make(idSet)
	for _, rel := range ds.Relations {
		for _, m := range rel.Members {
			if m.Type == osm.RelationMember && !ds.Has(element.Relation, m.ID) {
				wantRels.add(m.ID)
			}
		}
	}
	if len(wantRels) > 0 {
		err := r.parse(ctx, onlyKind(element.Relation), func(b *pbf.Batch) {
			for i := range b.Relations {
				if wantRels.has(b.Relations[i].ID) {
					rel := b.Relations[i]
					ds.AddMemberRelation(&rel)
				}
			}
		})
		if err != nil {
			return err
		}
		logMissing("relations", len(wantRels), len(ds.MemberRelations))
	}

	wantWays := make(idSet)
	for _, rels := range []map[int64]*osm.Relation{ds.Relations, ds.MemberRelations} {
		for _, rel := range rels {
			for _, m := range rel.Members {
				if m.Type == osm.WayMember && !ds.Has(element.Way, m.ID) {
					wantWays.add(m.ID)
				}
			}
		}
	}
	if len(wantWays) > 0 {
		err := r.parse(ctx, onlyKind(element.Way), func(b *pbf.Batch) {
			for i := range b.Ways {
				if wantWays.has(b.Ways[i].ID) {
					w := b.Ways[i]
					ds.AddMemberWay(&w)
				}
			}
		})
		if err != nil {
			return err
		}
		logMissing("ways", len(wantWays), len(ds.MemberWays))
	}

	wantNodes := make(idSet)
	for _, ways := range []map[int64]*osm.Way{ds.Ways, ds.MemberWays} {
		for _, w := range ways {
			for _, ref := range w.Refs {
				if !ds.Has(element.Node, ref) {
					wantNodes.add(ref)
				}
			}
		}
	}
	for _, rels := range []map[int64]*osm.Relation{ds.Relations, ds.MemberRelations} {
		for _, rel := range rels {
			for _, m := range rel.Members {
				if m.Type == osm.NodeMember && !ds.Has(element.Node, m.ID) {
					wantNodes.add(m.ID)
				}
			}
		}
	}
	if len(wantNodes) > 0 {
		err := r.parse(ctx, onlyKind(element.Node), func(b *pbf.Batch) {
			found := 0
			for i := range b.Nodes {
				if wantNodes.has(b.Nodes[i].ID) {
					ds.AddCoord(b.Nodes[i].ID, element.CoordOf(&b.Nodes[i]))
					found += 1
				}
			}
			if r.opts.Progress != nil {
				r.opts.Progress.AddCoords(found)
			}
		})
		if err != nil {
			return err
		}
		logMissing("nodes", len(wantNodes), len(ds.Coords))
	}
	return nil
}

func logMissing(what string, wanted, found int) {
	log.Printf("[debug] found %s of %s referenced %s",
		humanize.Comma(int64(found)), humanize.Comma(int64(wanted)), what)
	if found < wanted {
		log.Printf("[info] %s referenced %s are not in the input file",
			humanize.Comma(int64(wanted-found)), what)
	}
}

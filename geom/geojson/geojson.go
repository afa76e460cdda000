// Package geojson exports resolved elements as GeoJSON feature collection.
package geojson

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	osm "github.com/omniscale/go-osm"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/pkg/errors"

	"github.com/omniscale/osmfilter/element"
	"github.com/omniscale/osmfilter/log"
)

// Type is the geometry type of the exported features.
type Type string

const (
	// Line exports ways as LineString.
	Line Type = "Line"
	// MultiLine exports relations as MultiLineString of their member ways.
	MultiLine Type = "MultiLine"
	// Point exports retained nodes as Point.
	Point Type = "Point"
)

// ParseType parses Line, MultiLine or Point (case-insensitive).
func ParseType(s string) (Type, error) {
	for _, t := range []Type{Line, MultiLine, Point} {
		if strings.EqualFold(s, string(t)) {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown export type %q (Line, MultiLine or Point)", s)
}

type Options struct {
	Type Type
	// SkipDegenerate skips lines with less than two coordinates. They are
	// exported otherwise.
	SkipDegenerate bool
	// Indent output with tabs.
	Indent bool
}

// Result contains the number of exported and skipped features.
type Result struct {
	Features int
	Skipped  int
}

// FeatureCollection builds the feature collection for el or for the nodes of
// ds for Point exports. Features are ordered by ID.
func FeatureCollection(el *element.Elements, ds *element.Dataset, opts Options) (*geojson.FeatureCollection, Result, error) {
	fc := geojson.NewFeatureCollection()
	var res Result
	if opts.Type == "" {
		opts.Type = Line
	}

	add := func(id int64, g orb.Geometry, tags osm.Tags) {
		f := geojson.NewFeature(g)
		f.ID = id
		for k, v := range tags {
			f.Properties[k] = v
		}
		fc.Append(f)
		res.Features += 1
	}

	switch opts.Type {
	case Line:
		if el == nil {
			return nil, res, errors.New("no elements to export")
		}
		for _, id := range el.WayIDs() {
			w := el.Ways[id]
			if opts.SkipDegenerate && len(w.Coords) < 2 {
				res.Skipped += 1
				continue
			}
			add(id, lineString(w), w.Tags)
		}
	case MultiLine:
		if el == nil {
			return nil, res, errors.New("no elements to export")
		}
		for _, id := range el.RelationIDs() {
			r := el.Relations[id]
			mls := multiLineString(r, opts.SkipDegenerate)
			if opts.SkipDegenerate && len(mls) == 0 {
				res.Skipped += 1
				continue
			}
			add(id, mls, r.Tags)
		}
	case Point:
		if ds == nil {
			return nil, res, errors.New("no dataset to export")
		}
		for _, id := range element.SortedIDs(ds.Nodes) {
			nd := ds.Nodes[id]
			add(id, orb.Point{nd.Long, nd.Lat}, nd.Tags)
		}
	default:
		return nil, res, errors.Errorf("unknown export type %q", opts.Type)
	}
	return fc, res, nil
}

func lineString(w *element.ResolvedWay) orb.LineString {
	ls := make(orb.LineString, len(w.Coords))
	for i, c := range w.Coords {
		ls[i] = orb.Point{c.Long, c.Lat}
	}
	return ls
}

// multiLineString collects all member ways of r, including the ways of
// resolved member relations.
func multiLineString(r *element.ResolvedRelation, skipDegenerate bool) orb.MultiLineString {
	mls := orb.MultiLineString{}
	for _, m := range r.Members {
		switch {
		case m.Way != nil:
			if skipDegenerate && len(m.Way.Coords) < 2 {
				continue
			}
			mls = append(mls, lineString(m.Way))
		case m.Relation != nil:
			mls = append(mls, multiLineString(m.Relation, skipDegenerate)...)
		}
	}
	return mls
}

// Export writes the feature collection to w.
func Export(w io.Writer, el *element.Elements, ds *element.Dataset, opts Options) (Result, error) {
	fc, res, err := FeatureCollection(el, ds, opts)
	if err != nil {
		return res, err
	}
	enc := json.NewEncoder(w)
	if opts.Indent {
		enc.SetIndent("", "\t")
	}
	if err := enc.Encode(fc); err != nil {
		return res, err
	}
	return res, nil
}

// ExportFile writes the feature collection to a temporary file next to
// filename and renames it on success. filename is never left with
// partial content.
func ExportFile(filename string, el *element.Elements, ds *element.Dataset, opts Options) (res Result, err error) {
	if opts.Type == "" {
		opts.Type = Line
	}
	f, err := os.CreateTemp(filepath.Dir(filename), "."+filepath.Base(filename)+"-*")
	if err != nil {
		return res, errors.Wrapf(err, "writing %s", filename)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(f.Name())
		}
	}()

	buf := bufio.NewWriter(f)
	res, err = Export(buf, el, ds, opts)
	if err != nil {
		return res, errors.Wrapf(err, "writing %s", filename)
	}
	if err = buf.Flush(); err != nil {
		return res, errors.Wrapf(err, "writing %s", filename)
	}
	if err = f.Chmod(0644); err != nil {
		return res, errors.Wrapf(err, "writing %s", filename)
	}
	if err = f.Close(); err != nil {
		return res, errors.Wrapf(err, "writing %s", filename)
	}
	if err = os.Rename(f.Name(), filename); err != nil {
		return res, errors.Wrapf(err, "writing %s", filename)
	}

	if res.Skipped > 0 {
		log.Printf("[info] Skipped %d degenerate features", res.Skipped)
	}
	log.Printf("[info] Wrote %d %s features to %s", res.Features, opts.Type, filename)
	return res, nil
}

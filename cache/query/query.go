package query

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"

	osm "github.com/omniscale/go-osm"

	"github.com/omniscale/osmfilter/cache"
	"github.com/omniscale/osmfilter/element"
	"github.com/omniscale/osmfilter/log"
)

var flags = flag.NewFlagSet("query-cache", flag.ExitOnError)

var (
	nodeId       = flags.Int64("node", -1, "node")
	wayId        = flags.Int64("way", -1, "way")
	relId        = flags.Int64("rel", -1, "relation")
	full         = flags.Bool("full", false, "recurse into relations/ways")
	elements     = flags.Bool("elements", false, "query resolved elements instead of the dataset")
	cachedir     = flags.String("cachedir", "/tmp/osmfilter", "cache directory")
	name         = flags.String("name", "osmfilter", "cache name")
	cachebackend = flags.String("cachebackend", string(cache.DefaultBackend), "cache backend (badger or leveldb)")
)

type nodes map[string]*node
type ways map[string]*way
type relations map[string]*relation

type node struct {
	osm.Node
	// CoordOnly is set for nodes that are only referenced.
	CoordOnly bool `json:"coord_only,omitempty"`
}

type way struct {
	osm.Way
	Member bool  `json:"member,omitempty"`
	Nodes  nodes `json:"nodes,omitempty"`
}

type relation struct {
	osm.Relation
	Member bool `json:"member,omitempty"`
	Ways   ways `json:"ways,omitempty"`
}

type result struct {
	Meta      *cache.Meta `json:"meta"`
	Nodes     nodes       `json:"nodes,omitempty"`
	Ways      ways        `json:"ways,omitempty"`
	Relations relations   `json:"relations,omitempty"`
}

type elementsResult struct {
	Meta      *cache.Meta                          `json:"meta"`
	Ways      map[string]*element.ResolvedWay      `json:"ways,omitempty"`
	Relations map[string]*element.ResolvedRelation `json:"relations,omitempty"`
}

func collectRelations(r *cache.Reader, ids []int64, recurse bool) relations {
	rels := make(relations)
	for _, id := range ids {
		sid := strconv.FormatInt(id, 10)
		rel, member, err := r.Relation(id)
		if err == cache.NotFound {
			rels[sid] = nil
		} else if err != nil {
			log.Fatal(err)
		} else {
			rels[sid] = &relation{*rel, member, nil}
			if recurse {
				memberWayIds := []int64{}
				for _, m := range rel.Members {
					if m.Type == osm.WayMember {
						memberWayIds = append(memberWayIds, m.ID)
					}
				}
				rels[sid].Ways = collectWays(r, memberWayIds, true)
			}
		}
	}
	return rels
}

func collectWays(r *cache.Reader, ids []int64, recurse bool) ways {
	ws := make(ways)
	for _, id := range ids {
		sid := strconv.FormatInt(id, 10)
		w, member, err := r.Way(id)
		if err == cache.NotFound {
			ws[sid] = nil
		} else if err != nil {
			log.Fatal(err)
		} else {
			ws[sid] = &way{*w, member, nil}
			if recurse {
				ws[sid].Nodes = collectNodes(r, w.Refs)
			}
		}
	}
	return ws
}

func collectNodes(r *cache.Reader, ids []int64) nodes {
	ns := make(nodes)
	for _, id := range ids {
		sid := strconv.FormatInt(id, 10)
		n, err := r.Node(id)
		if err == nil {
			ns[sid] = &node{Node: *n}
			continue
		} else if err != cache.NotFound {
			log.Fatal(err)
		}
		c, err := r.Coord(id)
		if err == cache.NotFound {
			ns[sid] = nil
		} else if err != nil {
			log.Fatal(err)
		} else {
			nd := osm.Node{Long: c.Long, Lat: c.Lat}
			nd.ID = id
			ns[sid] = &node{Node: nd, CoordOnly: true}
		}
	}
	return ns
}

func queryElements(r *cache.Reader) elementsResult {
	result := elementsResult{Meta: r.Meta()}
	if *wayId != -1 {
		result.Ways = make(map[string]*element.ResolvedWay)
		w, err := r.ResolvedWay(*wayId)
		if err != nil && err != cache.NotFound {
			log.Fatal(err)
		}
		result.Ways[strconv.FormatInt(*wayId, 10)] = w
	}
	if *relId != -1 {
		result.Relations = make(map[string]*element.ResolvedRelation)
		rel, err := r.ResolvedRelation(*relId)
		if err != nil && err != cache.NotFound {
			log.Fatal(err)
		}
		result.Relations[strconv.FormatInt(*relId, 10)] = rel
	}
	return result
}

func Usage() {
	fmt.Fprintf(os.Stderr, "Usage of %s %s:\n\n", os.Args[0], os.Args[1])
	flags.PrintDefaults()
	fmt.Fprintln(os.Stderr, "\nQuery cache for nodes/ways/relations.")
	os.Exit(1)
}

func printJson(obj interface{}) {
	bytes, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(bytes))
}

func Query(args []string) {
	flags.Usage = Usage

	if len(args) == 0 {
		Usage()
	}

	err := flags.Parse(args)
	if err != nil {
		log.Fatal(err)
	}

	backend, err := cache.ParseBackend(*cachebackend)
	if err != nil {
		log.Fatal(err)
	}
	c, err := cache.Open(*cachedir, *name, backend)
	if err != nil {
		log.Fatal(err)
	}

	artifact := cache.DatasetArtifact
	if *elements {
		artifact = cache.ElementsArtifact
	}
	r, err := c.OpenReader(artifact)
	if err == cache.NotFound {
		log.Fatalf("[fatal] No %s cache for %s in %s", artifact, *name, *cachedir)
	} else if err != nil {
		log.Fatal(err)
	}
	defer r.Close()

	if *elements {
		if *nodeId != -1 {
			log.Fatal("[fatal] -node is not supported with -elements")
		}
		printJson(queryElements(r))
		return
	}

	result := result{Meta: r.Meta()}

	if *relId != -1 {
		result.Relations = collectRelations(r, []int64{*relId}, *full)
	}

	if *wayId != -1 {
		result.Ways = collectWays(r, []int64{*wayId}, *full)
	}

	if *nodeId != -1 {
		result.Nodes = collectNodes(r, []int64{*nodeId})
	}

	printJson(result)
}

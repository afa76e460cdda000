package pbf

import (
	"context"
	"io"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/omniscale/osmfilter/log"
)

type Config struct {
	// Concurrency is the number of parallel block decoders. Defaults to
	// the number of CPUs.
	Concurrency int

	SkipNodes     bool
	SkipWays      bool
	SkipRelations bool
}

// Parser decodes all data blocks of a PBF file in parallel.
type Parser struct {
	pbf  *Pbf
	conf Config
}

func NewParser(pbf *Pbf, conf Config) *Parser {
	if conf.Concurrency < 1 {
		conf.Concurrency = runtime.NumCPU()
	}
	return &Parser{pbf: pbf, conf: conf}
}

type job struct {
	seq   int
	block Block
}

type result struct {
	seq   int
	batch *Batch
}

// Parse decodes all blocks and calls fn for each decoded block. fn is
// called from a single goroutine, in the order of the blocks in the file.
// Parse stops at the first error, either from decoding, from fn or from
// ctx.
func (p *Parser) Parse(ctx context.Context, fn func(*Batch) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	n := p.conf.Concurrency
	jobs := make(chan job)
	results := make(chan result, n)
	// limits the number of decoded batches that wait for delivery
	inflight := make(chan struct{}, 2*n)

	g.Go(func() error {
		defer close(jobs)
		blocks := p.pbf.BlockPositions()
		for seq := 0; ; seq++ {
			select {
			case inflight <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			b, err := blocks.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case jobs <- job{seq: seq, block: b}:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})

	var workers sync.WaitGroup
	for i := 0; i < n; i++ {
		workers.Add(1)
		g.Go(func() error {
			defer workers.Done()
			for j := range jobs {
				batch, err := p.decode(j.block)
				if err != nil {
					return err
				}
				select {
				case results <- result{seq: j.seq, batch: batch}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(results)
	}()

	var consumeErr error
	pending := make(map[int]*Batch)
	next := 0
	for r := range results {
		if consumeErr != nil {
			continue
		}
		pending[r.seq] = r.batch
		for {
			batch, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next += 1
			<-inflight
			if batch == nil {
				continue
			}
			if err := ctx.Err(); err != nil {
				consumeErr = errors.Wrap(err, "parsing aborted")
				break
			}
			if err := fn(batch); err != nil {
				consumeErr = err
				cancel()
				break
			}
		}
	}

	err := g.Wait()
	if consumeErr != nil {
		return consumeErr
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.Wrap(err, "parsing aborted")
		}
		return err
	}
	return ctx.Err()
}

// decode reads and decodes a single block. It returns a nil batch for
// unknown block types.
func (p *Parser) decode(b Block) (*Batch, error) {
	if b.Type != "OSMData" {
		log.Printf("[debug] skipping %s block %d at offset %d", b.Type, b.Index, b.Offset)
		return nil, nil
	}
	block, err := readPrimitiveBlock(p.pbf.file, b)
	if err != nil {
		return nil, blockError(b, err)
	}

	d := newBlockDecoder(block)
	batch := &Batch{Block: b}
	for _, group := range block.Primitivegroup {
		if !p.conf.SkipNodes {
			if dense := group.GetDense(); dense != nil {
				batch.Nodes = append(batch.Nodes, d.denseNodes(dense)...)
			}
			if len(group.Nodes) > 0 {
				batch.Nodes = append(batch.Nodes, d.nodes(group.Nodes)...)
			}
		}
		if !p.conf.SkipWays && len(group.Ways) > 0 {
			batch.Ways = append(batch.Ways, d.ways(group.Ways)...)
		}
		if !p.conf.SkipRelations && len(group.Relations) > 0 {
			batch.Relations = append(batch.Relations, d.relations(group.Relations)...)
		}
	}
	if d.err != nil {
		return nil, blockError(b, d.err)
	}
	return batch, nil
}

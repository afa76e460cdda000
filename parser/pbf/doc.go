/*
Package pbf decodes OpenStreetMap PBF files.

Open parses the OSMHeader of a file. A Parser decodes the following
OSMData blocks in parallel and delivers the decoded entities block by block,
in file order, to a single callback:

	f, err := pbf.Open("extract.osm.pbf")
	...
	p := pbf.NewParser(f, pbf.Config{SkipRelations: true})
	err = p.Parse(ctx, func(b *pbf.Batch) error {
		for _, nd := range b.Nodes {
			...
		}
		return nil
	})

Only raw and zlib compressed blobs are supported. All errors that are caused
by a single block are returned as *BlockError.
*/
package pbf

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/omniscale/osmfilter"
	"github.com/omniscale/osmfilter/cache"
	"github.com/omniscale/osmfilter/cache/query"
	"github.com/omniscale/osmfilter/config"
	"github.com/omniscale/osmfilter/extract"
	filterconfig "github.com/omniscale/osmfilter/filter/config"
	"github.com/omniscale/osmfilter/geom/geojson"
	"github.com/omniscale/osmfilter/log"
	"github.com/omniscale/osmfilter/stats"
)

func PrintCmds() {
	fmt.Fprintf(os.Stderr, "Usage: %s COMMAND [args]\n\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Available commands:")
	fmt.Fprintln(os.Stderr, "\trun")
	fmt.Fprintln(os.Stderr, "\tquery-cache")
	fmt.Fprintln(os.Stderr, "\tversion")
}

func Main(usage func()) {
	if len(os.Args) <= 1 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		opts := config.ParseRun(os.Args[2:])
		log.SetMinLevel(opts.LogLevel())
		if opts.Httpprofile != "" {
			stats.StartHttpPProf(opts.Httpprofile)
		}
		run(opts)
	case "query-cache":
		query.Query(os.Args[2:])
	case "version":
		fmt.Println(osmfilter.Version)
		os.Exit(0)
	default:
		usage()
		log.Fatalf("[fatal] invalid command: '%s'", os.Args[1])
	}
	os.Exit(0)
}

func run(opts *config.Run) {
	spec, err := filterconfig.Load(opts.FilterFile)
	if err != nil {
		log.Fatal("[fatal] ", err)
	}
	// config.ParseRun already checked backend and export type
	backend, _ := cache.ParseBackend(opts.CacheBackend)
	exportType, _ := geojson.ParseType(opts.ExportType)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, _, err = extract.Run(ctx, extract.Options{
		Name:             opts.Name,
		Input:            opts.Read,
		Output:           opts.Write,
		CacheDir:         opts.CacheDir,
		CacheBackend:     backend,
		Filter:           spec,
		NewPrefilterData: opts.Overwritecache,
		CreateElements:   opts.Elements,
		LoadElements:     opts.LoadElements,
		ExportType:       exportType,
		SkipDegenerate:   opts.SkipDegenerate,
		Concurrency:      opts.Concurrency,
	})
	if err != nil {
		stop()
		log.Fatal("[fatal] ", err)
	}
}

func main() {
	Main(PrintCmds)
}

// Package config parses the command line options of the run sub command.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/omniscale/osmfilter/cache"
	"github.com/omniscale/osmfilter/geom/geojson"
	"github.com/omniscale/osmfilter/log"
)

// Config is the optional JSON file passed with -config. All values are
// defaults for options that are not set on the command line.
type Config struct {
	CacheDir     string `json:"cachedir"`
	CacheBackend string `json:"cache_backend"`
	FilterFile   string `json:"filter"`
	ExportType   string `json:"exporttype"`
}

const defaultCacheDir = "/tmp/osmfilter"
const defaultExportType = string(geojson.Line)

type Base struct {
	CacheDir     string
	CacheBackend string
	ConfigFile   string
	Httpprofile  string
	Quiet        bool
	Verbose      bool
	MinLevel     string
	Concurrency  int
}

type Run struct {
	Base
	Name           string
	Read           string
	Write          string
	FilterFile     string
	Overwritecache bool
	Elements       bool
	LoadElements   bool
	ExportType     string
	SkipDegenerate bool
}

func (o *Base) addFlags(flags *flag.FlagSet) {
	flags.StringVar(&o.CacheDir, "cachedir", defaultCacheDir, "cache directory")
	flags.StringVar(&o.CacheBackend, "cachebackend", "", "cache backend (badger or leveldb)")
	flags.StringVar(&o.ConfigFile, "config", "", "config (json)")
	flags.StringVar(&o.Httpprofile, "httpprofile", "", "bind address for profile server")
	flags.BoolVar(&o.Quiet, "quiet", false, "only log warnings and errors")
	flags.BoolVar(&o.Verbose, "verbose", false, "log debug messages")
	flags.StringVar(&o.MinLevel, "loglevel", "", "minimum log level (debug, progress, step, info, warn, error)")
	flags.IntVar(&o.Concurrency, "concurrency", 0, "number of workers (default number of CPUs)")
}

func (o *Run) addFlags(flags *flag.FlagSet) {
	o.Base.addFlags(flags)
	flags.StringVar(&o.Read, "read", "", "OSM PBF file to read")
	flags.StringVar(&o.Write, "write", "", "GeoJSON file to write")
	flags.StringVar(&o.FilterFile, "filter", "", "filter file (yaml)")
	flags.StringVar(&o.Name, "name", "", "cache name (default basename of -read)")
	flags.BoolVar(&o.Overwritecache, "overwritecache", false, "ignore cached dataset and read -read again")
	flags.BoolVar(&o.Elements, "elements", true, "build elements")
	flags.BoolVar(&o.LoadElements, "loadelements", true, "load cached elements")
	flags.StringVar(&o.ExportType, "exporttype", defaultExportType, "geometry type of the export (Line, MultiLine or Point)")
	flags.BoolVar(&o.SkipDegenerate, "skipdegenerate", false, "skip lines with less than two coordinates")
}

func (o *Base) updateFromConfig(conf *Config) {
	if o.CacheDir == defaultCacheDir && conf.CacheDir != "" {
		o.CacheDir = conf.CacheDir
	}
	if o.CacheBackend == "" {
		o.CacheBackend = conf.CacheBackend
	}
}

func (o *Run) updateFromConfig() error {
	conf := &Config{}
	if o.ConfigFile != "" {
		f, err := os.Open(o.ConfigFile)
		if err != nil {
			return err
		}
		defer f.Close()
		decoder := json.NewDecoder(f)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(conf); err != nil {
			return fmt.Errorf("parsing %s: %w", o.ConfigFile, err)
		}
	}
	o.Base.updateFromConfig(conf)

	if o.FilterFile == "" {
		o.FilterFile = conf.FilterFile
	}
	if o.ExportType == defaultExportType && conf.ExportType != "" {
		o.ExportType = conf.ExportType
	}
	if o.Name == "" && o.Read != "" {
		o.Name = NameFromFile(o.Read)
	}
	return nil
}

// NameFromFile returns the basename of filename without .osm.pbf or .pbf
// suffix.
func NameFromFile(filename string) string {
	name := filepath.Base(filename)
	for _, ext := range []string{".osm.pbf", ".pbf"} {
		if strings.HasSuffix(name, ext) && len(name) > len(ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

func (o *Base) check() []error {
	errs := []error{}
	if _, err := cache.ParseBackend(o.CacheBackend); err != nil {
		errs = append(errs, err)
	}
	if o.Quiet && o.Verbose {
		errs = append(errs, errors.New("-quiet and -verbose are exclusive"))
	}
	if o.MinLevel != "" {
		if _, ok := log.ParseLevel(o.MinLevel); !ok {
			errs = append(errs, fmt.Errorf("unknown -loglevel %q", o.MinLevel))
		}
		if o.Quiet || o.Verbose {
			errs = append(errs, errors.New("-loglevel is exclusive with -quiet and -verbose"))
		}
	}
	if o.Concurrency < 0 {
		errs = append(errs, errors.New("-concurrency needs to be positive"))
	}
	return errs
}

func (o *Run) check() []error {
	errs := o.Base.check()
	if o.Read == "" {
		errs = append(errs, errors.New("missing -read"))
	}
	if o.FilterFile == "" {
		errs = append(errs, errors.New("missing -filter"))
	}
	if o.Name == "" || strings.ContainsAny(o.Name, `/\`) {
		errs = append(errs, fmt.Errorf("invalid -name %q", o.Name))
	}
	if _, err := geojson.ParseType(o.ExportType); err != nil {
		errs = append(errs, err)
	}
	if o.Write != "" && !o.Elements && o.ExportType != string(geojson.Point) {
		errs = append(errs, errors.New("-write requires -elements for Line and MultiLine exports"))
	}
	return errs
}

// LogLevel returns the minimum log level for -loglevel, -quiet or -verbose.
func (o *Base) LogLevel() log.Level {
	if lvl, ok := log.ParseLevel(o.MinLevel); ok {
		return lvl
	}
	switch {
	case o.Quiet:
		return log.LWarn
	case o.Verbose:
		return log.LDebug
	}
	return log.LProgress
}

func parseRun(args []string, output io.Writer) (*Run, *flag.FlagSet, []error) {
	opts := &Run{}
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	flags.SetOutput(output)
	opts.addFlags(flags)
	if err := flags.Parse(args); err != nil {
		return nil, flags, []error{err}
	}
	if flags.NArg() > 0 {
		return nil, flags, []error{fmt.Errorf("unexpected arguments %v", flags.Args())}
	}
	if err := opts.updateFromConfig(); err != nil {
		return nil, flags, []error{err}
	}
	if errs := opts.check(); len(errs) > 0 {
		return opts, flags, errs
	}
	return opts, flags, nil
}

// ParseRun parses the run sub command. It prints the usage and exits on
// invalid options.
func ParseRun(args []string) *Run {
	opts, flags, errs := parseRun(args, os.Stderr)
	if len(args) == 0 {
		usage(flags)
	}
	if len(errs) > 0 {
		if errors.Is(errs[0], flag.ErrHelp) {
			os.Exit(2)
		}
		reportErrors(errs)
		usage(flags)
	}
	return opts
}

func usage(flags *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: %s %s [args]\n\n", os.Args[0], flags.Name())
	flags.PrintDefaults()
	os.Exit(2)
}

func reportErrors(errs []error) {
	fmt.Fprintln(os.Stderr, "errors in config/options:")
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "\t%s\n", err)
	}
}

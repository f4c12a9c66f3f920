package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/azybler/oddson/internal/pointfile"
	"github.com/azybler/oddson/pkg/api"
	"github.com/azybler/oddson/pkg/oddson"
)

func main() {
	input := flag.String("input", "", "Path to the reference point file ('<count> <dim>' header, one point per line after)")
	sample := flag.String("sample", "", "Path to a query-distribution sample file, same format as --input, used to build the cache (defaults to --input)")
	strategy := flag.String("strategy", "kd", "Cache strategy: kd, quad, or zorder")
	dmax := flag.Int("dmax", 12, "Maximum cache build depth (D_max)")
	minRun := flag.Int("minrun", 4, "Minimum run length to certify for the zorder strategy")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: server --input <points.txt> [--sample <sample.txt>] [--strategy kd|quad|zorder] [--dmax N] [--port 8080]")
		os.Exit(1)
	}

	start := time.Now()

	log.Printf("Reading reference points from %s...", *input)
	points, dim, err := pointfile.Read(*input)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}
	log.Printf("Read %d points in %d dimensions", len(points), dim)

	sampleTag := *sample
	if sampleTag == "" {
		sampleTag = *input
	}
	log.Printf("Reading query sample from %s...", sampleTag)
	samplePoints, sdim, err := pointfile.Read(sampleTag)
	if err != nil {
		log.Fatalf("Failed to read sample: %v", err)
	}
	if sdim != dim {
		log.Fatalf("Sample dimension %d does not match input dimension %d", sdim, dim)
	}

	log.Println("Building backing index and cache...")
	backing := oddson.NewBacking(dim, points)
	var cache oddson.Cache
	switch *strategy {
	case "kd":
		cache = oddson.BuildKDCache(dim, samplePoints, backing, *dmax)
	case "quad":
		cache = oddson.BuildQuadCache(dim, samplePoints, backing, *dmax)
	case "zorder":
		cache = oddson.BuildZOrderCache(dim, samplePoints, backing, *minRun)
	default:
		log.Fatalf("Unknown strategy %q (want kd, quad, or zorder)", *strategy)
	}
	facade := oddson.NewFacade(backing, cache)
	log.Printf("Ready in %s: %d sites, %d cache nodes, %d terminal, %d build nn queries",
		time.Since(start).Round(time.Millisecond), len(points), cache.Stats().Nodes, cache.Stats().Terminal, cache.Stats().BuildQueries)

	addr := fmt.Sprintf(":%d", *port)
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	handlers := api.NewHandlers(facade, dim, len(points))
	srv := api.NewServer(cfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}

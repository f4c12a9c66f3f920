package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/azybler/oddson/internal/pointfile"
	"github.com/azybler/oddson/pkg/oddson"
)

func main() {
	input := flag.String("input", "", "Path to the reference point file ('<count> <dim>' header, one point per line after)")
	sample := flag.String("sample", "", "Path to a query-distribution sample file, same format as --input, used to build the cache (defaults to --input)")
	queries := flag.String("queries", "", "Path to a query point file, same format as --input (defaults to --sample)")
	strategy := flag.String("strategy", "kd", "Cache strategy: kd, quad, or zorder")
	dmax := flag.Int("dmax", 12, "Maximum cache build depth (D_max)")
	minRun := flag.Int("minrun", 4, "Minimum run length to certify for the zorder strategy")
	eps := flag.Float64("eps", 0, "Approximation factor for nn/knn queries")
	k := flag.Int("k", 1, "Number of neighbors per query; k=1 runs nn, k>1 runs knn")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Usage: oddsonquery --input <points.txt> [--sample <sample.txt>] [--queries <queries.txt>] [--strategy kd|quad|zorder] [--dmax N] [--eps E] [--k K]")
		os.Exit(1)
	}

	start := time.Now()

	log.Printf("Reading reference points from %s...", *input)
	points, dim, err := pointfile.Read(*input)
	if err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}
	log.Printf("Read %d points in %d dimensions", len(points), dim)

	backing := oddson.NewBacking(dim, points)

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

	log.Printf("Building %s cache to depth %d over %d sample points...", *strategy, *dmax, len(samplePoints))
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
	log.Printf("Cache built: %d nodes, %d terminal, %d build nn queries",
		cache.Stats().Nodes, cache.Stats().Terminal, cache.Stats().BuildQueries)

	facade := oddson.NewFacade(backing, cache)

	queryTag := *queries
	if queryTag == "" {
		queryTag = sampleTag
	}
	log.Printf("Reading queries from %s...", queryTag)
	queryPoints, qdim, err := pointfile.Read(queryTag)
	if err != nil {
		log.Fatalf("Failed to read queries: %v", err)
	}
	if qdim != dim {
		log.Fatalf("Query dimension %d does not match input dimension %d", qdim, dim)
	}

	log.Printf("Running %d queries (strategy=%s, eps=%g, k=%d)...", len(queryPoints), *strategy, *eps, *k)
	for _, q := range queryPoints {
		if *k <= 1 {
			if _, _, ok := facade.Nn(q, *eps); !ok {
				log.Fatalf("nn(%v) found no site against a non-empty index", q)
			}
			continue
		}
		facade.Knn(q, *k, *eps)
	}

	queriesRun, hits := facade.Stats()
	ratio := 0.0
	if queriesRun > 0 {
		ratio = float64(hits) / float64(queriesRun)
	}
	searches, visited, backtrackVisited := facade.BackingSearchStats()
	avgVisited := 0.0
	if searches > 0 {
		avgVisited = float64(visited+backtrackVisited) / float64(searches)
	}
	log.Printf("Done in %s. queries=%d hits=%d hit_ratio=%.3f backing_searches=%d avg_nodes_visited=%.2f",
		time.Since(start).Round(time.Millisecond), queriesRun, hits, ratio, searches, avgVisited)
}

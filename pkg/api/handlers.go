package api

import (
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"

	"github.com/azybler/oddson/pkg/geom"
	"github.com/azybler/oddson/pkg/oddson"
)

// ErrDimMismatch is returned when a query point's arity does not match
// the index's dimension.
var ErrDimMismatch = errors.New("point dimension does not match index dimension")

// Handlers holds the HTTP handlers and their dependencies. A single
// Facade is shared read-only across every request: construction has
// already finished by the time a Handlers is built, matching the
// facade's own concurrency contract of read-only sharing after
// construction.
type Handlers struct {
	facade *oddson.Facade
	dim    int
	numP   int
}

// NewHandlers creates handlers serving queries against facade.
func NewHandlers(facade *oddson.Facade, dim, numSites int) *Handlers {
	return &Handlers{facade: facade, dim: dim, numP: numSites}
}

// HandleNn handles POST /api/v1/nn.
func (h *Handlers) HandleNn(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	var req NnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	q, err := validatePoint(req.Point, h.dim)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_point", "")
		return
	}

	site, sqDist, ok := h.facade.Nn(q, req.Eps)
	if !ok {
		writeError(w, http.StatusNotFound, "empty_index", "")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(NnResponse{Point: []float64(site.P), SqDist: sqDist})
}

// HandleKnn handles POST /api/v1/knn.
func (h *Handlers) HandleKnn(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}

	var req KnnRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "")
		return
	}
	if req.K <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_k", "k")
		return
	}

	q, err := validatePoint(req.Point, h.dim)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_point", "")
		return
	}

	rs := h.facade.Knn(q, req.K, req.Eps)
	resp := KnnResponse{Results: make([]NnResponse, len(rs))}
	for i, r := range rs {
		resp.Results[i] = NnResponse{Point: []float64(r.Item.P), SqDist: r.SqDist}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleHealth handles GET /api/v1/health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{Status: "ok"})
}

// HandleStats handles GET /api/v1/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	queries, hits := h.facade.Stats()
	ratio := 0.0
	if queries > 0 {
		ratio = float64(hits) / float64(queries)
	}
	cs := h.facade.CacheStats()
	searches, visited, backtrackVisited := h.facade.BackingSearchStats()
	avgVisited := 0.0
	if searches > 0 {
		avgVisited = float64(visited+backtrackVisited) / float64(searches)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(StatsResponse{
		NumSites:          h.numP,
		Dim:               h.dim,
		CacheNodes:        cs.Nodes,
		CacheLeaves:       cs.Terminal,
		CacheBuildQueries: cs.BuildQueries,
		Queries:           queries,
		Hits:              hits,
		HitRatio:          ratio,
		BackingSearches:   searches,
		AvgNodesVisited:   avgVisited,
	})
}

func validatePoint(coords []float64, dim int) (geom.Point, error) {
	if len(coords) != dim {
		return nil, ErrDimMismatch
	}
	for _, c := range coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return nil, errors.New("coordinates must be finite numbers")
		}
	}
	return geom.Point(coords), nil
}

func writeError(w http.ResponseWriter, status int, code, field string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: code, Field: field})
}

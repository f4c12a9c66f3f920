package api

// NnRequest is the JSON body for POST /api/v1/nn.
type NnRequest struct {
	Point []float64 `json:"point"`
	Eps   float64   `json:"eps,omitempty"`
}

// NnResponse is the JSON response for a successful nn query.
type NnResponse struct {
	Point  []float64 `json:"point"`
	SqDist float64   `json:"sq_dist"`
}

// KnnRequest is the JSON body for POST /api/v1/knn.
type KnnRequest struct {
	Point []float64 `json:"point"`
	K     int       `json:"k"`
	Eps   float64   `json:"eps,omitempty"`
}

// KnnResponse is the JSON response for a successful knn query.
type KnnResponse struct {
	Results []NnResponse `json:"results"`
}

// ErrorResponse is the JSON response for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// StatsResponse is the JSON response for GET /api/v1/stats.
type StatsResponse struct {
	NumSites          int     `json:"num_sites"`
	Dim               int     `json:"dim"`
	CacheNodes        int     `json:"cache_nodes"`
	CacheLeaves       int     `json:"cache_terminal_leaves"`
	CacheBuildQueries int     `json:"cache_build_nn_queries"`
	Queries           int64   `json:"queries"`
	Hits              int64   `json:"hits"`
	HitRatio          float64 `json:"hit_ratio"`
	BackingSearches   int64   `json:"backing_searches"`
	AvgNodesVisited   float64 `json:"avg_nodes_visited"`
}

// HealthResponse is the JSON response for GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}

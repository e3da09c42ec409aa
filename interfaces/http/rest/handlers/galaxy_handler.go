package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ukodus-galaxy/application/store"
	"ukodus-galaxy/domain/galaxy"
	"ukodus-galaxy/pkg/common"
)

// GalaxyHandler serves the derived views of the graph store. It exposes
// only store-computed values (visibility, families, coverage, hulls) so
// a rendering client never re-derives that logic itself.
type GalaxyHandler struct {
	store  *store.GraphStore
	logger *zap.Logger
}

// NewGalaxyHandler creates a new galaxy handler
func NewGalaxyHandler(st *store.GraphStore, logger *zap.Logger) *GalaxyHandler {
	return &GalaxyHandler{
		store:  st,
		logger: logger,
	}
}

// overviewResponse is the current graph plus its loading flag.
type overviewResponse struct {
	Nodes   []*galaxy.Node `json:"nodes"`
	Edges   []galaxy.Edge  `json:"edges"`
	Loading bool           `json:"loading"`
}

// GetOverview returns the current node and edge sets.
func (h *GalaxyHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, overviewResponse{
		Nodes:   h.store.Nodes(),
		Edges:   h.store.Edges(),
		Loading: h.store.Loading(),
	})
}

// statsResponse couples graph totals and technique coverage with the
// aggregate counters the upstream API reports.
type statsResponse struct {
	TotalPuzzles int     `json:"total_puzzles"`
	TotalEdges   int     `json:"total_edges"`
	TotalPlays   int64   `json:"total_plays"`
	AvgSolveTime float64 `json:"avg_solve_time"`
	Observed     int     `json:"observed_techniques"`
	Total        int     `json:"total_techniques"`
	Percent      int     `json:"coverage_percent"`
}

// GetStats returns node/edge totals, technique coverage and the
// upstream aggregate counters.
func (h *GalaxyHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	nodes, edges := h.store.Counts()
	coverage := h.store.Coverage()
	upstream := h.store.UpstreamStats()

	common.RespondJSON(w, http.StatusOK, statsResponse{
		TotalPuzzles: nodes,
		TotalEdges:   edges,
		TotalPlays:   upstream.TotalPlays,
		AvgSolveTime: upstream.AvgSolveTime,
		Observed:     coverage.Observed,
		Total:        coverage.Total,
		Percent:      coverage.Percent,
	})
}

// GetHulls returns the cluster hulls as of the last mutation.
func (h *GalaxyHandler) GetHulls(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, h.store.Hulls())
}

// familyView is one taxonomy entry joined with the store's live state.
type familyView struct {
	Key    string `json:"key"`
	Label  string `json:"label"`
	Color  string `json:"color"`
	Weight int    `json:"weight"`
	Secret bool   `json:"secret"`
	Active bool   `json:"active"`
	Count  int    `json:"count"`
}

// GetFamilies returns the taxonomy with active-filter flags and node
// counts. Secret families are omitted until unlocked.
func (h *GalaxyHandler) GetFamilies(w http.ResponseWriter, r *http.Request) {
	filters := h.store.ActiveFilters()
	counts := h.store.FamilyCounts()
	unlocked := h.store.Unlocked()

	views := make([]familyView, 0)
	for _, fam := range galaxy.Families() {
		if fam.Secret && !unlocked {
			continue
		}
		views = append(views, familyView{
			Key:    fam.Key,
			Label:  fam.Label,
			Color:  fam.Color,
			Weight: fam.Weight,
			Secret: fam.Secret,
			Active: filters[fam.Key],
			Count:  counts[fam.Key],
		})
	}
	common.RespondJSON(w, http.StatusOK, views)
}

// techniqueView mirrors the upstream technique listing shape.
type techniqueView struct {
	Name        string `json:"name"`
	PuzzleCount int    `json:"puzzle_count"`
}

// GetTechniques returns per-technique puzzle counts for the current
// graph. Counts are keyed by stable name.
func (h *GalaxyHandler) GetTechniques(w http.ResponseWriter, r *http.Request) {
	counts := h.store.TechniqueCounts()
	unlocked := h.store.Unlocked()

	views := make([]techniqueView, 0, len(counts))
	for _, fam := range galaxy.Families() {
		if fam.Secret && !unlocked {
			continue
		}
		for _, tech := range fam.Techniques {
			if n := counts[tech.Name]; n > 0 {
				views = append(views, techniqueView{Name: tech.Name, PuzzleCount: n})
			}
		}
	}
	common.RespondJSON(w, http.StatusOK, views)
}

// clusterResponse is the node set of a single family.
type clusterResponse struct {
	Family string         `json:"family"`
	Label  string         `json:"label"`
	Color  string         `json:"color"`
	Nodes  []*galaxy.Node `json:"nodes"`
}

// GetCluster returns every node whose primary family matches the key.
// Secret families are not addressable until unlocked.
func (h *GalaxyHandler) GetCluster(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "family")

	fam, ok := galaxy.FamilyByKey(key)
	if !ok || (fam.Secret && !h.store.Unlocked()) {
		common.RespondError(w, http.StatusNotFound, "NOT_FOUND", "family not found")
		return
	}

	common.RespondJSON(w, http.StatusOK, clusterResponse{
		Family: fam.Key,
		Label:  fam.Label,
		Color:  fam.Color,
		Nodes:  h.store.FamilyNodes(fam.Key),
	})
}

// GetTechniquePuzzles returns the puzzles exercising one technique, any
// accepted spelling. Secret techniques are not addressable until
// unlocked.
func (h *GalaxyHandler) GetTechniquePuzzles(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	fam, ok := galaxy.FamilyOfTechnique(name)
	if !ok || (fam.Secret && !h.store.Unlocked()) {
		common.RespondError(w, http.StatusNotFound, "NOT_FOUND", "technique not found")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			common.RespondError(w, http.StatusBadRequest, "VALIDATION", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > 200 {
		limit = 200
	}

	common.RespondJSON(w, http.StatusOK, h.store.PuzzlesByTechnique(name, limit))
}

// neighborsResponse is a node with its incident subgraph.
type neighborsResponse struct {
	Node      *galaxy.Node   `json:"node"`
	Neighbors []*galaxy.Node `json:"neighbors"`
	Edges     []galaxy.Edge  `json:"edges"`
}

// GetNeighbors returns a node and every edge touching it.
func (h *GalaxyHandler) GetNeighbors(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")

	node, neighbors, edges := h.store.Neighbors(hash)
	if node == nil {
		common.RespondError(w, http.StatusNotFound, "NOT_FOUND", "puzzle not found")
		return
	}

	common.RespondJSON(w, http.StatusOK, neighborsResponse{
		Node:      node,
		Neighbors: neighbors,
		Edges:     edges,
	})
}

// GetRecent returns nodes ordered by most recent play.
func (h *GalaxyHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			common.RespondError(w, http.StatusBadRequest, "VALIDATION", "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	if limit > 100 {
		limit = 100
	}

	common.RespondJSON(w, http.StatusOK, h.store.Recent(limit))
}

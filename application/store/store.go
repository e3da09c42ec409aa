package store

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"ukodus-galaxy/application/services"
	"ukodus-galaxy/domain/galaxy"
	"ukodus-galaxy/pkg/observability"
)

// EventKind names the mutation that triggered a store notification.
type EventKind string

const (
	EventDataset   EventKind = "dataset"
	EventNodeAdded EventKind = "node_added"
	EventPlayCount EventKind = "play_count"
	EventFilter    EventKind = "filter"
	EventSelection EventKind = "selection"
	EventUnlock    EventKind = "unlock"
	EventStats     EventKind = "stats"
)

// Event is delivered to listeners after each completed mutation, once
// all derived values have been recomputed.
type Event struct {
	Kind EventKind
}

// Listener receives store events. Listeners run on the mutating
// goroutine after the store lock is released; they may read the store.
type Listener func(Event)

// GraphStore is the authoritative in-memory galaxy graph: current nodes
// and edges, the active family filter set, the single selection, and the
// loading flag. It is an explicit, constructible instance whose lifetime
// is owned by its caller. All mutations are synchronous and total, and
// every derived value (per-family counts, hulls, coverage) is recomputed
// inside the mutation, so a reader never observes a node count updated
// against stale derived state.
type GraphStore struct {
	mu sync.RWMutex

	nodes    []*galaxy.Node
	edges    []galaxy.Edge
	byID     map[string]*galaxy.Node
	filters  map[string]bool
	selected *galaxy.Node
	unlocked bool
	loading  bool

	// generation increments on every full dataset replace so a
	// superseded fetch can discard its result.
	generation uint64

	// upstreamStats holds the aggregate counters resource as last
	// fetched; zero until the first successful stats fetch.
	upstreamStats galaxy.Stats

	// derived, recomputed on every mutation
	familyCounts map[string]int
	hulls        []services.ClusterHull
	coverage     services.Coverage

	synthesizer *services.EdgeSynthesizer
	logger      *zap.Logger
	metrics     *observability.Metrics

	listeners []Listener
}

// New creates an empty store in the loading state, filtered to all
// non-secret families.
func New(synthesizer *services.EdgeSynthesizer, logger *zap.Logger, metrics *observability.Metrics) *GraphStore {
	filters := make(map[string]bool)
	for _, key := range galaxy.DefaultFilterKeys() {
		filters[key] = true
	}

	s := &GraphStore{
		byID:         make(map[string]*galaxy.Node),
		filters:      filters,
		loading:      true,
		familyCounts: make(map[string]int),
		synthesizer:  synthesizer,
		logger:       logger,
		metrics:      metrics,
	}
	return s
}

// Subscribe registers a listener for post-mutation events.
func (s *GraphStore) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Generation returns the current dataset generation.
func (s *GraphStore) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// SetDataset replaces the full graph. When the upstream supplied no
// edges, the local heuristic fills them in. Prior state is overwritten,
// never merged.
func (s *GraphStore) SetDataset(nodes []*galaxy.Node, edges []galaxy.Edge) {
	s.mu.Lock()

	if nodes == nil {
		nodes = []*galaxy.Node{}
	}
	if len(edges) == 0 && len(nodes) >= 2 {
		edges = s.synthesizer.Synthesize(nodes)
	}

	s.nodes = nodes
	s.edges = edges
	s.byID = make(map[string]*galaxy.Node, len(nodes))
	for _, n := range nodes {
		s.byID[n.ID] = n
	}
	s.selected = nil
	s.loading = false
	s.generation++
	s.recomputeLocked()

	s.logger.Info("Dataset loaded",
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
		zap.Uint64("generation", s.generation),
	)
	s.mu.Unlock()
	s.notify(Event{Kind: EventDataset})
}

// AddLiveNode appends one node and zero or more edges to the existing
// graph. Nothing is removed or replaced; the store performs no implicit
// id-based merge, the live channel contract is assumed to deliver fresh
// ids.
func (s *GraphStore) AddLiveNode(node *galaxy.Node, edges []galaxy.Edge) {
	if node == nil {
		return
	}
	s.mu.Lock()

	if node.PlayCount == 0 {
		node.PlayCount = 1
	}
	s.nodes = append(s.nodes, node)
	s.byID[node.ID] = node
	if len(edges) > 0 {
		s.edges = append(s.edges, edges...)
	}
	s.recomputeLocked()

	s.logger.Debug("Live node added",
		zap.String("hash", node.ID),
		zap.Int("edges", len(edges)),
	)
	s.mu.Unlock()
	s.notify(Event{Kind: EventNodeAdded})
}

// UpdatePlayCount replaces a node's play count, matching the node by its
// puzzle hash. No-op when the hash is unknown.
func (s *GraphStore) UpdatePlayCount(hash string, count int64) {
	s.mu.Lock()

	node, ok := s.byID[hash]
	if !ok {
		s.mu.Unlock()
		return
	}
	node.PlayCount = count
	node.LastPlayedAt = time.Now()
	s.recomputeLocked()

	s.mu.Unlock()
	s.notify(Event{Kind: EventPlayCount})
}

// SetUpstreamStats records the aggregate counters fetched from the
// upstream API. Nil is a no-op so a failed fetch never clears counters
// a prior fetch delivered.
func (s *GraphStore) SetUpstreamStats(stats *galaxy.Stats) {
	if stats == nil {
		return
	}
	s.mu.Lock()
	s.upstreamStats = *stats
	s.mu.Unlock()
	s.notify(Event{Kind: EventStats})
}

// UpstreamStats returns the last fetched upstream counters.
func (s *GraphStore) UpstreamStats() galaxy.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upstreamStats
}

// ToggleFilter flips a family key in the active filter set. Two
// consecutive calls restore the original membership.
func (s *GraphStore) ToggleFilter(familyKey string) {
	s.mu.Lock()
	s.filters[familyKey] = !s.filters[familyKey]
	s.recomputeLocked()
	s.mu.Unlock()
	s.notify(Event{Kind: EventFilter})
}

// Unlock reveals the secret families: their keys join the filter set and
// the coverage denominator. Keys the user has explicitly unchecked stay
// unchecked.
func (s *GraphStore) Unlock() {
	s.mu.Lock()
	if s.unlocked {
		s.mu.Unlock()
		return
	}
	s.unlocked = true
	for _, key := range galaxy.AllFilterKeys() {
		if _, seen := s.filters[key]; !seen {
			s.filters[key] = true
		}
	}
	s.recomputeLocked()
	s.mu.Unlock()
	s.notify(Event{Kind: EventUnlock})
}

// SelectNode sets or clears the single selection. Clearing is
// idempotent.
func (s *GraphStore) SelectNode(node *galaxy.Node) {
	s.mu.Lock()
	s.selected = node
	s.mu.Unlock()
	s.notify(Event{Kind: EventSelection})
}

// Selected returns the current selection, nil when none.
func (s *GraphStore) Selected() *galaxy.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// IsVisible reports whether a node's primary family is in the active
// filter set. Every rendering and statistics consumer goes through this
// predicate.
func (s *GraphStore) IsVisible(node *galaxy.Node) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters[galaxy.PrimaryFamily(node)]
}

// isVisibleLocked is IsVisible for callers already holding the lock.
func (s *GraphStore) isVisibleLocked(node *galaxy.Node) bool {
	return s.filters[galaxy.PrimaryFamily(node)]
}

// Loading reports whether the initial dataset is still outstanding.
func (s *GraphStore) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// Unlocked reports the secret-family unlock state.
func (s *GraphStore) Unlocked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.unlocked
}

// ActiveFilters returns a copy of the active filter set.
func (s *GraphStore) ActiveFilters() map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(s.filters))
	for k, v := range s.filters {
		out[k] = v
	}
	return out
}

// Nodes returns a copy of the node slice. The *Node pointers are shared
// with the layout engine by design: it mutates X/Y/FX/FY in place.
func (s *GraphStore) Nodes() []*galaxy.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*galaxy.Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// Edges returns a copy of the edge slice.
func (s *GraphStore) Edges() []galaxy.Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]galaxy.Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// Counts returns the current node and edge counts.
func (s *GraphStore) Counts() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges)
}

// FamilyCounts returns the per-family node tally, recomputed on the last
// mutation.
func (s *GraphStore) FamilyCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.familyCounts))
	for k, v := range s.familyCounts {
		out[k] = v
	}
	return out
}

// Hulls returns the cluster hulls as of the last mutation.
func (s *GraphStore) Hulls() []services.ClusterHull {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]services.ClusterHull, len(s.hulls))
	copy(out, s.hulls)
	return out
}

// RecomputeHulls refreshes the hull list from the current layout
// positions without any other mutation. The layout engine calls this
// when a simulation tick settles.
func (s *GraphStore) RecomputeHulls() {
	s.mu.Lock()
	s.hulls = services.ComputeHulls(s.nodes, s.isVisibleLocked)
	s.mu.Unlock()
}

// Coverage returns the technique coverage as of the last mutation.
func (s *GraphStore) Coverage() services.Coverage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coverage
}

// Neighbors returns a node and the subgraph incident to it: every edge
// touching the hash and the nodes on the far end, ordered by technique
// overlap with the center, strongest first.
func (s *GraphStore) Neighbors(hash string) (*galaxy.Node, []*galaxy.Node, []galaxy.Edge) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	center, ok := s.byID[hash]
	if !ok {
		return nil, nil, nil
	}

	var neighbors []*galaxy.Node
	var incident []galaxy.Edge
	for _, e := range s.edges {
		var otherID string
		switch hash {
		case e.Source:
			otherID = e.Target
		case e.Target:
			otherID = e.Source
		default:
			continue
		}
		incident = append(incident, e)
		if other, known := s.byID[otherID]; known {
			neighbors = append(neighbors, other)
		}
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return galaxy.JaccardSimilarity(center.Techniques, neighbors[i].Techniques) >
			galaxy.JaccardSimilarity(center.Techniques, neighbors[j].Techniques)
	})
	return center, neighbors, incident
}

// FamilyNodes returns the nodes whose primary family matches the key,
// in insertion order.
func (s *GraphStore) FamilyNodes(key string) []*galaxy.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*galaxy.Node, 0)
	for _, n := range s.nodes {
		if galaxy.PrimaryFamily(n) == key {
			out = append(out, n)
		}
	}
	return out
}

// PuzzlesByTechnique returns up to limit nodes exercising the named
// technique, matching any spelling the taxonomy accepts. Nil when the
// name resolves to no known technique.
func (s *GraphStore) PuzzlesByTechnique(name string, limit int) []*galaxy.Node {
	stable, ok := galaxy.CanonicalTechnique(name)
	if !ok {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*galaxy.Node, 0)
	for _, n := range s.nodes {
		if limit > 0 && len(out) == limit {
			break
		}
		for _, t := range n.Techniques {
			if c, known := galaxy.CanonicalTechnique(t); known && c == stable {
				out = append(out, n)
				break
			}
		}
	}
	return out
}

// Recent returns up to limit nodes ordered by most recent play.
func (s *GraphStore) Recent(limit int) []*galaxy.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()

	played := make([]*galaxy.Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		if !n.LastPlayedAt.IsZero() {
			played = append(played, n)
		}
	}
	sort.Slice(played, func(i, j int) bool {
		return played[i].LastPlayedAt.After(played[j].LastPlayedAt)
	})
	if limit > 0 && len(played) > limit {
		played = played[:limit]
	}
	return played
}

// TechniqueCounts tallies, per stable technique name, how many puzzles
// in the current graph exercise it. Spelling variants of one technique
// within a node count once.
func (s *GraphStore) TechniqueCounts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, n := range s.nodes {
		seen := make(map[string]bool, len(n.Techniques))
		for _, name := range n.Techniques {
			stable, ok := galaxy.CanonicalTechnique(name)
			if !ok {
				continue
			}
			if seen[stable] {
				continue
			}
			seen[stable] = true
			counts[stable]++
		}
	}
	return counts
}

// recomputeLocked refreshes every derived value. Callers hold the write
// lock.
func (s *GraphStore) recomputeLocked() {
	counts := make(map[string]int, len(s.familyCounts))
	for _, n := range s.nodes {
		counts[galaxy.PrimaryFamily(n)]++
	}
	s.familyCounts = counts
	s.hulls = services.ComputeHulls(s.nodes, s.isVisibleLocked)
	s.coverage = services.ComputeCoverage(s.nodes, s.unlocked)

	if s.metrics != nil {
		s.metrics.NodeCount.Set(float64(len(s.nodes)))
		s.metrics.EdgeCount.Set(float64(len(s.edges)))
	}
}

// notify delivers an event to all listeners, outside the store lock.
func (s *GraphStore) notify(ev Event) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}

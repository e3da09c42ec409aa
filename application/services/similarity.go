package services

import (
	"sync"

	"go.uber.org/zap"

	"ukodus-galaxy/domain/galaxy"
)

// Weights are the tuning constants of the fallback similarity heuristic.
// They are deliberately approximate stand-ins for a server-computed
// relation, kept configurable rather than baked in.
type Weights struct {
	SameDifficulty float64 `json:"same_difficulty"`
	SECloseBonus   float64 `json:"se_close_bonus"` // SE gap under SECloseRange
	SENearBonus    float64 `json:"se_near_bonus"`  // SE gap under SENearRange
	SECloseRange   float64 `json:"se_close_range"`
	SENearRange    float64 `json:"se_near_range"`
	SameFamily     float64 `json:"same_family"`
	MinScore       float64 `json:"min_score"`
}

// DefaultWeights returns the heuristic as shipped.
func DefaultWeights() Weights {
	return Weights{
		SameDifficulty: 0.5,
		SECloseBonus:   0.3,
		SENearBonus:    0.15,
		SECloseRange:   1.0,
		SENearRange:    3.0,
		SameFamily:     0.2,
		MinScore:       0.3,
	}
}

// EdgeSynthesizer derives relatedness edges by pairwise scoring. It is
// only used when the upstream overview carries no edges; a
// server-computed relation always wins over this heuristic. Safe for
// concurrent use: the weights watcher swaps constants from its own
// goroutine while dataset loads score on another.
type EdgeSynthesizer struct {
	mu      sync.RWMutex
	weights Weights
	logger  *zap.Logger
}

// NewEdgeSynthesizer creates a synthesizer with the given weights.
func NewEdgeSynthesizer(weights Weights, logger *zap.Logger) *EdgeSynthesizer {
	return &EdgeSynthesizer{
		weights: weights,
		logger:  logger,
	}
}

// SetWeights swaps the heuristic constants. Takes effect on the next
// Synthesize call; already-emitted edges are not rescored.
func (s *EdgeSynthesizer) SetWeights(weights Weights) {
	s.mu.Lock()
	s.weights = weights
	s.mu.Unlock()
}

// Weights returns the constants currently in effect.
func (s *EdgeSynthesizer) Weights() Weights {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.weights
}

// Score computes the pairwise similarity of two nodes, clamped to 1.0.
func (s *EdgeSynthesizer) Score(a, b *galaxy.Node) float64 {
	return scoreWith(s.Weights(), a, b)
}

func scoreWith(w Weights, a, b *galaxy.Node) float64 {
	score := 0.0

	if a.Difficulty == b.Difficulty {
		score += w.SameDifficulty
	}

	if a.SERating > 0 && b.SERating > 0 {
		diff := a.SERating - b.SERating
		if diff < 0 {
			diff = -diff
		}
		switch {
		case diff < w.SECloseRange:
			score += w.SECloseBonus
		case diff < w.SENearRange:
			score += w.SENearBonus
		}
	}

	if galaxy.PrimaryFamily(a) == galaxy.PrimaryFamily(b) {
		score += w.SameFamily
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Synthesize scores every unordered pair and emits an edge for each pair
// at or above the minimum-signal threshold. A pair carrying only the
// family-match bonus stays below it, which keeps the graph from
// degenerating into a fully connected blob. O(n^2), acceptable for a
// single session's dataset but never for an unbounded one.
func (s *EdgeSynthesizer) Synthesize(nodes []*galaxy.Node) []galaxy.Edge {
	if len(nodes) < 2 {
		return nil
	}

	// Snapshot once so a concurrent reload never scores one run with two
	// weight sets.
	weights := s.Weights()

	edges := make([]galaxy.Edge, 0, len(nodes))
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			score := scoreWith(weights, nodes[i], nodes[j])
			if score >= weights.MinScore {
				edges = append(edges, galaxy.Edge{
					Source:     nodes[i].ID,
					Target:     nodes[j].ID,
					Similarity: score,
				})
			}
		}
	}

	s.logger.Debug("Synthesized similarity edges",
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
	)
	return edges
}

package services

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ukodus-galaxy/domain/galaxy"
)

func newTestSynthesizer() *EdgeSynthesizer {
	return NewEdgeSynthesizer(DefaultWeights(), zap.NewNop())
}

func TestScore_FullMatch(t *testing.T) {
	// Same difficulty, SE ratings within 1.0, same family: 0.5 + 0.3 + 0.2.
	s := newTestSynthesizer()
	a := &galaxy.Node{ID: "a", Difficulty: galaxy.DifficultyHard, SERating: 4.0, Techniques: []string{"XWing"}}
	b := &galaxy.Node{ID: "b", Difficulty: galaxy.DifficultyHard, SERating: 4.5, Techniques: []string{"Swordfish"}}

	assert.Equal(t, 1.0, s.Score(a, b))
}

func TestScore_NoSignal(t *testing.T) {
	// Different difficulty, SE gap >= 3.0, different families: 0.
	s := newTestSynthesizer()
	a := &galaxy.Node{ID: "a", Difficulty: galaxy.DifficultyEasy, SERating: 2.0, Techniques: []string{"NakedSingle"}}
	b := &galaxy.Node{ID: "b", Difficulty: galaxy.DifficultyExtreme, SERating: 9.0, Techniques: []string{"AIC"}}

	assert.Equal(t, 0.0, s.Score(a, b))
}

func TestScore_UnratedSkipsSEBonus(t *testing.T) {
	// SE 0 means unrated; the SE bonus only applies when both are positive.
	s := newTestSynthesizer()
	a := &galaxy.Node{ID: "a", Difficulty: galaxy.DifficultyHard, SERating: 0, Techniques: []string{"XWing"}}
	b := &galaxy.Node{ID: "b", Difficulty: galaxy.DifficultyHard, SERating: 4.5, Techniques: []string{"Swordfish"}}

	assert.Equal(t, 0.7, s.Score(a, b))
}

func TestScore_SENearBonus(t *testing.T) {
	s := newTestSynthesizer()
	a := &galaxy.Node{ID: "a", Difficulty: galaxy.DifficultyHard, SERating: 4.0, Techniques: []string{"XWing"}}
	b := &galaxy.Node{ID: "b", Difficulty: galaxy.DifficultyExpert, SERating: 6.0, Techniques: []string{"XYWing"}}

	// Only the 0.15 near-range SE bonus applies.
	assert.InDelta(t, 0.15, s.Score(a, b), 1e-9)
}

func TestSynthesize_ThresholdExcludesFamilyOnlyPairs(t *testing.T) {
	// A pair with only the family-match bonus (0.2) stays below the 0.3
	// threshold, keeping the graph from becoming fully connected.
	s := newTestSynthesizer()
	nodes := []*galaxy.Node{
		{ID: "a", Difficulty: galaxy.DifficultyEasy, Techniques: []string{"XWing"}},
		{ID: "b", Difficulty: galaxy.DifficultyHard, Techniques: []string{"Swordfish"}},
	}

	assert.Empty(t, s.Synthesize(nodes))
}

func TestSynthesize_EmitsAtThreshold(t *testing.T) {
	s := newTestSynthesizer()
	nodes := []*galaxy.Node{
		{ID: "a", Difficulty: galaxy.DifficultyHard, Techniques: []string{"XWing"}},
		{ID: "b", Difficulty: galaxy.DifficultyHard, Techniques: []string{"AIC"}},
	}

	edges := s.Synthesize(nodes)

	require.Len(t, edges, 1)
	assert.Equal(t, "a", edges[0].Source)
	assert.Equal(t, "b", edges[0].Target)
	assert.Equal(t, 0.5, edges[0].Similarity)
}

func TestSynthesize_SimilarityBounds(t *testing.T) {
	s := newTestSynthesizer()
	nodes := []*galaxy.Node{
		{ID: "a", Difficulty: galaxy.DifficultyHard, SERating: 4.0, Techniques: []string{"XWing"}},
		{ID: "b", Difficulty: galaxy.DifficultyHard, SERating: 4.1, Techniques: []string{"Swordfish"}},
		{ID: "c", Difficulty: galaxy.DifficultyHard, SERating: 4.2, Techniques: []string{"Jellyfish"}},
		{ID: "d", Difficulty: galaxy.DifficultyEasy, SERating: 1.5, Techniques: []string{"NakedSingle"}},
	}

	for _, e := range s.Synthesize(nodes) {
		assert.GreaterOrEqual(t, e.Similarity, 0.3)
		assert.LessOrEqual(t, e.Similarity, 1.0)
	}
}

func TestSynthesize_FewerThanTwoNodes(t *testing.T) {
	s := newTestSynthesizer()

	assert.Nil(t, s.Synthesize(nil))
	assert.Nil(t, s.Synthesize([]*galaxy.Node{{ID: "a", Difficulty: galaxy.DifficultyEasy}}))
}

func TestSetWeights_TakesEffectOnNextSynthesize(t *testing.T) {
	s := newTestSynthesizer()
	a := &galaxy.Node{ID: "a", Difficulty: galaxy.DifficultyHard, Techniques: []string{"XWing"}}
	b := &galaxy.Node{ID: "b", Difficulty: galaxy.DifficultyHard, Techniques: []string{"Swordfish"}}

	require.Equal(t, 0.7, s.Score(a, b))

	custom := DefaultWeights()
	custom.SameFamily = 0.4
	s.SetWeights(custom)

	assert.InDelta(t, 0.9, s.Score(a, b), 1e-9)
}

func TestSetWeights_ConcurrentWithSynthesize(t *testing.T) {
	// The weights watcher swaps constants from its own goroutine while a
	// dataset load is scoring. Run both in a loop; the race detector
	// flags any unsynchronized access.
	s := newTestSynthesizer()
	nodes := []*galaxy.Node{
		{ID: "a", Difficulty: galaxy.DifficultyHard, SERating: 4.0, Techniques: []string{"XWing"}},
		{ID: "b", Difficulty: galaxy.DifficultyHard, SERating: 4.5, Techniques: []string{"Swordfish"}},
		{ID: "c", Difficulty: galaxy.DifficultyEasy, SERating: 1.5, Techniques: []string{"NakedSingle"}},
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			custom := DefaultWeights()
			custom.SameFamily = float64(i%5) / 10
			s.SetWeights(custom)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			for _, e := range s.Synthesize(nodes) {
				assert.LessOrEqual(t, e.Similarity, 1.0)
			}
		}
	}()
	wg.Wait()

	assert.Equal(t, 0.5, s.Weights().SameDifficulty)
}

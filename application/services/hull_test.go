package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ukodus-galaxy/domain/galaxy"
)

func allVisible(*galaxy.Node) bool { return true }

func fishNode(id string, x, y float64) *galaxy.Node {
	return &galaxy.Node{
		ID:         id,
		Difficulty: galaxy.DifficultyHard,
		Techniques: []string{"XWing"},
		X:          x,
		Y:          y,
	}
}

func TestComputeHulls_FewerThanThreePointsNoHull(t *testing.T) {
	nodes := []*galaxy.Node{
		fishNode("a", 10, 10),
		fishNode("b", 50, 50),
	}

	assert.Empty(t, ComputeHulls(nodes, allVisible))
}

func TestComputeHulls_UnpositionedNodesIgnored(t *testing.T) {
	nodes := []*galaxy.Node{
		fishNode("a", 10, 10),
		fishNode("b", 50, 10),
		fishNode("c", 0, 0), // layout has not placed this one yet
	}

	assert.Empty(t, ComputeHulls(nodes, allVisible))
}

func TestComputeHulls_PadsVerticesOutward(t *testing.T) {
	// A unit-ish square centered at (50, 50).
	nodes := []*galaxy.Node{
		fishNode("a", 40, 40),
		fishNode("b", 60, 40),
		fishNode("c", 60, 60),
		fishNode("d", 40, 60),
	}

	hulls := ComputeHulls(nodes, allVisible)

	require.Len(t, hulls, 1)
	hull := hulls[0]
	assert.Equal(t, "fish", hull.FamilyKey)
	assert.False(t, hull.Hidden)
	require.Len(t, hull.Boundary, 4)

	// Every padded vertex sits hullPadding further from the centroid.
	for _, p := range hull.Boundary {
		dx, dy := p.X-50, p.Y-50
		dist := dx*dx + dy*dy
		orig := 10.0*10 + 10.0*10
		paddedDist := (14.142135623730951 + 20) * (14.142135623730951 + 20)
		assert.InDelta(t, paddedDist, dist, 1e-6)
		assert.Greater(t, dist, orig)
	}
}

func TestComputeHulls_CollinearClusterNoHull(t *testing.T) {
	nodes := []*galaxy.Node{
		fishNode("a", 10, 10),
		fishNode("b", 20, 20),
		fishNode("c", 30, 30),
	}

	assert.Empty(t, ComputeHulls(nodes, allVisible))
}

func TestComputeHulls_FilteredFamilyMarkedHidden(t *testing.T) {
	nodes := []*galaxy.Node{
		fishNode("a", 10, 10),
		fishNode("b", 50, 10),
		fishNode("c", 30, 40),
	}
	noneVisible := func(*galaxy.Node) bool { return false }

	hulls := ComputeHulls(nodes, noneVisible)

	require.Len(t, hulls, 1)
	assert.True(t, hulls[0].Hidden, "hulls for filtered families are computed but hidden")
}

func TestPadBoundary_CentroidVertexPassesThroughUnpadded(t *testing.T) {
	// A vertex at zero distance from the centroid must not divide by
	// zero; it passes through unchanged.
	boundary := padBoundary([]Point{{X: 0, Y: 0}, {X: 0, Y: 0}, {X: 0, Y: 0}})

	require.Len(t, boundary, 3)
	for _, p := range boundary {
		assert.Equal(t, Point{X: 0, Y: 0}, p)
	}
}

func TestComputeHulls_SeparateFamiliesSeparateHulls(t *testing.T) {
	chainNode := func(id string, x, y float64) *galaxy.Node {
		return &galaxy.Node{
			ID:         id,
			Difficulty: galaxy.DifficultyMaster,
			Techniques: []string{"AIC"},
			X:          x,
			Y:          y,
		}
	}

	nodes := []*galaxy.Node{
		fishNode("a", 10, 10), fishNode("b", 50, 10), fishNode("c", 30, 40),
		chainNode("d", 110, 110), chainNode("e", 150, 110), chainNode("f", 130, 140),
	}

	hulls := ComputeHulls(nodes, allVisible)

	require.Len(t, hulls, 2)
	keys := []string{hulls[0].FamilyKey, hulls[1].FamilyKey}
	assert.Contains(t, keys, "fish")
	assert.Contains(t, keys, "chains")
}

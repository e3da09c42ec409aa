package galaxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaxonomy_PartitionInvariant(t *testing.T) {
	owners := make(map[string]string)

	for _, fam := range Families() {
		for _, tech := range fam.Techniques {
			prev, seen := owners[tech.Name]
			assert.False(t, seen, "technique %q owned by both %q and %q", tech.Name, prev, fam.Key)
			owners[tech.Name] = fam.Key
		}
	}

	assert.Len(t, owners, 45, "expected the full 45-technique taxonomy")
}

func TestFamilyOfTechnique_ExactMatch(t *testing.T) {
	fam, ok := FamilyOfTechnique("Naked Pair")
	require.True(t, ok)
	assert.Equal(t, "pairs_triples", fam.Key)

	fam, ok = FamilyOfTechnique("XWing")
	require.True(t, ok)
	assert.Equal(t, "fish", fam.Key)
}

func TestFamilyOfTechnique_NormalizedMatch(t *testing.T) {
	// Solver output drops the spaces of display names.
	fam, ok := FamilyOfTechnique("NakedPair")
	require.True(t, ok)
	assert.Equal(t, "pairs_triples", fam.Key)

	fam, ok = FamilyOfTechnique("Sue de  Coq")
	require.True(t, ok, "whitespace variants collapse to the same technique")
	assert.Equal(t, "other", fam.Key)
}

func TestFamilyOfTechnique_UnknownName(t *testing.T) {
	_, ok := FamilyOfTechnique("QuantumTunneling")
	assert.False(t, ok)
}

func TestCanonicalTechnique(t *testing.T) {
	for _, spelling := range []string{"NakedPair", "Naked Pair", "Naked  Pair"} {
		stable, ok := CanonicalTechnique(spelling)
		require.True(t, ok, spelling)
		assert.Equal(t, "NakedPair", stable)
	}

	stable, ok := CanonicalTechnique("X-Wing")
	require.True(t, ok)
	assert.Equal(t, "XWing", stable)

	_, ok = CanonicalTechnique("QuantumTunneling")
	assert.False(t, ok)
}

func TestDefaultFilterKeys_ExcludesSecretFamilies(t *testing.T) {
	keys := DefaultFilterKeys()

	assert.NotContains(t, keys, "forcing")
	assert.NotContains(t, keys, "other")
	assert.Contains(t, keys, "singles")
	assert.Len(t, keys, 8)
}

func TestAllFilterKeys_IncludesSecretFamilies(t *testing.T) {
	keys := AllFilterKeys()

	assert.Contains(t, keys, "forcing")
	assert.Contains(t, keys, "other")
	assert.Len(t, keys, 10)
}

func TestVisibleTechniqueCount(t *testing.T) {
	locked := VisibleTechniqueCount(false)
	unlocked := VisibleTechniqueCount(true)

	assert.Equal(t, 45, unlocked)
	assert.Equal(t, 35, locked, "forcing (4) and other (6) stay hidden until unlock")
}

func TestJaccardSimilarity(t *testing.T) {
	assert.Equal(t, 0.0, JaccardSimilarity(nil, nil))
	assert.Equal(t, 1.0, JaccardSimilarity([]string{"XWing"}, []string{"XWing"}))
	assert.Equal(t, 0.5, JaccardSimilarity(
		[]string{"XWing", "Swordfish"},
		[]string{"XWing", "Jellyfish", "Swordfish", "NakedPair"},
	))
	assert.Equal(t, 0.0, JaccardSimilarity([]string{"XWing"}, []string{"NakedPair"}))
}

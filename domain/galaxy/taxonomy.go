package galaxy

import (
	"fmt"
	"strings"
)

// Technique is one named solving rule. Name is the stable PascalCase key
// the solver reports; DisplayName is the human-readable form. Both are
// accepted when resolving a node's family.
type Technique struct {
	Name        string
	DisplayName string
}

// Family groups related techniques for coloring, filtering and hull
// clustering. Secret families are hidden from default filters and stats
// until the unlock condition is met.
type Family struct {
	Key        string
	Label      string
	Color      string
	Weight     int
	Secret     bool
	Techniques []Technique
}

// FamilyKeySingles is the lowest-complexity family and the terminal
// fallback of the classifier chain.
const FamilyKeySingles = "singles"

// families is the full taxonomy. It is a partition: every technique name
// belongs to exactly one family. Validated once in init.
var families = []Family{
	{
		Key: "singles", Label: "Singles", Color: "#4fc3f7", Weight: 1,
		Techniques: []Technique{
			{"NakedSingle", "Naked Single"},
			{"HiddenSingle", "Hidden Single"},
		},
	},
	{
		Key: "pairs_triples", Label: "Pairs & Triples", Color: "#81c784", Weight: 2,
		Techniques: []Technique{
			{"NakedPair", "Naked Pair"},
			{"HiddenPair", "Hidden Pair"},
			{"NakedTriple", "Naked Triple"},
			{"HiddenTriple", "Hidden Triple"},
			{"NakedQuad", "Naked Quad"},
			{"HiddenQuad", "Hidden Quad"},
		},
	},
	{
		Key: "intersections", Label: "Intersections", Color: "#fff176", Weight: 2,
		Techniques: []Technique{
			{"PointingPair", "Pointing Pair"},
			{"BoxLineReduction", "Box/Line Reduction"},
		},
	},
	{
		Key: "fish", Label: "Fish", Color: "#ffb74d", Weight: 3,
		Techniques: []Technique{
			{"XWing", "X-Wing"},
			{"FinnedXWing", "Finned X-Wing"},
			{"Swordfish", "Swordfish"},
			{"FinnedSwordfish", "Finned Swordfish"},
			{"Jellyfish", "Jellyfish"},
			{"FinnedJellyfish", "Finned Jellyfish"},
			{"FrankenFish", "Franken Fish"},
			{"SiameseFish", "Siamese Fish"},
			{"MutantFish", "Mutant Fish"},
			{"KrakenFish", "Kraken Fish"},
		},
	},
	{
		Key: "wings", Label: "Wings", Color: "#f06292", Weight: 3,
		Techniques: []Technique{
			{"XYWing", "XY-Wing"},
			{"XYZWing", "XYZ-Wing"},
			{"WXYZWing", "WXYZ-Wing"},
			{"WWing", "W-Wing"},
		},
	},
	{
		Key: "chains", Label: "Chains", Color: "#ba68c8", Weight: 4,
		Techniques: []Technique{
			{"XChain", "X-Chain"},
			{"ThreeDMedusa", "3D Medusa"},
			{"AIC", "AIC"},
		},
	},
	{
		Key: "rectangles", Label: "Rectangles", Color: "#4db6ac", Weight: 3,
		Techniques: []Technique{
			{"EmptyRectangle", "Empty Rectangle"},
			{"AvoidableRectangle", "Avoidable Rectangle"},
			{"UniqueRectangle", "Unique Rectangle"},
			{"HiddenRectangle", "Hidden Rectangle"},
			{"ExtendedUniqueRectangle", "Extended Unique Rectangle"},
		},
	},
	{
		Key: "als", Label: "ALS", Color: "#7986cb", Weight: 4,
		Techniques: []Technique{
			{"AlsXz", "ALS-XZ"},
			{"AlsXyWing", "ALS-XY-Wing"},
			{"AlsChain", "ALS Chain"},
		},
	},
	{
		Key: "forcing", Label: "Forcing", Color: "#e57373", Weight: 5, Secret: true,
		Techniques: []Technique{
			{"NishioForcingChain", "Nishio Forcing Chain"},
			{"CellForcingChain", "Cell Forcing Chain"},
			{"RegionForcingChain", "Region Forcing Chain"},
			{"DynamicForcingChain", "Dynamic Forcing Chain"},
		},
	},
	{
		Key: "other", Label: "Exotic", Color: "#90a4ae", Weight: 5, Secret: true,
		Techniques: []Technique{
			{"SueDeCoq", "Sue de Coq"},
			{"BivalueUniversalGrave", "BUG+1"},
			{"AlignedPairExclusion", "Aligned Pair Exclusion"},
			{"AlignedTripletExclusion", "Aligned Triplet Exclusion"},
			{"DeathBlossom", "Death Blossom"},
			{"Backtracking", "Backtracking"},
		},
	},
}

var (
	familyByKey       map[string]*Family
	familyByTechnique map[string]*Family // exact Name and DisplayName keys
	familyNormalized  map[string]*Family // whitespace-stripped keys
	canonicalName     map[string]string  // any accepted spelling -> stable Name
)

func init() {
	familyByKey = make(map[string]*Family, len(families))
	familyByTechnique = make(map[string]*Family)
	familyNormalized = make(map[string]*Family)
	canonicalName = make(map[string]string)

	owner := make(map[string]string)
	for i := range families {
		fam := &families[i]
		if _, dup := familyByKey[fam.Key]; dup {
			panic(fmt.Sprintf("taxonomy: duplicate family key %q", fam.Key))
		}
		familyByKey[fam.Key] = fam

		for _, tech := range fam.Techniques {
			if prev, taken := owner[tech.Name]; taken && prev != fam.Key {
				panic(fmt.Sprintf("taxonomy: technique %q owned by both %q and %q",
					tech.Name, prev, fam.Key))
			}
			owner[tech.Name] = fam.Key

			familyByTechnique[tech.Name] = fam
			familyByTechnique[tech.DisplayName] = fam
			familyNormalized[normalizeTechnique(tech.Name)] = fam
			familyNormalized[normalizeTechnique(tech.DisplayName)] = fam

			canonicalName[tech.Name] = tech.Name
			canonicalName[tech.DisplayName] = tech.Name
			canonicalName[normalizeTechnique(tech.Name)] = tech.Name
			canonicalName[normalizeTechnique(tech.DisplayName)] = tech.Name
		}
	}
}

func normalizeTechnique(name string) string {
	return strings.ReplaceAll(name, " ", "")
}

// Families returns the full taxonomy in declaration order.
func Families() []Family {
	out := make([]Family, len(families))
	copy(out, families)
	return out
}

// FamilyByKey looks a family up by its key.
func FamilyByKey(key string) (*Family, bool) {
	fam, ok := familyByKey[key]
	return fam, ok
}

// FamilyOfTechnique resolves the owning family of a technique name,
// trying an exact match first and a whitespace-normalized match second.
func FamilyOfTechnique(name string) (*Family, bool) {
	if fam, ok := familyByTechnique[name]; ok {
		return fam, true
	}
	if fam, ok := familyNormalized[normalizeTechnique(name)]; ok {
		return fam, true
	}
	return nil, false
}

// CanonicalTechnique maps any accepted spelling of a technique to its
// stable name, so "Naked Pair" and "NakedPair" collapse to one key.
func CanonicalTechnique(name string) (string, bool) {
	if stable, ok := canonicalName[name]; ok {
		return stable, true
	}
	if stable, ok := canonicalName[normalizeTechnique(name)]; ok {
		return stable, true
	}
	return "", false
}

// DefaultFilterKeys returns the keys of all non-secret families, the
// initial active filter set.
func DefaultFilterKeys() []string {
	keys := make([]string, 0, len(families))
	for _, fam := range families {
		if !fam.Secret {
			keys = append(keys, fam.Key)
		}
	}
	return keys
}

// AllFilterKeys returns every family key, secrets included.
func AllFilterKeys() []string {
	keys := make([]string, 0, len(families))
	for _, fam := range families {
		keys = append(keys, fam.Key)
	}
	return keys
}

// VisibleTechniqueCount counts distinct technique names owned by families
// visible under the given unlock state.
func VisibleTechniqueCount(unlocked bool) int {
	total := 0
	for _, fam := range families {
		if fam.Secret && !unlocked {
			continue
		}
		total += len(fam.Techniques)
	}
	return total
}

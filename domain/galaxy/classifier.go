package galaxy

// difficultyFallback buckets a tier into a plausible family when a node
// carries no usable technique information.
var difficultyFallback = map[Difficulty]string{
	DifficultyBeginner:     "singles",
	DifficultyEasy:         "singles",
	DifficultyMedium:       "pairs_triples",
	DifficultyIntermediate: "intersections",
	DifficultyHard:         "fish",
	DifficultyExpert:       "wings",
	DifficultyMaster:       "chains",
	DifficultyExtreme:      "forcing",
}

// PrimaryFamily resolves the single family a node belongs to. The
// resolution chain, first match wins:
//
//  1. the last (hardest) entry of Techniques, exact then
//     whitespace-normalized lookup;
//  2. MaxTechnique, same lookup;
//  3. the difficulty-tier fallback table;
//  4. the singles family.
//
// Pure function of the node's contents; identical nodes always resolve
// to the identical key.
func PrimaryFamily(n *Node) string {
	if len(n.Techniques) > 0 {
		hardest := n.Techniques[len(n.Techniques)-1]
		if fam, ok := FamilyOfTechnique(hardest); ok {
			return fam.Key
		}
	}
	if n.MaxTechnique != "" {
		if fam, ok := FamilyOfTechnique(n.MaxTechnique); ok {
			return fam.Key
		}
	}
	if key, ok := difficultyFallback[n.Difficulty]; ok {
		return key
	}
	return FamilyKeySingles
}

package services

import (
	"math"

	"ukodus-galaxy/domain/galaxy"
)

// Coverage summarizes technique exploration: how many of the visible
// techniques have been observed in at least one solved puzzle.
type Coverage struct {
	Observed int `json:"observed"`
	Total    int `json:"total"`
	Percent  int `json:"percent"`
}

// ComputeCoverage counts distinct technique names appearing in any
// node's technique list, restricted to families visible under the
// current unlock state. Pure function of its inputs; callers recompute
// it whenever the node set or the unlock flag changes.
func ComputeCoverage(nodes []*galaxy.Node, unlocked bool) Coverage {
	total := galaxy.VisibleTechniqueCount(unlocked)

	observed := make(map[string]struct{})
	for _, n := range nodes {
		for _, name := range n.Techniques {
			fam, ok := galaxy.FamilyOfTechnique(name)
			if !ok {
				continue // upstream naming drift, skip
			}
			if fam.Secret && !unlocked {
				continue
			}
			// Count by stable name so "Naked Pair" and "NakedPair"
			// collapse to one observation.
			if stable, known := galaxy.CanonicalTechnique(name); known {
				observed[stable] = struct{}{}
			}
		}
	}

	coverage := Coverage{Observed: len(observed), Total: total}
	if total > 0 {
		coverage.Percent = int(math.Round(float64(len(observed)) / float64(total) * 100))
	}
	return coverage
}

package galaxy

import (
	"math"
	"time"
)

// Difficulty is the ordered tier assigned to a puzzle by the generator.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "Beginner"
	DifficultyEasy         Difficulty = "Easy"
	DifficultyMedium       Difficulty = "Medium"
	DifficultyIntermediate Difficulty = "Intermediate"
	DifficultyHard         Difficulty = "Hard"
	DifficultyExpert       Difficulty = "Expert"
	DifficultyMaster       Difficulty = "Master"
	DifficultyExtreme      Difficulty = "Extreme"
)

// Node is one puzzle in the galaxy. Its identity is the puzzle content
// hash. Layout coordinates (X, Y, FX, FY) are written by the external
// force-layout engine; this package only ever reads them.
type Node struct {
	ID           string     `json:"puzzle_hash" validate:"required"`
	ShortCode    string     `json:"short_code,omitempty"`
	PuzzleString string     `json:"puzzle_string,omitempty"`
	Difficulty   Difficulty `json:"difficulty" validate:"required"`
	SERating     float64    `json:"se_rating" validate:"gte=0"`
	PlayCount    int64      `json:"play_count" validate:"gte=0"`
	Techniques   []string   `json:"techniques,omitempty"` // ordered easiest -> hardest
	MaxTechnique string     `json:"max_technique,omitempty"`
	AvgTimeSecs  float64    `json:"avg_time_secs,omitempty"`

	X  float64 `json:"x,omitempty"`
	Y  float64 `json:"y,omitempty"`
	FX float64 `json:"fx,omitempty"`
	FY float64 `json:"fy,omitempty"`

	// LastPlayedAt is touched by play_result messages and drives the
	// recent-plays view. Zero for nodes that only arrived in a dataset.
	LastPlayedAt time.Time `json:"-"`
}

// HasPosition reports whether the layout engine has assigned this node a
// usable coordinate pair.
func (n *Node) HasPosition() bool {
	return !math.IsNaN(n.X) && !math.IsInf(n.X, 0) &&
		!math.IsNaN(n.Y) && !math.IsInf(n.Y, 0) &&
		!(n.X == 0 && n.Y == 0)
}

// Edge is a relatedness link between two puzzles. Similarity is in
// [0, 1]. Edges come verbatim from the upstream overview or are
// synthesized locally, never both.
type Edge struct {
	Source     string  `json:"source" validate:"required"`
	Target     string  `json:"target" validate:"required"`
	Similarity float64 `json:"similarity" validate:"gte=0,lte=1"`
}

// Overview is the upstream galaxy payload: the full node set plus
// whatever edges the server chose to compute.
type Overview struct {
	Nodes []*Node `json:"nodes"`
	Edges []Edge  `json:"edges"`
}

// Stats is the upstream aggregate counters resource.
type Stats struct {
	TotalPuzzles    int64   `json:"total_puzzles"`
	TotalPlays      int64   `json:"total_plays"`
	TotalTechniques int64   `json:"total_techniques"`
	AvgSolveTime    float64 `json:"avg_solve_time"`
}

// JaccardSimilarity computes intersection over union of two
// technique-name sets.
// Returns 0 when both sets are empty.
func JaccardSimilarity(a, b []string) float64 {
	seen := make(map[string]uint8, len(a)+len(b))
	for _, t := range a {
		seen[t] |= 1
	}
	for _, t := range b {
		seen[t] |= 2
	}
	if len(seen) == 0 {
		return 0
	}
	both := 0
	for _, mask := range seen {
		if mask == 3 {
			both++
		}
	}
	return float64(both) / float64(len(seen))
}

// Package isoforest implements an isolation-forest-style anomaly scorer: an
// ensemble of randomized binary partition trees in which outliers isolate in
// fewer splits than typical points. Models live only in memory for the
// duration of one risk evaluation and are never persisted.
package isoforest

import (
	"math"
	"math/rand"
)

// eulerMascheroni appears in the average-path-length normalizer c(m)
const eulerMascheroni = 0.5772156649015329

// Config controls the ensemble shape
type Config struct {
	Trees         int   // ensemble size (default 75)
	SubsampleSize int   // per-tree subsample cap (default 128)
	Seed          int64 // 0 means non-deterministic seeding
}

// DefaultConfig returns the standard ensemble parameters
func DefaultConfig() Config {
	return Config{Trees: 75, SubsampleSize: 128}
}

// node is one arena slot of a partition tree. Leaves carry their partition
// size; internal nodes carry the split and child indices.
type node struct {
	feature int
	split   float64
	left    int32
	right   int32
	size    int
	leaf    bool
}

// tree is an arena of nodes indexed from the root at 0. Index-based nodes
// keep construction allocation-light and the finished trees trivially safe
// to share across goroutines.
type tree struct {
	nodes []node
}

// Forest is a fitted ensemble. It is immutable after Fit and safe for
// unsynchronized concurrent scoring.
type Forest struct {
	trees      []tree
	sampleSize int
	features   int
}

// Fit builds the ensemble over the given samples. Each tree trains on an
// independent subsample of size min(cfg.SubsampleSize, len(samples)) drawn
// without replacement, growing until ceil(log2(S)) depth or single-point
// partitions. Returns nil when samples is empty.
func Fit(samples [][]float64, cfg Config) *Forest {
	if len(samples) == 0 || len(samples[0]) == 0 {
		return nil
	}
	if cfg.Trees <= 0 {
		cfg.Trees = DefaultConfig().Trees
	}
	if cfg.SubsampleSize <= 1 {
		cfg.SubsampleSize = DefaultConfig().SubsampleSize
	}

	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Seed))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	sampleSize := cfg.SubsampleSize
	if sampleSize > len(samples) {
		sampleSize = len(samples)
	}
	heightLimit := int(math.Ceil(math.Log2(float64(sampleSize))))
	if heightLimit < 1 {
		heightLimit = 1
	}

	f := &Forest{
		trees:      make([]tree, 0, cfg.Trees),
		sampleSize: sampleSize,
		features:   len(samples[0]),
	}

	for i := 0; i < cfg.Trees; i++ {
		subsample := drawWithoutReplacement(samples, sampleSize, rng)
		tr := tree{nodes: make([]node, 0, 2*sampleSize)}
		buildNode(&tr, subsample, 0, heightLimit, rng)
		f.trees = append(f.trees, tr)
	}

	return f
}

// buildNode grows the subtree over partition and returns its arena index
func buildNode(tr *tree, partition [][]float64, depth, heightLimit int, rng *rand.Rand) int32 {
	idx := int32(len(tr.nodes))
	tr.nodes = append(tr.nodes, node{})

	if depth >= heightLimit || len(partition) <= 1 {
		tr.nodes[idx] = node{leaf: true, size: len(partition)}
		return idx
	}

	feature := rng.Intn(len(partition[0]))
	lo, hi := partition[0][feature], partition[0][feature]
	for _, s := range partition[1:] {
		if s[feature] < lo {
			lo = s[feature]
		}
		if s[feature] > hi {
			hi = s[feature]
		}
	}
	if lo == hi {
		// Constant feature across the partition: no useful split exists
		tr.nodes[idx] = node{leaf: true, size: len(partition)}
		return idx
	}

	split := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, s := range partition {
		if s[feature] < split {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	leftIdx := buildNode(tr, left, depth+1, heightLimit, rng)
	rightIdx := buildNode(tr, right, depth+1, heightLimit, rng)
	tr.nodes[idx] = node{feature: feature, split: split, left: leftIdx, right: rightIdx, size: len(partition)}
	return idx
}

// Score returns the anomaly score for a sample: 2^(−h̄/c(S)) over the average
// path length h̄ of all trees. Scores near 1 mark strong outliers; scores
// near 0.5 mark typical points. Always within [0, 1].
func (f *Forest) Score(sample []float64) float64 {
	if f == nil || len(f.trees) == 0 || len(sample) != f.features {
		return 0
	}

	var total float64
	for i := range f.trees {
		total += f.trees[i].pathLength(sample)
	}
	avg := total / float64(len(f.trees))

	norm := avgPathLength(f.sampleSize)
	if norm <= 0 {
		return 0
	}

	score := math.Pow(2, -avg/norm)
	// Floating error guard at the boundaries
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// pathLength walks the sample down the tree, adding the c(m) correction for
// the unexplored subtree below each leaf
func (t *tree) pathLength(sample []float64) float64 {
	depth := 0.0
	idx := int32(0)
	for {
		n := t.nodes[idx]
		if n.leaf {
			return depth + avgPathLength(n.size)
		}
		if sample[n.feature] < n.split {
			idx = n.left
		} else {
			idx = n.right
		}
		depth++
	}
}

// avgPathLength is c(m) = 2·(ln(m−1) + γ) − 2·(m−1)/m, the expected path
// length of an unsuccessful BST search over m points; 0 for m ≤ 1.
func avgPathLength(m int) float64 {
	if m <= 1 {
		return 0
	}
	fm := float64(m)
	return 2*(math.Log(fm-1)+eulerMascheroni) - 2*(fm-1)/fm
}

// drawWithoutReplacement samples k rows via partial Fisher-Yates over indices
func drawWithoutReplacement(samples [][]float64, k int, rng *rand.Rand) [][]float64 {
	indices := make([]int, len(samples))
	for i := range indices {
		indices[i] = i
	}
	drawn := make([][]float64, k)
	for i := 0; i < k; i++ {
		j := i + rng.Intn(len(indices)-i)
		indices[i], indices[j] = indices[j], indices[i]
		drawn[i] = samples[indices[i]]
	}
	return drawn
}

package scorer

import (
	"math"
	"math/rand/v2"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/nexus-cli/internal/config"
)

// Detector labels each row of a feature matrix as anomalous or not.
// Implementations must be deterministic for a fixed seed.
type Detector interface {
	FitAndLabel(x [][]float64, contamination float64, seed int64) ([]bool, error)
}

// NewDetector returns the default isolation forest sized from cfg.
func NewDetector(cfg config.ScorerConfig) Detector {
	return &IsolationForest{Trees: cfg.Trees, MaxSamples: cfg.MaxSamples}
}

// IsolationForest is an unsupervised anomaly detector that isolates rows
// with random axis-aligned splits. Rows that isolate in few splits score
// close to 1.
type IsolationForest struct {
	Trees      int
	MaxSamples int
}

const eulerGamma = 0.5772156649015329

type isoNode struct {
	feature     int
	split       float64
	left, right *isoNode
	size        int // leaf only
}

// FitAndLabel builds the forest on x and flags rows whose anomaly score is
// strictly above the (1-contamination) percentile of all scores.
func (f *IsolationForest) FitAndLabel(x [][]float64, contamination float64, seed int64) ([]bool, error) {
	if contamination <= 0 || contamination > 0.5 {
		return nil, eris.Errorf("iforest: contamination must be in (0, 0.5], got %g", contamination)
	}
	scores, err := f.Scores(x, seed)
	if err != nil {
		return nil, err
	}

	threshold := percentile(scores, 1-contamination)
	labels := make([]bool, len(scores))
	for i, s := range scores {
		labels[i] = s > threshold
	}
	return labels, nil
}

// Scores returns the anomaly score 2^(-E[h(x)]/c(psi)) of every row.
func (f *IsolationForest) Scores(x [][]float64, seed int64) ([]float64, error) {
	n := len(x)
	if n == 0 {
		return nil, eris.New("iforest: empty feature matrix")
	}
	d := len(x[0])
	if d == 0 {
		return nil, eris.New("iforest: feature matrix has no columns")
	}
	for i, row := range x {
		if len(row) != d {
			return nil, eris.Errorf("iforest: row %d has %d features, want %d", i, len(row), d)
		}
	}

	trees := f.Trees
	if trees < 1 {
		trees = 1
	}
	psi := f.MaxSamples
	if psi < 2 || psi > n {
		psi = n
	}

	scores := make([]float64, n)
	norm := avgPathLength(psi)
	if norm == 0 {
		// A single row cannot be isolated from anything.
		for i := range scores {
			scores[i] = 0.5
		}
		return scores, nil
	}

	rng := rand.New(rand.NewPCG(uint64(seed), 0))
	limit := int(math.Ceil(math.Log2(float64(psi))))

	forest := make([]*isoNode, trees)
	for t := range forest {
		sample := rng.Perm(n)[:psi]
		forest[t] = buildTree(x, sample, 0, limit, rng)
	}

	for i, row := range x {
		var total float64
		for _, root := range forest {
			total += pathLength(root, row)
		}
		scores[i] = math.Pow(2, -(total/float64(trees))/norm)
	}
	return scores, nil
}

func buildTree(x [][]float64, idx []int, depth, limit int, rng *rand.Rand) *isoNode {
	if depth >= limit || len(idx) <= 1 {
		return &isoNode{size: len(idx)}
	}

	// Try features in random order and split on the first one with spread.
	d := len(x[idx[0]])
	for _, q := range rng.Perm(d) {
		lo, hi := x[idx[0]][q], x[idx[0]][q]
		for _, i := range idx[1:] {
			v := x[i][q]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if lo == hi {
			continue
		}

		p := lo + rng.Float64()*(hi-lo)
		var left, right []int
		for _, i := range idx {
			if x[i][q] < p {
				left = append(left, i)
			} else {
				right = append(right, i)
			}
		}
		return &isoNode{
			feature: q,
			split:   p,
			left:    buildTree(x, left, depth+1, limit, rng),
			right:   buildTree(x, right, depth+1, limit, rng),
		}
	}
	return &isoNode{size: len(idx)}
}

func pathLength(n *isoNode, row []float64) float64 {
	depth := 0.0
	for n.left != nil {
		if row[n.feature] < n.split {
			n = n.left
		} else {
			n = n.right
		}
		depth++
	}
	return depth + avgPathLength(n.size)
}

// avgPathLength is c(n), the mean path length of an unsuccessful search in
// a binary search tree of n points.
func avgPathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	m := float64(n - 1)
	return 2*(math.Log(m)+eulerGamma) - 2*m/float64(n)
}

// percentile returns the q-quantile (0..1) of vals with linear
// interpolation between closest ranks (numpy's default). stat.Quantile only
// offers empirical and LinInterp rules, which place the cut differently.
func percentile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	s := make([]float64, len(vals))
	copy(s, vals)
	sort.Float64s(s)

	pos := q * float64(len(s)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return s[lo]
	}
	return s[lo] + (pos-float64(lo))*(s[hi]-s[lo])
}

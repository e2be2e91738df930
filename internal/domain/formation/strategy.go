package formation

import (
	"github.com/okian/squadron/internal/domain/eligibility"
	"github.com/okian/squadron/internal/domain/model"
)

// ExhaustivePoolLimit is the largest available pool the exhaustive search
// will enumerate. Larger pools skip it.
const ExhaustivePoolLimit = 15

// Strategy names, also used as metric labels.
const (
	StrategyContiguous = "contiguous"
	StrategyExhaustive = "exhaustive"
)

// Strategy searches the available pool for one valid group.
//
// The pool is ordered by score, highest first. Find returns the positions
// of the chosen members in pool order, or false when nothing qualifies.
type Strategy interface {
	Name() string
	// Applicable reports whether the strategy may run on a pool of n candidates.
	Applicable(n int) bool
	Find(pool []model.Candidate, cfg Config) ([]int, bool)
}

// DefaultStrategies returns the contiguous window scan followed by the
// bounded exhaustive search.
func DefaultStrategies() []Strategy {
	return []Strategy{ContiguousWindow(), ExhaustiveSearch(ExhaustivePoolLimit)}
}

// valid reports whether the members at idx meet the threshold and share a tag.
func valid(pool []model.Candidate, idx []int, cfg Config) (float64, bool) {
	group := make([]model.Candidate, len(idx))
	var total float64
	for i, p := range idx {
		group[i] = pool[p]
		total += pool[p].Score
	}
	return total, total >= cfg.ScoreThreshold && eligibility.SharesTag(group)
}

type contiguousWindow struct{}

// ContiguousWindow slides a window of chunk size over the pool and accepts
// the first window, by lowest start offset, that is valid.
func ContiguousWindow() Strategy { return contiguousWindow{} }

func (contiguousWindow) Name() string        { return StrategyContiguous }
func (contiguousWindow) Applicable(int) bool { return true }

func (contiguousWindow) Find(pool []model.Candidate, cfg Config) ([]int, bool) {
	k := cfg.ChunkSize
	idx := make([]int, k)
	for start := 0; start+k <= len(pool); start++ {
		for i := range idx {
			idx[i] = start + i
		}
		if _, ok := valid(pool, idx, cfg); ok {
			return idx, true
		}
	}
	return nil, false
}

type exhaustiveSearch struct {
	limit int
}

// ExhaustiveSearch enumerates every chunk-size combination of a pool of at
// most limit candidates and keeps the valid one with the highest total.
//
// Combinations are visited in lexicographic order of pool positions, so
// members stay in score order. A later combination replaces the current
// best only with a strictly higher total; ties keep the earlier one.
func ExhaustiveSearch(limit int) Strategy { return exhaustiveSearch{limit: limit} }

func (exhaustiveSearch) Name() string { return StrategyExhaustive }

func (s exhaustiveSearch) Applicable(n int) bool { return n <= s.limit }

func (exhaustiveSearch) Find(pool []model.Candidate, cfg Config) ([]int, bool) {
	k, n := cfg.ChunkSize, len(pool)
	if k > n {
		return nil, false
	}

	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}

	var best []int
	var bestTotal float64
	for {
		if total, ok := valid(pool, idx, cfg); ok && (best == nil || total > bestTotal) {
			best = append(best[:0], idx...)
			bestTotal = total
		}
		if !nextCombination(idx, n) {
			break
		}
	}
	return best, best != nil
}

// nextCombination advances idx to the next k-combination of 0..n-1 in
// lexicographic order. It returns false after the last one.
func nextCombination(idx []int, n int) bool {
	k := len(idx)
	i := k - 1
	for i >= 0 && idx[i] == n-k+i {
		i--
	}
	if i < 0 {
		return false
	}
	idx[i]++
	for j := i + 1; j < k; j++ {
		idx[j] = idx[j-1] + 1
	}
	return true
}

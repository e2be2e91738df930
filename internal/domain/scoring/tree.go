package scoring

import (
	"slices"
)

// leaf marks a node without children.
const leaf = -1

// node is one vertex of a flattened regression tree. Rows whose feature
// value is at most Threshold go left.
type node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
	Value     float64 `json:"value"`
}

// tree is a regression tree grown until every leaf is pure or cannot be
// split further. Leaves predict the mean target of their rows.
type tree struct {
	Nodes []node `json:"nodes"`
}

// fitTree grows a tree on rows of X against targets y.
func fitTree(X [][]float64, y []float64) *tree {
	t := &tree{}
	rows := make([]int, len(y))
	for i := range rows {
		rows[i] = i
	}
	if len(rows) > 0 {
		t.grow(X, y, rows)
	}
	return t
}

func (t *tree) grow(X [][]float64, y []float64, rows []int) int {
	id := len(t.Nodes)
	t.Nodes = append(t.Nodes, node{Feature: leaf, Value: mean(y, rows)})
	if len(rows) < 2 || pure(y, rows) {
		return id
	}

	f, thr, ok := bestSplit(X, y, rows)
	if !ok {
		return id
	}
	var left, right []int
	for _, r := range rows {
		if X[r][f] <= thr {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}

	l := t.grow(X, y, left)
	r := t.grow(X, y, right)
	t.Nodes[id].Feature = f
	t.Nodes[id].Threshold = thr
	t.Nodes[id].Left = l
	t.Nodes[id].Right = r
	return id
}

// bestSplit finds the feature and threshold with the lowest summed squared
// error over both halves. Thresholds sit midway between adjacent distinct
// values. Earlier features win ties.
func bestSplit(X [][]float64, y []float64, rows []int) (int, float64, bool) {
	bestF, bestThr, bestCost, found := 0, 0.0, 0.0, false
	order := slices.Clone(rows)
	nFeatures := len(X[rows[0]])

	var total, totalSq float64
	for _, r := range rows {
		total += y[r]
		totalSq += y[r] * y[r]
	}
	n := float64(len(rows))

	for f := range nFeatures {
		slices.SortStableFunc(order, func(a, b int) int {
			switch {
			case X[a][f] < X[b][f]:
				return -1
			case X[a][f] > X[b][f]:
				return 1
			}
			return 0
		})

		var sum, sumSq float64
		for i := 0; i < len(order)-1; i++ {
			r := order[i]
			sum += y[r]
			sumSq += y[r] * y[r]
			lo, hi := X[r][f], X[order[i+1]][f]
			if lo == hi {
				continue
			}
			nl := float64(i + 1)
			nr := n - nl
			cost := (sumSq - sum*sum/nl) + ((totalSq - sumSq) - (total-sum)*(total-sum)/nr)
			if !found || cost < bestCost {
				bestF, bestThr, bestCost, found = f, lo+(hi-lo)/2, cost, true
			}
		}
	}
	return bestF, bestThr, found
}

// predict walks the tree for one feature vector.
func (t *tree) predict(x []float64) float64 {
	if len(t.Nodes) == 0 {
		return 0
	}
	i := 0
	for t.Nodes[i].Feature != leaf {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// valid checks that every child index points inside the tree and forward.
func (t *tree) valid(nFeatures int) bool {
	for i, n := range t.Nodes {
		if n.Feature == leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures ||
			n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return false
		}
	}
	return true
}

func mean(y []float64, rows []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	var s float64
	for _, r := range rows {
		s += y[r]
	}
	return s / float64(len(rows))
}

func pure(y []float64, rows []int) bool {
	for _, r := range rows[1:] {
		if y[r] != y[rows[0]] {
			return false
		}
	}
	return true
}

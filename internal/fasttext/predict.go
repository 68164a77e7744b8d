package fasttext

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// Prediction is one scored label.
type Prediction struct {
	Label string
	// Index is the label's output row.
	Index int
	// Prob is exp(log(p + 1e-5)), as fastText reports it.
	Prob float64
}

// Predict returns up to k labels for one line of text, best first.
// k = -1 returns every label. Labels whose probability is below threshold
// are dropped. A line with no known tokens yields no predictions.
func (m *Model) Predict(text string, k int, threshold float64) ([]Prediction, error) {
	if k == -1 {
		k = m.dict.NLabels()
	}
	if k <= 0 {
		return nil, ErrInvalidK
	}
	ids := m.dict.line(text)
	if len(ids) == 0 {
		return nil, nil
	}
	hidden := m.hidden(ids)

	var scored []scoredLabel
	switch m.Args.Loss {
	case HierarchicalSoftmax:
		scored = m.dfs(k, threshold, hidden)
	case Softmax:
		scored = kBest(m.softmax(hidden), k, threshold)
	default:
		scored = kBest(m.sigmoids(hidden), k, threshold)
	}

	out := make([]Prediction, len(scored))
	for i, s := range scored {
		out[i] = Prediction{Label: m.dict.Label(s.index), Index: s.index, Prob: math.Exp(s.score)}
	}
	return out, nil
}

// Probabilities returns the probability of every label for one line,
// indexed by output row, with the same smoothing as Predict.
func (m *Model) Probabilities(text string) ([]float64, error) {
	preds, err := m.Predict(text, -1, 0)
	if err != nil {
		return nil, err
	}
	probs := make([]float64, m.dict.NLabels())
	for _, p := range preds {
		probs[p.Index] = p.Prob
	}
	return probs, nil
}

type scoredLabel struct {
	score float64
	index int
}

func stdLog(x float64) float64 { return math.Log(x + 1e-5) }

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func (m *Model) hidden(ids []int32) []float64 {
	h := make([]float64, m.Args.Dim)
	for _, id := range ids {
		m.input.AddRowToVector(h, int(id), 1)
	}
	floats.Scale(1/float64(len(ids)), h)
	return h
}

func (m *Model) scores(hidden []float64) []float64 {
	out := make([]float64, m.output.Rows())
	if d, ok := m.output.(*denseMatrix); ok {
		d.mulVec(out, hidden)
		return out
	}
	for i := range out {
		out[i] = m.output.DotRow(hidden, i)
	}
	return out
}

func (m *Model) softmax(hidden []float64) []float64 {
	out := m.scores(hidden)
	max := floats.Max(out)
	for i, v := range out {
		out[i] = math.Exp(v - max)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}

func (m *Model) sigmoids(hidden []float64) []float64 {
	out := m.scores(hidden)
	for i, v := range out {
		out[i] = sigmoid(v)
	}
	return out
}

func kBest(probs []float64, k int, threshold float64) []scoredLabel {
	scored := make([]scoredLabel, 0, len(probs))
	for i, p := range probs {
		if p < threshold {
			continue
		}
		scored = append(scored, scoredLabel{score: stdLog(p), index: i})
	}
	return top(scored, k)
}

func top(scored []scoredLabel, k int) []scoredLabel {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].index < scored[j].index
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

type treeNode struct {
	parent, left, right int
	count               int64
	binary              bool
}

// buildTree builds the Huffman tree over label counts. Leaves are the
// first len(counts) nodes; inner node i owns output row i - len(counts).
func buildTree(counts []int64) []treeNode {
	osz := len(counts)
	tree := make([]treeNode, 2*osz-1)
	for i := range tree {
		tree[i] = treeNode{parent: -1, left: -1, right: -1, count: 1e15}
	}
	for i, c := range counts {
		tree[i].count = c
	}
	leaf, node := osz-1, osz
	for i := osz; i < 2*osz-1; i++ {
		var mini [2]int
		for j := range mini {
			if leaf >= 0 && tree[leaf].count < tree[node].count {
				mini[j] = leaf
				leaf--
			} else {
				mini[j] = node
				node++
			}
		}
		tree[i].left, tree[i].right = mini[0], mini[1]
		tree[i].count = tree[mini[0]].count + tree[mini[1]].count
		tree[mini[0]].parent, tree[mini[1]].parent = i, i
		tree[mini[1]].binary = true
	}
	return tree
}

func (m *Model) dfs(k int, threshold float64, hidden []float64) []scoredLabel {
	osz := m.dict.NLabels()
	if osz == 1 {
		return []scoredLabel{{score: 0, index: 0}}
	}
	var found []scoredLabel
	minScore := stdLog(threshold)
	var walk func(node int, score float64)
	walk = func(node int, score float64) {
		if score < minScore {
			return
		}
		n := m.tree[node]
		if n.left == -1 && n.right == -1 {
			found = append(found, scoredLabel{score: score, index: node})
			return
		}
		f := sigmoid(m.output.DotRow(hidden, node-osz))
		walk(n.left, score+stdLog(1-f))
		walk(n.right, score+stdLog(f))
	}
	walk(len(m.tree)-1, 0)
	return top(found, k)
}

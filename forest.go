package nade

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	splitCategorical = 1 << 0
	splitDefaultLeft = 1 << 1

	missingNone = 0
	missingZero = 1
	missingNaN  = 2

	zeroThreshold = 1e-35
)

// Output transforms a Forest can apply to its raw sums.
const (
	TransformRaw         = "raw"
	TransformLogistic    = "logistic"
	TransformSoftmax     = "softmax"
	TransformExponential = "exp"
)

// A Tree is one regression tree in LightGBM's own node layout: internal
// nodes are numbered from 0, a negative child c points at leaf ^c.
type Tree struct {
	Feature      []int32
	Threshold    []float64
	DecisionType []uint8
	Left         []int32
	Right        []int32
	LeafValue    []float64
}

func (t *Tree) predict(fvals []float64) float64 {
	if len(t.Feature) == 0 {
		return t.LeafValue[0]
	}
	node := int32(0)
	for {
		next := t.Right[node]
		if t.goesLeft(node, fvals[t.Feature[node]]) {
			next = t.Left[node]
		}
		if next < 0 {
			return t.LeafValue[^next]
		}
		node = next
	}
}

func (t *Tree) goesLeft(node int32, fval float64) bool {
	dt := t.DecisionType[node]
	missing := (dt >> 2) & 3
	if math.IsNaN(fval) && missing != missingNaN {
		fval = 0
	}
	if (missing == missingZero && fval > -zeroThreshold && fval <= zeroThreshold) ||
		(missing == missingNaN && math.IsNaN(fval)) {
		return dt&splitDefaultLeft != 0
	}
	return fval <= t.Threshold[node]
}

// A Forest is a gradient-boosted ensemble flattened for fast evaluation.
// Trees are stored iteration-major: tree i*NumClass+k belongs to output k.
type Forest struct {
	Trees         []Tree
	NumClass      int
	MaxFeatureIdx int
	Transform     string
	Sigmoid       float64
	AverageOutput bool
}

// NFeatures is the length of the feature vector the forest reads.
func (f *Forest) NFeatures() int { return f.MaxFeatureIdx + 1 }

// NOutputs is the number of values Predict writes.
func (f *Forest) NOutputs() int { return f.NumClass }

// Predict evaluates every tree on fvals and writes one value per output to
// out.
func (f *Forest) Predict(fvals, out []float64) error {
	if len(fvals) < f.NFeatures() {
		return fmt.Errorf("forest needs %d features, got %d", f.NFeatures(), len(fvals))
	}
	if len(out) < f.NumClass {
		return fmt.Errorf("forest has %d outputs, got room for %d", f.NumClass, len(out))
	}
	out = out[:f.NumClass]
	for k := range out {
		out[k] = 0
	}
	iterations := len(f.Trees) / f.NumClass
	coef := 1.0
	if f.AverageOutput {
		coef = 1 / float64(iterations)
	}
	for i := 0; i < iterations; i++ {
		for k := range out {
			out[k] += f.Trees[i*f.NumClass+k].predict(fvals) * coef
		}
	}

	switch f.Transform {
	case TransformLogistic:
		out[0] = 1 / (1 + math.Exp(-f.Sigmoid*out[0]))
	case TransformExponential:
		out[0] = math.Exp(out[0])
	case TransformSoftmax:
		var sum float64
		for k, v := range out {
			out[k] = math.Exp(v)
			sum += out[k]
		}
		if sum != 0 {
			for k := range out {
				out[k] *= 1 / sum
			}
		}
	}
	return nil
}

// CompileForest parses a LightGBM text model into a Forest. With raw set the
// objective's output transform is skipped and Predict returns the summed
// tree outputs.
func CompileForest(r io.Reader, raw bool) (*Forest, error) {
	br := bufio.NewReader(r)
	header, err := readBlock(br)
	if err != nil {
		return nil, fmt.Errorf("read model header: %w", err)
	}
	if _, ok := header["tree"]; !ok {
		return nil, fmt.Errorf("%w: not a LightGBM text model", ErrUnsupportedModel)
	}
	switch header["version"] {
	case "v2", "v3", "v4":
	default:
		return nil, fmt.Errorf("%w: LightGBM model version %q", ErrUnsupportedModel, header["version"])
	}

	f := &Forest{Transform: TransformRaw, Sigmoid: 1}
	if f.NumClass, err = header.int("num_class"); err != nil {
		return nil, err
	}
	perIteration, err := header.int("num_tree_per_iteration")
	if err != nil {
		return nil, err
	}
	if f.NumClass < 1 || perIteration != f.NumClass {
		return nil, fmt.Errorf("%w: num_class %d with %d trees per iteration", ErrUnsupportedModel, f.NumClass, perIteration)
	}
	if f.MaxFeatureIdx, err = header.int("max_feature_idx"); err != nil {
		return nil, err
	}
	_, f.AverageOutput = header["average_output"]
	if !raw && !f.AverageOutput {
		if err := f.setObjective(header["objective"]); err != nil {
			return nil, err
		}
	}

	for {
		block, err := readBlock(br)
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("read tree %d: %w", len(f.Trees), err)
		}
		if _, ok := block["Tree"]; !ok {
			// trailing sections: feature importances, parameters
			break
		}
		t, err := parseTree(block)
		if err != nil {
			return nil, fmt.Errorf("tree %s: %w", block["Tree"], err)
		}
		f.Trees = append(f.Trees, t)
	}
	if len(f.Trees) == 0 || len(f.Trees)%f.NumClass != 0 {
		return nil, fmt.Errorf("%w: %d trees for %d outputs", ErrUnsupportedModel, len(f.Trees), f.NumClass)
	}
	return f, nil
}

func (f *Forest) setObjective(objective string) error {
	fields := strings.Fields(objective)
	if len(fields) == 0 {
		return fmt.Errorf("%w: no objective", ErrUnsupportedModel)
	}
	name := fields[0]
	param := func(key string) (string, bool) {
		for _, p := range fields[1:] {
			if k, v, ok := strings.Cut(p, ":"); ok && k == key {
				return v, true
			}
		}
		return "", false
	}
	switch {
	case strings.HasPrefix(name, "regression"), name == "huber", name == "fair", name == "quantile", name == "mape":
		f.Transform = TransformRaw
	case name == "poisson" || name == "gamma" || name == "tweedie":
		f.Transform = TransformExponential
	case name == "binary" || name == "cross_entropy" || name == "xentropy":
		f.Transform = TransformLogistic
		if v, ok := param("sigmoid"); ok {
			s, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("objective %q: %w", objective, err)
			}
			f.Sigmoid = s
		}
	case name == "multiclass" || name == "softmax":
		f.Transform = TransformSoftmax
	default:
		return fmt.Errorf("%w: objective %q", ErrUnsupportedModel, objective)
	}
	if f.Transform != TransformRaw && f.Transform != TransformSoftmax && f.NumClass != 1 {
		return fmt.Errorf("%w: objective %q with %d outputs", ErrUnsupportedModel, objective, f.NumClass)
	}
	return nil
}

func parseTree(b block) (Tree, error) {
	var t Tree
	numLeaves, err := b.int("num_leaves")
	if err != nil {
		return t, err
	}
	if numLeaves < 1 {
		return t, fmt.Errorf("num_leaves %d", numLeaves)
	}
	if t.LeafValue, err = b.floats("leaf_value"); err != nil {
		return t, err
	}
	if len(t.LeafValue) != numLeaves {
		return t, fmt.Errorf("%d leaf values for %d leaves", len(t.LeafValue), numLeaves)
	}
	if numLeaves == 1 {
		return t, nil
	}
	if n, _ := b.int("num_cat"); n > 0 {
		return t, fmt.Errorf("%w: categorical splits", ErrUnsupportedModel)
	}
	if _, ok := b["is_linear"]; ok && b["is_linear"] != "0" {
		return t, fmt.Errorf("%w: linear trees", ErrUnsupportedModel)
	}

	nodes := numLeaves - 1
	if t.Threshold, err = b.floats("threshold"); err != nil {
		return t, err
	}
	ints := map[string]*[]int32{"split_feature": &t.Feature, "left_child": &t.Left, "right_child": &t.Right}
	for key, dst := range ints {
		if *dst, err = b.int32s(key); err != nil {
			return t, err
		}
	}
	decisions, err := b.int32s("decision_type")
	if err != nil {
		return t, err
	}
	t.DecisionType = make([]uint8, len(decisions))
	for i, d := range decisions {
		if d&splitCategorical != 0 {
			return t, fmt.Errorf("%w: categorical splits", ErrUnsupportedModel)
		}
		t.DecisionType[i] = uint8(d)
	}

	for _, n := range []int{len(t.Threshold), len(t.Feature), len(t.Left), len(t.Right), len(t.DecisionType)} {
		if n != nodes {
			return t, fmt.Errorf("node arrays do not match %d leaves", numLeaves)
		}
	}
	for i := 0; i < nodes; i++ {
		for _, c := range []int32{t.Left[i], t.Right[i]} {
			if (c >= 0 && int(c) >= nodes) || (c < 0 && int(^c) >= numLeaves) {
				return t, fmt.Errorf("node %d has child %d out of range", i, c)
			}
		}
	}
	return t, nil
}

// block is one blank-line separated section of key=value lines.
type block map[string]string

// readBlock skips blank lines, then collects key=value lines until the next
// blank line. It returns io.EOF when nothing but blank lines remain.
func readBlock(r *bufio.Reader) (block, error) {
	var b block
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			if b != nil {
				return b, nil
			}
			if err != nil {
				return nil, err
			}
			continue
		}
		if b == nil {
			b = make(block)
		}
		key, value, _ := strings.Cut(line, "=")
		b[key] = value
		if err == io.EOF {
			return b, nil
		} else if err != nil {
			return nil, err
		}
	}
}

func (b block) int(key string) (int, error) {
	v, ok := b[key]
	if !ok {
		return 0, fmt.Errorf("no %s field", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func (b block) floats(key string) ([]float64, error) {
	v, ok := b[key]
	if !ok {
		return nil, fmt.Errorf("no %s field", key)
	}
	fields := strings.Fields(v)
	out := make([]float64, len(fields))
	for i, s := range fields {
		x, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[i] = x
	}
	return out, nil
}

func (b block) int32s(key string) ([]int32, error) {
	v, ok := b[key]
	if !ok {
		return nil, fmt.Errorf("no %s field", key)
	}
	fields := strings.Fields(v)
	out := make([]int32, len(fields))
	for i, s := range fields {
		x, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out[i] = int32(x)
	}
	return out, nil
}

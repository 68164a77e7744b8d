package nade

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

// writeMultiOutput adds reg_multioutput.txt with one stump per emotion. The
// stump for label i splits on the 😂 feature and yields i/10 or i/10+0.5.
func writeMultiOutput(t *testing.T, dir string, numClass int) {
	t.Helper()
	trees := make([]string, numClass)
	for i := range trees {
		trees[i] = stump(0, 0.5, float64(i)/10, float64(i)/10+0.5)
	}
	src := lightgbm(numClass, "multiclass num_class:8", trees...)
	writeFile(t, filepath.Join(dir, DefaultModel, "reg_multioutput.txt"), src)
}

func TestMultiOutputScorer(t *testing.T) {
	for _, compiled := range []bool{false, true} {
		dir := writeModel(t, t.TempDir())
		writeMultiOutput(t, dir, len(Labels))

		n, err := New(WithDataDir(dir), WithScorer(MultiOutput), WithCompiled(compiled), WithCacheDir(t.TempDir()))
		if err != nil {
			t.Fatalf("compiled=%v: %v", compiled, err)
		}
		res, err := n.Predict([]string{"happy", "sad"})
		if err != nil {
			t.Fatal(err)
		}
		for i, l := range Labels {
			// outputs are raw sums, clipped to [0, 1]
			happy := math.Min(float64(i)/10+0.5, 1)
			sad := float64(i) / 10
			if math.Abs(res[l][0]-happy) > 1e-9 || math.Abs(res[l][1]-sad) > 1e-9 {
				t.Errorf("compiled=%v %s: expected [%.3f %.3f], got %v", compiled, l, happy, sad, res[l])
			}
		}

		sub, _ := n.Predict([]string{"happy"}, Trust)
		if len(sub) != 1 || sub[Trust][0] != 1 {
			t.Errorf("compiled=%v: expected trust 1 alone, got %v", compiled, sub)
		}
	}
}

func TestMultiOutputWrongWidth(t *testing.T) {
	dir := writeModel(t, t.TempDir())
	writeMultiOutput(t, dir, 1)
	_, err := New(WithDataDir(dir), WithScorer(MultiOutput))
	if err == nil {
		t.Fatal("Expected an error for a single-output model")
	}
}

func TestMultiOutputMissing(t *testing.T) {
	dir := writeModel(t, t.TempDir())
	if _, err := New(WithDataDir(dir), WithScorer(MultiOutput)); !errors.Is(err, ErrMissingArtifact) {
		t.Errorf("Expected ErrMissingArtifact, got %v", err)
	}
}

func TestPerLabelRejectsMultiOutput(t *testing.T) {
	dir := writeModel(t, t.TempDir())
	trees := make([]string, 2)
	for i := range trees {
		trees[i] = stump(0, 0.5, 0, 1)
	}
	writeFile(t, filepath.Join(dir, DefaultModel, "reg_joy.txt"), lightgbm(2, "multiclass num_class:2", trees...))
	if _, err := New(WithDataDir(dir), WithCompiled(true), WithCacheDir(t.TempDir())); !errors.Is(err, ErrUnsupportedModel) {
		t.Errorf("Expected ErrUnsupportedModel, got %v", err)
	}
}

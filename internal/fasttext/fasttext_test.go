package fasttext

import (
	"bytes"
	"errors"
	"hash/fnv"
	"math"
	"reflect"
	"testing"
)

// tinyModel has two words pointing along the two axes and two labels that
// each prefer one axis.
func tinyModel(t *testing.T, loss LossName) *Model {
	t.Helper()
	args := Args{Dim: 2, WS: 5, Epoch: 5, MinCount: 1, Neg: 5, WordNgrams: 1, Loss: loss, Model: Supervised, LRUpdateRate: 100, T: 1e-4}
	entries := []Entry{
		{Word: "good", Count: 3, Type: WordEntry},
		{Word: "bad", Count: 2, Type: WordEntry},
		{Word: eos, Count: 5, Type: WordEntry},
		{Word: "__label__a", Count: 10, Type: LabelEntry},
		{Word: "__label__b", Count: 5, Type: LabelEntry},
	}
	input := NewDense(3, 2, []float64{1, 0, 0, 1, 0, 0})
	var output Matrix
	if loss == HierarchicalSoftmax {
		// one inner node; label b hangs left and label a right
		output = NewDense(1, 2, []float64{2, 0})
	} else {
		output = NewDense(2, 2, []float64{2, 0, 0, 2})
	}
	m, err := New(args, entries, input, output)
	if err != nil {
		t.Fatalf("Failed to build model: %v", err)
	}
	return m
}

func TestHash(t *testing.T) {
	for _, s := range []string{"", "a", "</s>", "hello world", "__label__42"} {
		h := fnv.New32a()
		h.Write([]byte(s))
		if got, want := hash(s), h.Sum32(); got != want {
			t.Errorf("hash(%q) = %d, want %d", s, got, want)
		}
	}

	// bytes above 0x7f are folded in sign-extended
	h := fnv.New32a()
	h.Write([]byte("é"))
	if hash("é") == h.Sum32() {
		t.Error("Expected non-ASCII hash to differ from plain FNV-1a")
	}
}

func TestTokens(t *testing.T) {
	tests := []struct {
		line string
		want []string
	}{
		{"", []string{eos}},
		{"a  b\tc", []string{"a", "b", "c", eos}},
		{" padded ", []string{"padded", eos}},
		{"first\nsecond", []string{"first", eos}},
	}
	for _, tt := range tests {
		if got := tokens(tt.line); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("tokens(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}

func TestComputeSubwords(t *testing.T) {
	args := Args{Minn: 2, Maxn: 3, Bucket: 1000}
	d := newDictionary(&args, nil)
	got := d.computeSubwords("<ab>", nil)
	var want []int32
	for _, g := range []string{"<a", "<ab", "ab", "ab>", "b>"} {
		want = append(want, int32(hash(g)%1000))
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected subwords %v, got %v", want, got)
	}

	// multi-byte runes count as one character
	if n := len(d.computeSubwords("<é>", nil)); n != 3 {
		t.Errorf("Expected 3 subwords for a single rune word, got %d", n)
	}
}

func TestPredictSoftmax(t *testing.T) {
	m := tinyModel(t, Softmax)
	preds, err := m.Predict("good", -1, 0)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(preds) != 2 {
		t.Fatalf("Expected 2 predictions, got %d", len(preds))
	}
	if preds[0].Label != "__label__a" || preds[0].Index != 0 {
		t.Errorf("Expected __label__a first, got %+v", preds[0])
	}
	// hidden is (good + </s>) / 2 = (0.5, 0), so the logits are 1 and 0
	want := math.E / (math.E + 1)
	if math.Abs(preds[0].Prob-(want+1e-5)) > 1e-9 {
		t.Errorf("Expected probability %.6f, got %.6f", want+1e-5, preds[0].Prob)
	}
	if math.Abs(preds[0].Prob+preds[1].Prob-1) > 1e-4 {
		t.Errorf("Expected probabilities to sum to ~1, got %.6f", preds[0].Prob+preds[1].Prob)
	}

	preds, _ = m.Predict("bad", 1, 0)
	if len(preds) != 1 || preds[0].Label != "__label__b" {
		t.Errorf("Expected only __label__b for 'bad', got %+v", preds)
	}
}

func TestPredictArguments(t *testing.T) {
	m := tinyModel(t, Softmax)
	for _, k := range []int{0, -2} {
		if _, err := m.Predict("good", k, 0); !errors.Is(err, ErrInvalidK) {
			t.Errorf("k=%d: expected ErrInvalidK, got %v", k, err)
		}
	}

	preds, _ := m.Predict("good", 5, 0.5)
	if len(preds) != 1 {
		t.Errorf("Expected threshold to keep one label, got %d", len(preds))
	}

	// unknown words fall back to the end-of-sentence row
	preds, _ = m.Predict("nothing known here", -1, 0)
	if len(preds) != 2 || math.Abs(preds[0].Prob-0.5-1e-5) > 1e-9 {
		t.Errorf("Expected uniform prediction for unknown words, got %+v", preds)
	}
}

func TestPredictLosses(t *testing.T) {
	soft, _ := tinyModel(t, Softmax).Probabilities("good")
	for _, loss := range []LossName{HierarchicalSoftmax, OneVsAll, NegativeSampling} {
		t.Run(loss.String(), func(t *testing.T) {
			probs, err := tinyModel(t, loss).Probabilities("good")
			if err != nil {
				t.Fatalf("Probabilities failed: %v", err)
			}
			if probs[0] <= probs[1] {
				t.Errorf("Expected label a to win, got %v", probs)
			}
			if loss == HierarchicalSoftmax {
				// a single sigmoid split equals a two-way softmax
				for i := range probs {
					if math.Abs(probs[i]-soft[i]) > 1e-4 {
						t.Errorf("Label %d: hs=%.6f softmax=%.6f", i, probs[i], soft[i])
					}
				}
			}
		})
	}
}

func TestSaveLoad(t *testing.T) {
	m := tinyModel(t, Softmax)
	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if loaded.Args != m.Args {
		t.Errorf("Args changed on round trip: %+v != %+v", loaded.Args, m.Args)
	}
	if !reflect.DeepEqual(loaded.Dictionary().Labels(), []string{"__label__a", "__label__b"}) {
		t.Errorf("Unexpected labels %v", loaded.Dictionary().Labels())
	}
	want, _ := m.Probabilities("bad good")
	got, _ := loaded.Probabilities("bad good")
	for i := range want {
		// float32 storage
		if math.Abs(want[i]-got[i]) > 1e-6 {
			t.Errorf("Label %d: expected %.6f, got %.6f", i, want[i], got[i])
		}
	}
}

func TestReadRejects(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7, 8})); !errors.Is(err, ErrNotFastText) {
		t.Errorf("Expected ErrNotFastText, got %v", err)
	}

	m := tinyModel(t, Softmax)
	m.Args.Model = CBOW
	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := Read(&buf); !errors.Is(err, ErrNotSupervised) {
		t.Errorf("Expected ErrNotSupervised, got %v", err)
	}
}

func TestQuantizedMatchesDense(t *testing.T) {
	dense := tinyModel(t, Softmax)

	pq := &productQuantizer{dim: 2, nsubq: 1, dsub: 2, lastdsub: 2, centroids: make([]float64, 2*ksub)}
	copy(pq.centroids, []float64{1, 0, 0, 1, 0, 0})
	input := &quantMatrix{m: 3, n: 2, codes: []uint8{0, 1, 2}, pq: pq}
	quant := &Model{Args: dense.Args, dict: dense.dict, input: input, output: dense.output}
	if err := quant.init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	var buf bytes.Buffer
	if err := quant.Save(&buf); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !loaded.Quantized() {
		t.Fatal("Expected quantized input after reload")
	}

	for _, text := range []string{"good", "bad", "good bad bad"} {
		want, _ := dense.Probabilities(text)
		got, _ := loaded.Probabilities(text)
		for i := range want {
			if math.Abs(want[i]-got[i]) > 1e-6 {
				t.Errorf("%q label %d: dense=%.6f quant=%.6f", text, i, want[i], got[i])
			}
		}
	}
}

func TestWordNgrams(t *testing.T) {
	args := Args{WordNgrams: 2, Bucket: 100}
	d := newDictionary(&args, []Entry{{Word: "a", Type: WordEntry}, {Word: "b", Type: WordEntry}})
	ids := d.line("a b")
	// a, b, </s> unknown, then bigrams a-b and b-</s>
	if len(ids) != 4 {
		t.Fatalf("Expected 4 ids, got %v", ids)
	}
	h := uint64(int64(int32(hash("a"))))*116049371 + uint64(int64(int32(hash("b"))))
	if want := d.nwords + int32(h%100); ids[2] != want {
		t.Errorf("Expected bigram id %d, got %d", want, ids[2])
	}
}

func TestHierarchicalSoftmaxPrunes(t *testing.T) {
	// three labels give a tree of depth two; saturated splits push one
	// branch to p = 0, below the 1e-5 floor the walk keeps
	args := Args{Dim: 2, WS: 5, Epoch: 5, MinCount: 1, Neg: 5, WordNgrams: 1, Loss: HierarchicalSoftmax, Model: Supervised, LRUpdateRate: 100, T: 1e-4}
	entries := []Entry{
		{Word: "x", Count: 1, Type: WordEntry},
		{Word: eos, Count: 1, Type: WordEntry},
		{Word: "__label__a", Count: 10, Type: LabelEntry},
		{Word: "__label__b", Count: 5, Type: LabelEntry},
		{Word: "__label__c", Count: 5, Type: LabelEntry},
	}
	input := NewDense(2, 2, []float64{1, 0, 1, 0})

	fewest := 3
	for _, sign := range []float64{1, -1} {
		output := NewDense(2, 2, []float64{100, 0, sign * 100, 0})
		m, err := New(args, entries, input, output)
		if err != nil {
			t.Fatalf("Failed to build model: %v", err)
		}
		preds, err := m.Predict("x", -1, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(preds) < 1 || len(preds) > 3 {
			t.Fatalf("Expected 1 to 3 predictions, got %d", len(preds))
		}
		if len(preds) < fewest {
			fewest = len(preds)
		}
	}
	if fewest == 3 {
		t.Error("Expected a saturated tree to drop at least one label")
	}
}

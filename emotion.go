package nade

import (
	"fmt"

	"gonum.org/v1/gonum/floats/scalar"
)

// Predict scores every text for the requested emotions, or all of Labels
// when none are given. Each value is in [0, 1], rounded to three decimals.
// The result holds one slice per label with one value per text.
func (n *Nade) Predict(texts []string, labels ...Emotion) (map[Emotion][]float64, error) {
	labels, err := checkLabels(labels)
	if err != nil {
		return nil, err
	}
	out := make(map[Emotion][]float64, len(labels))
	for _, l := range labels {
		out[l] = make([]float64, len(texts))
	}

	features := make([]float64, n.vocab.Len())
	raw := make([]float64, len(labels))
	for i, text := range texts {
		if err := n.features(Preprocess(text), features); err != nil {
			return nil, err
		}
		if err := n.scorer.score(features, labels, raw); err != nil {
			return nil, err
		}
		for j, l := range labels {
			out[l][i] = scalar.RoundEven(ClipValue(raw[j], 0, 1), 3)
		}
	}
	return out, nil
}

// PredictText scores a single text.
func (n *Nade) PredictText(text string, labels ...Emotion) (Scores, error) {
	res, err := n.Predict([]string{text}, labels...)
	if err != nil {
		return nil, err
	}
	scores := make(Scores, len(res))
	for l, v := range res {
		scores[l] = v[0]
	}
	return scores, nil
}

// features fills dst with the classifier's probability for every emoji,
// placed at the emoji's vocabulary position. Emojis the classifier does not
// return stay at zero.
func (n *Nade) features(text string, dst []float64) error {
	for i := range dst {
		dst[i] = 0
	}
	preds, err := n.classifier.Predict(text, n.MaxK(), 0)
	if err != nil {
		return err
	}
	for _, p := range preds {
		row := n.rows[p.Index]
		if row.err != nil {
			return row.err
		}
		pos, _ := n.vocab.Position(row.hash)
		dst[pos] = p.Prob
	}
	return nil
}

func checkLabels(labels []Emotion) ([]Emotion, error) {
	if len(labels) == 0 {
		return Labels, nil
	}
	for _, l := range labels {
		if l.index() < 0 {
			return nil, &ArgumentError{Arg: "labels", Message: fmt.Sprintf("unknown emotion %q", l)}
		}
	}
	return labels, nil
}

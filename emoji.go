package nade

import (
	"fmt"
	"sort"
)

// PredictEmojis returns the k most likely emojis for every text. Texts are
// preprocessed first. Results are ordered by confidence, or by hash when
// sortByIndex is set. k must lie in [0, MaxK()].
//
// A text gets k results only if the classifier has at least k labels.
// Hierarchical-softmax classifiers also drop labels whose probability is
// below 1e-5 while walking the tree, so they may return fewer.
func (n *Nade) PredictEmojis(texts []string, k int, sortByIndex bool) ([][]EmojiScore, error) {
	if k < 0 || k > n.MaxK() {
		return nil, &ArgumentError{Arg: "k", Message: fmt.Sprintf("please select a k between 0 and %d", n.MaxK())}
	}
	out := make([][]EmojiScore, len(texts))
	for i, text := range texts {
		if k == 0 {
			out[i] = []EmojiScore{}
			continue
		}
		scores, err := n.predictEmojis(Preprocess(text), k)
		if err != nil {
			return nil, err
		}
		if sortByIndex {
			sort.SliceStable(scores, func(a, b int) bool { return scores[a].Hash < scores[b].Hash })
		}
		out[i] = scores
	}
	return out, nil
}

// PredictEmoji is PredictEmojis for a single text.
func (n *Nade) PredictEmoji(text string, k int, sortByIndex bool) ([]EmojiScore, error) {
	out, err := n.PredictEmojis([]string{text}, k, sortByIndex)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// predictEmojis runs the classifier on an already preprocessed text.
func (n *Nade) predictEmojis(text string, k int) ([]EmojiScore, error) {
	preds, err := n.classifier.Predict(text, k, 0)
	if err != nil {
		return nil, err
	}
	scores := make([]EmojiScore, 0, len(preds))
	for _, p := range preds {
		row := n.rows[p.Index]
		if row.err != nil {
			return nil, row.err
		}
		scores = append(scores, EmojiScore{Emoji: row.emoji, Hash: row.hash, Confidence: ClipValue(p.Prob, 0, 1)})
	}
	sort.SliceStable(scores, func(a, b int) bool {
		if scores[a].Confidence != scores[b].Confidence {
			return scores[a].Confidence > scores[b].Confidence
		}
		return scores[a].Hash < scores[b].Hash
	})
	return scores, nil
}

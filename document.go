package nade

import (
	"strings"
	"unicode"
)

// Sentences splits text into sentences with an English punkt model.
// Offsets are byte positions in text and span exactly the trimmed
// sentence, so text[Start:End] == Text.
func (n *Nade) Sentences(text string) []Sentence {
	var out []Sentence
	for _, s := range n.segmenter.Tokenize(text) {
		t := strings.TrimLeftFunc(s.Text, unicode.IsSpace)
		start := s.Start + len(s.Text) - len(t)
		t = strings.TrimRightFunc(t, unicode.IsSpace)
		if t == "" {
			continue
		}
		out = append(out, Sentence{Text: t, Start: start, End: start + len(t)})
	}
	return out
}

// PredictSentences scores every sentence of a document separately.
func (n *Nade) PredictSentences(text string, labels ...Emotion) ([]SentenceScores, error) {
	sents := n.Sentences(text)
	texts := make([]string, len(sents))
	for i, s := range sents {
		texts[i] = s.Text
	}
	res, err := n.Predict(texts, labels...)
	if err != nil {
		return nil, err
	}
	out := make([]SentenceScores, len(sents))
	for i, s := range sents {
		scores := make(Scores, len(res))
		for l, v := range res {
			scores[l] = v[i]
		}
		out[i] = SentenceScores{Sentence: s, Scores: scores}
	}
	return out, nil
}

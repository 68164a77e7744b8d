package nade

import (
	"fmt"
	"strings"
)

// An Emotion is one of Plutchik's eight basic emotions.
type Emotion string

const (
	Anger        Emotion = "anger"
	Anticipation Emotion = "anticipation"
	Disgust      Emotion = "disgust"
	Fear         Emotion = "fear"
	Joy          Emotion = "joy"
	Sadness      Emotion = "sadness"
	Surprise     Emotion = "surprise"
	Trust        Emotion = "trust"
)

// Labels lists every emotion in output order.
var Labels = []Emotion{Anger, Anticipation, Disgust, Fear, Joy, Sadness, Surprise, Trust}

// ParseEmotion maps a label name (case-insensitive) to its Emotion.
func ParseEmotion(s string) (Emotion, error) {
	e := Emotion(strings.ToLower(strings.TrimSpace(s)))
	if e.index() < 0 {
		return "", &ArgumentError{Arg: "labels", Message: fmt.Sprintf("unknown emotion %q", s)}
	}
	return e, nil
}

func (e Emotion) index() int {
	for i, l := range Labels {
		if l == e {
			return i
		}
	}
	return -1
}

// Scores holds one value in [0, 1] per requested emotion.
type Scores map[Emotion]float64

// Dominant returns the highest-scoring emotion. Ties go to the emotion that
// comes first in Labels. An empty Scores yields "".
func (s Scores) Dominant() Emotion {
	var best Emotion
	top := -1.0
	for _, l := range Labels {
		if v, ok := s[l]; ok && v > top {
			best, top = l, v
		}
	}
	return best
}

// An EmojiScore is one stage-I prediction: an emoji and the classifier's
// confidence in it.
type EmojiScore struct {
	Emoji      string  `json:"emoji"`
	Hash       int     `json:"hash"`       // The emoji's id in the vocabulary.
	Confidence float64 `json:"confidence"` // Probability in [0, 1].
}

// A Sentence represents a segmented portion of text.
type Sentence struct {
	Text  string `json:"text"`  // The sentence's text.
	Start int    `json:"start"` // Start position in original text
	End   int    `json:"end"`   // End position in original text
}

// String returns the text content of the sentence
func (s Sentence) String() string {
	return s.Text
}

// SentenceScores pairs a sentence with its emotion scores.
type SentenceScores struct {
	Sentence
	Scores Scores `json:"scores"`
}

// ScorerKind selects how stage-II regressors are laid out on disk.
type ScorerKind int

const (
	// PerLabel loads one regressor per emotion from reg_<label>.txt.
	PerLabel ScorerKind = iota
	// MultiOutput loads a single regressor with one output per emotion
	// from reg_multioutput.txt.
	MultiOutput
)

func (k ScorerKind) String() string {
	switch k {
	case PerLabel:
		return "per-label"
	case MultiOutput:
		return "multi-output"
	}
	return fmt.Sprintf("ScorerKind(%d)", int(k))
}

// ParseScorerKind accepts the names printed by ScorerKind.String.
func ParseScorerKind(s string) (ScorerKind, error) {
	switch strings.ToLower(s) {
	case "per-label", "perlabel", "":
		return PerLabel, nil
	case "multi-output", "multioutput":
		return MultiOutput, nil
	}
	return 0, &ArgumentError{Arg: "scorer", Message: fmt.Sprintf("unknown scorer %q", s)}
}

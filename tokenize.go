package nade

import (
	"regexp"
	"strings"
)

var (
	punctRE = regexp.MustCompile(`\s*(\p{P}+)\s*`)
	spaceRE = regexp.MustCompile(`\s+`)
)

// Preprocess normalizes text the way the classifier's training data was
// normalized: punctuation runs are set off by single spaces, whitespace runs
// collapse to one space, letters are lowercased and the ends are trimmed.
// Invalid UTF-8 bytes come back as U+FFFD, the way strings.ToLower maps
// them. Preprocess never fails.
//
//    nade.Preprocess("Hello,   World!") // "hello , world !"
func Preprocess(text string) string {
	text = punctRE.ReplaceAllString(text, " $1 ")
	text = spaceRE.ReplaceAllString(text, " ")
	return strings.TrimSpace(strings.ToLower(text))
}

// PreprocessAll applies Preprocess to every text.
func PreprocessAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = Preprocess(t)
	}
	return out
}

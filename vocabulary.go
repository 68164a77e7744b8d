package nade

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// A Vocabulary is the emoji index of a model: every emoji the classifier
// can predict and its integer hash. It is immutable once loaded.
type Vocabulary struct {
	byEmoji  map[string]int
	byHash   map[int]string
	position map[int]int
	hashes   []int
}

type vocabEntry struct {
	Emoji string `json:"emoji"`
	Hash  *int   `json:"hash"`
}

// LoadVocabulary reads a line-delimited JSON emoji index. Every line is an
// object with at least "emoji" and "hash"; other keys are ignored.
func LoadVocabulary(r io.Reader) (*Vocabulary, error) {
	v := &Vocabulary{
		byEmoji:  make(map[string]int),
		byHash:   make(map[int]string),
		position: make(map[int]int),
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; scanner.Scan(); n++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e vocabEntry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			return nil, fmt.Errorf("emoji index line %d: %w", n, err)
		}
		if e.Emoji == "" || e.Hash == nil {
			return nil, fmt.Errorf("emoji index line %d: missing emoji or hash", n)
		}
		if _, dup := v.byEmoji[e.Emoji]; dup {
			return nil, fmt.Errorf("emoji index line %d: duplicate emoji %q", n, e.Emoji)
		}
		if _, dup := v.byHash[*e.Hash]; dup {
			return nil, fmt.Errorf("emoji index line %d: duplicate hash %d", n, *e.Hash)
		}
		v.byEmoji[e.Emoji] = *e.Hash
		v.byHash[*e.Hash] = e.Emoji
		v.hashes = append(v.hashes, *e.Hash)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("emoji index: %w", err)
	}
	if len(v.hashes) == 0 {
		return nil, fmt.Errorf("emoji index is empty")
	}
	sort.Ints(v.hashes)
	for i, h := range v.hashes {
		v.position[h] = i
	}
	return v, nil
}

// Len is the number of emojis, which is also the largest valid k.
func (v *Vocabulary) Len() int { return len(v.hashes) }

// Emoji returns the glyph for hash.
func (v *Vocabulary) Emoji(hash int) (string, bool) {
	e, ok := v.byHash[hash]
	return e, ok
}

// Hash returns the hash of an emoji glyph.
func (v *Vocabulary) Hash(emoji string) (int, bool) {
	h, ok := v.byEmoji[emoji]
	return h, ok
}

// Position is the feature column stage II expects for hash: its rank among
// all hashes in ascending order.
func (v *Vocabulary) Position(hash int) (int, bool) {
	p, ok := v.position[hash]
	return p, ok
}

// Hashes returns every hash in ascending order.
func (v *Vocabulary) Hashes() []int {
	return append([]int(nil), v.hashes...)
}

package fasttext

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// EntryType tells words and labels apart in the dictionary.
type EntryType int8

const (
	WordEntry  EntryType = 0
	LabelEntry EntryType = 1
)

// Entry is one dictionary row.
type Entry struct {
	Word  string
	Count int64
	Type  EntryType

	subwords []int32
}

// Dictionary maps tokens, character n-grams and word n-grams onto rows of
// the input matrix.
type Dictionary struct {
	args     *Args
	words    []Entry
	word2int map[string]int32
	nwords   int32
	nlabels  int32
	ntokens  int64

	// pruneIdxSize is -1 for models that were never pruned.
	pruneIdxSize int64
	pruneIdx     map[int32]int32
}

func newDictionary(args *Args, entries []Entry) *Dictionary {
	d := &Dictionary{
		args:         args,
		words:        make([]Entry, 0, len(entries)),
		word2int:     make(map[string]int32, len(entries)),
		pruneIdxSize: -1,
	}
	// words first, labels after: label ids are offsets past nwords
	for _, e := range entries {
		if e.Type == WordEntry {
			d.add(e)
		}
	}
	for _, e := range entries {
		if e.Type == LabelEntry {
			d.add(e)
		}
	}
	d.initNgrams()
	return d
}

func (d *Dictionary) add(e Entry) {
	d.word2int[e.Word] = int32(len(d.words))
	d.words = append(d.words, Entry{Word: e.Word, Count: e.Count, Type: e.Type})
	d.ntokens += e.Count
	if e.Type == WordEntry {
		d.nwords++
	} else {
		d.nlabels++
	}
}

// NWords is the number of word entries.
func (d *Dictionary) NWords() int { return int(d.nwords) }

// NLabels is the number of label entries.
func (d *Dictionary) NLabels() int { return int(d.nlabels) }

// Label returns the label string of output row i.
func (d *Dictionary) Label(i int) string {
	return d.words[int(d.nwords)+i].Word
}

// Labels returns every label in output-row order.
func (d *Dictionary) Labels() []string {
	labels := make([]string, 0, d.nlabels)
	for i := 0; i < int(d.nlabels); i++ {
		labels = append(labels, d.Label(i))
	}
	return labels
}

func (d *Dictionary) labelCounts() []int64 {
	counts := make([]int64, 0, d.nlabels)
	for _, e := range d.words[d.nwords:] {
		counts = append(counts, e.Count)
	}
	return counts
}

func (d *Dictionary) isPruned() bool { return d.pruneIdxSize >= 0 }

func (d *Dictionary) id(w string) int32 {
	if i, ok := d.word2int[w]; ok {
		return i
	}
	return -1
}

func (d *Dictionary) entryType(w string) EntryType {
	if strings.HasPrefix(w, LabelPrefix) {
		return LabelEntry
	}
	return WordEntry
}

// hash is 32-bit FNV-1a over the bytes of s, with each byte sign-extended
// before folding in.
func hash(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(int8(s[i]))
		h *= 16777619
	}
	return h
}

func (d *Dictionary) initNgrams() {
	for i := range d.words {
		w := &d.words[i]
		w.subwords = append(w.subwords[:0], int32(i))
		if w.Word != eos {
			w.subwords = d.computeSubwords(bow+w.Word+eow, w.subwords)
		}
	}
}

// computeSubwords appends the bucket ids of every character n-gram of word
// whose length lies in [minn, maxn]. N-grams never split a UTF-8 sequence.
func (d *Dictionary) computeSubwords(word string, ngrams []int32) []int32 {
	minn, maxn := int(d.args.Minn), int(d.args.Maxn)
	if maxn <= 0 || d.args.Bucket <= 0 {
		return ngrams
	}
	for i := 0; i < len(word); i++ {
		if word[i]&0xC0 == 0x80 {
			continue
		}
		var ngram []byte
		for j, n := i, 1; j < len(word) && n <= maxn; n++ {
			ngram = append(ngram, word[j])
			j++
			for j < len(word) && word[j]&0xC0 == 0x80 {
				ngram = append(ngram, word[j])
				j++
			}
			if n >= minn && !(n == 1 && (i == 0 || j == len(word))) {
				h := int32(hash(string(ngram)) % uint32(d.args.Bucket))
				ngrams = d.pushHash(ngrams, h)
			}
		}
	}
	return ngrams
}

func (d *Dictionary) pushHash(hashes []int32, id int32) []int32 {
	if d.pruneIdxSize == 0 || id < 0 {
		return hashes
	}
	if d.pruneIdxSize > 0 {
		mapped, ok := d.pruneIdx[id]
		if !ok {
			return hashes
		}
		id = mapped
	}
	return append(hashes, d.nwords+id)
}

func (d *Dictionary) addSubwords(line []int32, token string, wid int32) []int32 {
	if wid < 0 {
		if token != eos {
			line = d.computeSubwords(bow+token+eow, line)
		}
		return line
	}
	if d.args.Maxn <= 0 {
		return append(line, wid)
	}
	return append(line, d.words[wid].subwords...)
}

func (d *Dictionary) addWordNgrams(line []int32, hashes []int32, n int32) []int32 {
	if d.args.Bucket <= 0 {
		return line
	}
	bucket := uint64(d.args.Bucket)
	for i := 0; i < len(hashes); i++ {
		h := uint64(int64(hashes[i]))
		for j := i + 1; j < len(hashes) && j < i+int(n); j++ {
			h = h*116049371 + uint64(int64(hashes[j]))
			line = d.pushHash(line, int32(h%bucket))
		}
	}
	return line
}

// tokens splits one line the way fastText's reader does: on ASCII
// whitespace and NUL, with "</s>" standing in for the newline. Anything
// after the first newline is ignored.
func tokens(line string) []string {
	var out []string
	start := -1
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case ' ', '\n', '\r', '\t', '\v', '\f', 0:
			if start >= 0 {
				out = append(out, line[start:i])
				start = -1
			}
			if line[i] == '\n' {
				return append(out, eos)
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		out = append(out, line[start:])
	}
	return append(out, eos)
}

// line converts text into input-matrix row ids: words (or their subwords),
// then word n-grams. Labels present in the text are skipped.
func (d *Dictionary) line(text string) []int32 {
	var words, wordHashes []int32
	for _, tok := range tokens(text) {
		h := hash(tok)
		wid := d.id(tok)
		typ := d.entryType(tok)
		if wid >= 0 {
			typ = d.words[wid].Type
		}
		if typ == WordEntry {
			words = d.addSubwords(words, tok, wid)
			wordHashes = append(wordHashes, int32(h))
		}
		if tok == eos {
			break
		}
	}
	return d.addWordNgrams(words, wordHashes, d.args.WordNgrams)
}

func readDictionary(r *bufio.Reader, args *Args) (*Dictionary, error) {
	var head struct {
		Size    int32
		NWords  int32
		NLabels int32
		NTokens int64
		Pruned  int64
	}
	if err := binary.Read(r, binary.LittleEndian, &head); err != nil {
		return nil, fmt.Errorf("fasttext: read dictionary header: %w", err)
	}
	d := &Dictionary{
		args:         args,
		words:        make([]Entry, head.Size),
		word2int:     make(map[string]int32, head.Size),
		nwords:       head.NWords,
		nlabels:      head.NLabels,
		ntokens:      head.NTokens,
		pruneIdxSize: head.Pruned,
	}
	for i := range d.words {
		word, err := r.ReadString(0)
		if err != nil {
			return nil, fmt.Errorf("fasttext: read entry %d: %w", i, err)
		}
		var rest struct {
			Count int64
			Type  EntryType
		}
		if err := binary.Read(r, binary.LittleEndian, &rest); err != nil {
			return nil, fmt.Errorf("fasttext: read entry %d: %w", i, err)
		}
		d.words[i] = Entry{Word: word[:len(word)-1], Count: rest.Count, Type: rest.Type}
		d.word2int[d.words[i].Word] = int32(i)
	}
	if head.Pruned > 0 {
		d.pruneIdx = make(map[int32]int32, head.Pruned)
		for i := int64(0); i < head.Pruned; i++ {
			var pair [2]int32
			if err := binary.Read(r, binary.LittleEndian, &pair); err != nil {
				return nil, fmt.Errorf("fasttext: read prune index: %w", err)
			}
			d.pruneIdx[pair[0]] = pair[1]
		}
	}
	d.initNgrams()
	return d, nil
}

func (d *Dictionary) write(w io.Writer) error {
	head := struct {
		Size    int32
		NWords  int32
		NLabels int32
		NTokens int64
		Pruned  int64
	}{int32(len(d.words)), d.nwords, d.nlabels, d.ntokens, d.pruneIdxSize}
	if err := binary.Write(w, binary.LittleEndian, head); err != nil {
		return err
	}
	for _, e := range d.words {
		if _, err := io.WriteString(w, e.Word+"\x00"); err != nil {
			return err
		}
		rest := struct {
			Count int64
			Type  EntryType
		}{e.Count, e.Type}
		if err := binary.Write(w, binary.LittleEndian, rest); err != nil {
			return err
		}
	}
	for from, to := range d.pruneIdx {
		if err := binary.Write(w, binary.LittleEndian, [2]int32{from, to}); err != nil {
			return err
		}
	}
	return nil
}

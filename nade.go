// Package nade detects emotions in short texts in two stages: a fastText
// classifier predicts which emojis fit a text, and gradient-boosted
// regressors turn that emoji distribution into scores for Plutchik's eight
// basic emotions.
package nade

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/inkrement/nade/internal/fasttext"
	"go.uber.org/zap"
	"gopkg.in/neurosnap/sentences.v1"
	"gopkg.in/neurosnap/sentences.v1/english"
)

const emojiIndexFile = "emoji_frequencies.jsonl"

// Nade holds a loaded model. All artifacts are read once by New and never
// modified afterwards.
type Nade struct {
	Name string

	vocab      *Vocabulary
	classifier *fasttext.Model
	rows       []labelRow
	scorer     scorer
	segmenter  *sentences.DefaultSentenceTokenizer
	logger     *zap.Logger
}

// labelRow is the emoji behind one classifier output row.
type labelRow struct {
	hash  int
	emoji string
	err   error
}

// New loads the emoji index, the stage-I classifier and the stage-II
// regressors of a model. It fails if any of them is missing or unusable.
func New(opts ...Option) (*Nade, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	logger := o.logger.With(zap.String("model", o.model))

	var st *store
	var err error
	if o.fsys != nil {
		st, err = storeFromFS(o.fsys, o.model, logger)
	} else {
		st, err = storeFromDisk(o.dataDir, o.model, logger)
	}
	if err != nil {
		return nil, err
	}

	n := &Nade{Name: o.model, logger: logger}
	if err := n.loadVocabulary(st); err != nil {
		return nil, err
	}
	if err := n.loadClassifier(st, o.classifier); err != nil {
		return nil, err
	}

	loader := &regressorLoader{store: st, logger: logger}
	if o.compiled {
		loader.cache = &forestCache{dir: filepath.Join(o.cacheDir, o.model), logger: logger}
	}
	if n.scorer, err = loader.scorer(o.scorer); err != nil {
		return nil, err
	}
	for _, r := range n.scorer.regressors() {
		if r.NFeatures() > n.vocab.Len() {
			return nil, fmt.Errorf("%w: regressor reads %d features, vocabulary has %d",
				ErrUnsupportedModel, r.NFeatures(), n.vocab.Len())
		}
	}

	if n.segmenter, err = english.NewSentenceTokenizer(nil); err != nil {
		return nil, fmt.Errorf("sentence tokenizer: %w", err)
	}

	logger.Info("model loaded",
		zap.Int("emojis", n.vocab.Len()),
		zap.Int("classifier_labels", n.classifier.NLabels()),
		zap.String("scorer", o.scorer.String()),
		zap.Bool("compiled", o.compiled))
	return n, nil
}

func (n *Nade) loadVocabulary(st *store) error {
	f, err := st.open(emojiIndexFile)
	if err != nil {
		return err
	}
	defer f.Close()
	if n.vocab, err = LoadVocabulary(f); err != nil {
		return fmt.Errorf("%s: %w", emojiIndexFile, err)
	}
	return nil
}

func (n *Nade) loadClassifier(st *store, name string) error {
	f, err := st.open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if n.classifier, err = fasttext.Read(f); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	labels := n.classifier.Dictionary().Labels()
	if len(labels) != n.vocab.Len() {
		n.logger.Warn("classifier and emoji index disagree",
			zap.Int("classifier_labels", len(labels)),
			zap.Int("emojis", n.vocab.Len()))
	}
	n.rows = make([]labelRow, len(labels))
	for i, label := range labels {
		n.rows[i] = n.parseLabel(label)
	}
	return nil
}

func (n *Nade) parseLabel(label string) labelRow {
	raw := strings.TrimPrefix(label, fasttext.LabelPrefix)
	hash, err := strconv.Atoi(raw)
	if err != nil || raw == label {
		return labelRow{err: fmt.Errorf("%w: %q", ErrMalformedLabel, label)}
	}
	emoji, ok := n.vocab.Emoji(hash)
	if !ok {
		return labelRow{err: fmt.Errorf("%w: %q is not in the emoji index", ErrMalformedLabel, label)}
	}
	return labelRow{hash: hash, emoji: emoji}
}

// MaxK is the largest k PredictEmojis accepts: the vocabulary size.
func (n *Nade) MaxK() int { return n.vocab.Len() }

// Vocabulary returns the emoji index of the model.
func (n *Nade) Vocabulary() *Vocabulary { return n.vocab }

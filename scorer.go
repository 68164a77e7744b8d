package nade

import (
	"bufio"
	"bytes"
	"fmt"

	"github.com/dmitryikh/leaves"
	"go.uber.org/zap"
)

// A Regressor maps a feature vector to one or more outputs.
type Regressor interface {
	NFeatures() int
	NOutputs() int
	Predict(features, out []float64) error
}

// ensembleRegressor adapts a leaves ensemble to Regressor.
type ensembleRegressor struct {
	e *leaves.Ensemble
}

func (r ensembleRegressor) NFeatures() int { return r.e.NFeatures() }
func (r ensembleRegressor) NOutputs() int  { return r.e.NOutputGroups() }

func (r ensembleRegressor) Predict(features, out []float64) error {
	return r.e.Predict(features, 0, out)
}

// A scorer turns one feature vector into a raw score per requested label.
type scorer interface {
	score(features []float64, labels []Emotion, out []float64) error
	regressors() []Regressor
}

// perLabelScorer holds an independent single-output regressor per emotion.
type perLabelScorer struct {
	byLabel map[Emotion]Regressor
}

func (s *perLabelScorer) score(features []float64, labels []Emotion, out []float64) error {
	var one [1]float64
	for i, l := range labels {
		if err := s.byLabel[l].Predict(features, one[:]); err != nil {
			return fmt.Errorf("%s regressor: %w", l, err)
		}
		out[i] = one[0]
	}
	return nil
}

func (s *perLabelScorer) regressors() []Regressor {
	out := make([]Regressor, 0, len(s.byLabel))
	for _, l := range Labels {
		out = append(out, s.byLabel[l])
	}
	return out
}

// multiOutputScorer holds one regressor whose outputs follow Labels order.
type multiOutputScorer struct {
	r Regressor
}

func (s *multiOutputScorer) score(features []float64, labels []Emotion, out []float64) error {
	all := make([]float64, s.r.NOutputs())
	if err := s.r.Predict(features, all); err != nil {
		return fmt.Errorf("multi-output regressor: %w", err)
	}
	for i, l := range labels {
		out[i] = all[l.index()]
	}
	return nil
}

func (s *multiOutputScorer) regressors() []Regressor { return []Regressor{s.r} }

// regressorLoader builds regressors from LightGBM text artifacts with the
// configured backend.
type regressorLoader struct {
	store  *store
	cache  *forestCache // nil for the interpreted backend
	logger *zap.Logger
}

func (l *regressorLoader) load(name string, raw bool) (Regressor, error) {
	file := "reg_" + name + ".txt"
	src, err := l.store.readAll(file)
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		f, err := l.cache.load(name, src, raw)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", file, err)
		}
		l.logger.Debug("loaded regressor", zap.String("file", file), zap.String("backend", "compiled"), zap.Int("trees", len(f.Trees)))
		return f, nil
	}

	e, err := leaves.LGEnsembleFromReader(bufio.NewReader(bytes.NewReader(src)), !raw)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", file, err)
	}
	l.logger.Debug("loaded regressor", zap.String("file", file), zap.String("backend", "leaves"), zap.Int("trees", e.NEstimators()))
	return ensembleRegressor{e}, nil
}

func (l *regressorLoader) scorer(kind ScorerKind) (scorer, error) {
	switch kind {
	case PerLabel:
		s := &perLabelScorer{byLabel: make(map[Emotion]Regressor, len(Labels))}
		for _, label := range Labels {
			r, err := l.load(string(label), false)
			if err != nil {
				return nil, err
			}
			if r.NOutputs() != 1 {
				return nil, fmt.Errorf("%w: %s regressor has %d outputs", ErrUnsupportedModel, label, r.NOutputs())
			}
			s.byLabel[label] = r
		}
		return s, nil
	case MultiOutput:
		r, err := l.load("multioutput", true)
		if err != nil {
			return nil, err
		}
		if r.NOutputs() != len(Labels) {
			return nil, fmt.Errorf("%w: multi-output regressor has %d outputs, want %d", ErrUnsupportedModel, r.NOutputs(), len(Labels))
		}
		return &multiOutputScorer{r: r}, nil
	}
	return nil, &ArgumentError{Arg: "scorer", Message: kind.String()}
}

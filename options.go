package nade

import (
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// DefaultModel is the model directory used when WithModel is not given.
const DefaultModel = "socialmedia_en"

// DefaultClassifier is the stage-I artifact name inside a model directory.
const DefaultClassifier = "nade_250k_hp.ftz"

// An Option changes how New locates and loads a model.
//
// For example, it might switch stage II to the compiled backend:
//
//    n, err := nade.New(nade.WithCompiled(true))
type Option func(opts *options)

type options struct {
	model      string
	dataDir    string
	fsys       fs.FS
	compiled   bool
	cacheDir   string
	scorer     ScorerKind
	logger     *zap.Logger
	classifier string
}

func defaultOptions() *options {
	dataDir := os.Getenv("NADE_DATA")
	if dataDir == "" {
		dataDir = "data"
	}
	cacheDir := filepath.Join(os.TempDir(), "nade")
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "nade")
	}
	return &options{
		model:      DefaultModel,
		dataDir:    dataDir,
		cacheDir:   cacheDir,
		scorer:     PerLabel,
		logger:     zap.NewNop(),
		classifier: DefaultClassifier,
	}
}

// WithModel selects the model directory by name.
func WithModel(name string) Option {
	return func(opts *options) {
		opts.model = name
	}
}

// WithDataDir sets the directory that holds model directories. It
// defaults to $NADE_DATA, or "data" when that is unset.
func WithDataDir(dir string) Option {
	return func(opts *options) {
		opts.dataDir = dir
	}
}

// WithFS reads artifacts from fsys instead of the data directory. The model
// directory may sit anywhere inside fsys. Compressed regressors are
// decompressed in memory.
func WithFS(fsys fs.FS) Option {
	return func(opts *options) {
		opts.fsys = fsys
	}
}

// WithCompiled can enable or disable (the default) the compiled stage-II
// backend.
func WithCompiled(include bool) Option {
	return func(opts *options) {
		opts.compiled = include
	}
}

// WithCacheDir sets where compiled regressors are cached.
func WithCacheDir(dir string) Option {
	return func(opts *options) {
		opts.cacheDir = dir
	}
}

// WithScorer selects the regressor layout.
func WithScorer(kind ScorerKind) Option {
	return func(opts *options) {
		opts.scorer = kind
	}
}

// WithLogger sets the logger. Nothing is logged by default.
func WithLogger(logger *zap.Logger) Option {
	return func(opts *options) {
		if logger != nil {
			opts.logger = logger
		}
	}
}

// WithClassifierFile overrides the stage-I artifact name.
func WithClassifierFile(name string) Option {
	return func(opts *options) {
		opts.classifier = name
	}
}

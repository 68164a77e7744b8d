package main

import (
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/inkrement/nade"
)

type Config struct {
	DataDir   string
	Model     string
	Compiled  bool
	CacheDir  string
	Scorer    string
	Labels    string
	Text      string
	Verbose   bool
	Emojis    bool
	K         int
	SortIndex bool
	Sentences bool
}

func (c Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("missing -data")
	}
	if c.Model == "" {
		return errors.New("missing -model")
	}
	if c.K < 0 {
		return errors.New("k must be >= 0")
	}
	if c.Emojis && c.Sentences {
		return errors.New("-emojis and -sentences are mutually exclusive")
	}
	if _, err := nade.ParseScorerKind(c.Scorer); err != nil {
		return err
	}
	if _, err := c.emotions(); err != nil {
		return err
	}
	return nil
}

// emotions parses the comma-separated -labels value. Empty means all.
func (c Config) emotions() ([]nade.Emotion, error) {
	if strings.TrimSpace(c.Labels) == "" {
		return nil, nil
	}
	var out []nade.Emotion
	for _, s := range strings.Split(c.Labels, ",") {
		e, err := nade.ParseEmotion(s)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (c Config) options() []nade.Option {
	kind, _ := nade.ParseScorerKind(c.Scorer)
	opts := []nade.Option{
		nade.WithDataDir(c.DataDir),
		nade.WithModel(c.Model),
		nade.WithCompiled(c.Compiled),
		nade.WithScorer(kind),
	}
	if c.CacheDir != "" {
		opts = append(opts, nade.WithCacheDir(c.CacheDir))
	}
	return opts
}

func defaultConfig() Config {
	dataDir := os.Getenv("NADE_DATA")
	if dataDir == "" {
		dataDir = "data"
	}
	return Config{
		DataDir: dataDir,
		Model:   nade.DefaultModel,
		Scorer:  nade.PerLabel.String(),
		K:       10,
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()
	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.DataDir, "data", cfg.DataDir, "Directory holding model directories (default: $NADE_DATA or ./data)")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "Model directory name")
	fs.BoolVar(&cfg.Compiled, "compiled", false, "Use the compiled regressor backend")
	fs.StringVar(&cfg.CacheDir, "cache", "", "Compiled regressor cache (default: user cache dir)")
	fs.StringVar(&cfg.Scorer, "scorer", cfg.Scorer, "Regressor layout: per-label or multi-output")
	fs.StringVar(&cfg.Labels, "labels", "", "Comma-separated emotions to score (default: all)")
	fs.BoolVar(&cfg.Emojis, "emojis", false, "Print stage-I emoji predictions instead of emotions")
	fs.IntVar(&cfg.K, "k", cfg.K, "Number of emojis to print with -emojis")
	fs.BoolVar(&cfg.SortIndex, "sort-index", false, "Order emojis by hash instead of confidence")
	fs.BoolVar(&cfg.Sentences, "sentences", false, "Score every sentence of each input separately")
	fs.StringVar(&cfg.Text, "text", "", "Score this text instead of reading lines from stdin")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Log model loading to stderr")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.DataDir = filepath.Clean(cfg.DataDir)
	if cfg.CacheDir != "" {
		cfg.CacheDir = filepath.Clean(cfg.CacheDir)
	}
	return cfg, nil
}

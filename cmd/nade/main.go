// Command nade scores texts for eight basic emotions. It reads one text per
// line from stdin (or -text) and writes one JSON object per line.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inkrement/nade"
	"go.uber.org/zap"
)

func main() {
	os.Exit(realMain(os.Args[1:]))
}

// realMain runs the command and returns its exit code, so deferred calls
// such as flushing the logger run before the process exits.
func realMain(args []string) int {
	cfg, err := parseFlags(flag.NewFlagSet("nade", flag.ContinueOnError), args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 2
	}

	logger := zap.NewNop()
	if cfg.Verbose {
		if logger, err = zap.NewDevelopment(); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return 1
		}
	}
	defer logger.Sync()

	n, err := nade.New(append(cfg.options(), nade.WithLogger(logger))...)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	in := io.Reader(os.Stdin)
	if cfg.Text != "" {
		in = strings.NewReader(cfg.Text)
	}
	if err := run(cfg, n, in, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}
	return 0
}

// predictor is the part of *nade.Nade the command uses.
type predictor interface {
	PredictText(text string, labels ...nade.Emotion) (nade.Scores, error)
	PredictEmoji(text string, k int, sortByIndex bool) ([]nade.EmojiScore, error)
	PredictSentences(text string, labels ...nade.Emotion) ([]nade.SentenceScores, error)
}

type record struct {
	Text      string                `json:"text"`
	Scores    nade.Scores           `json:"scores,omitempty"`
	Dominant  nade.Emotion          `json:"dominant,omitempty"`
	Emojis    []nade.EmojiScore     `json:"emojis,omitempty"`
	Sentences []nade.SentenceScores `json:"sentences,omitempty"`
}

func run(cfg Config, p predictor, in io.Reader, out io.Writer) error {
	labels, err := cfg.emotions()
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	defer w.Flush()
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Text()
		rec := record{Text: text}
		switch {
		case cfg.Emojis:
			rec.Emojis, err = p.PredictEmoji(text, cfg.K, cfg.SortIndex)
		case cfg.Sentences:
			rec.Sentences, err = p.PredictSentences(text, labels...)
		default:
			rec.Scores, err = p.PredictText(text, labels...)
			rec.Dominant = rec.Scores.Dominant()
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return w.Flush()
}

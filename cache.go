package nade

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// compiledForest is the on-disk form of a cached Forest. Fingerprint is the
// SHA-256 of the LightGBM text it was compiled from.
type compiledForest struct {
	Fingerprint string
	Raw         bool
	Forest      *Forest
}

type forestCache struct {
	dir    string
	logger *zap.Logger
}

func fingerprint(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// load returns the compiled form of src, reusing the cache file called
// name when it was built from the same source.
func (c *forestCache) load(name string, src []byte, raw bool) (*Forest, error) {
	path := filepath.Join(c.dir, name+".forest")
	fp := fingerprint(src)

	if cached, err := readCompiled(path); err == nil {
		if cached.Fingerprint == fp && cached.Raw == raw && cached.Forest != nil && len(cached.Forest.Trees) > 0 {
			c.logger.Debug("compiled cache hit", zap.String("path", path))
			return cached.Forest, nil
		}
		c.logger.Warn("stale compiled cache", zap.String("path", path))
	} else if !errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn("unreadable compiled cache", zap.String("path", path), zap.Error(err))
	} else {
		c.logger.Debug("compiled cache miss", zap.String("path", path))
	}

	forest, err := CompileForest(bytes.NewReader(src), raw)
	if err != nil {
		return nil, err
	}
	if err := c.store(path, &compiledForest{Fingerprint: fp, Raw: raw, Forest: forest}); err != nil {
		// the forest is still usable, it just has to be compiled again next time
		c.logger.Warn("write compiled cache", zap.String("path", path), zap.Error(err))
	}
	return forest, nil
}

func readCompiled(path string) (*compiledForest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var cf compiledForest
	if err := gob.NewDecoder(f).Decode(&cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

func (c *forestCache) store(path string, cf *compiledForest) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return writeAtomic(path, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(cf)
	})
}

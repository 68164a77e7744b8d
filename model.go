package nade

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// store resolves artifact names inside one model directory, either on disk
// or inside a user-supplied fs.FS.
type store struct {
	name   string
	fsys   fs.FS
	dir    string // empty when reading from a user fs.FS
	logger *zap.Logger
}

func storeFromDisk(dataDir, name string, logger *zap.Logger) (*store, error) {
	dir := filepath.Join(dataDir, name)
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: model directory %s: %v", ErrMissingArtifact, dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrMissingArtifact, dir)
	}
	return &store{name: name, fsys: os.DirFS(dir), dir: dir, logger: logger}, nil
}

func storeFromFS(filesys fs.FS, name string, logger *zap.Logger) (*store, error) {
	// Locate a folder matching name within filesys
	var modelFS fs.FS
	err := fs.WalkDir(filesys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Model located. Exit tree traversal
		if d.IsDir() && d.Name() == name {
			modelFS, err = fs.Sub(filesys, path)
			if err != nil {
				return err
			}
			return io.EOF
		}

		return nil
	})
	if err != io.EOF {
		if err == nil {
			err = fs.ErrNotExist
		}
		return nil, fmt.Errorf("%w: model %s: %v", ErrMissingArtifact, name, err)
	}
	return &store{name: name, fsys: modelFS, logger: logger}, nil
}

// open returns the named artifact. When only name.gz exists it is
// decompressed: on disk the plain file is written next to the archive once,
// for an fs.FS the archive is streamed.
func (s *store) open(name string) (io.ReadCloser, error) {
	f, err := s.fsys.Open(name)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	gz, err := s.fsys.Open(name + ".gz")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s/%s", ErrMissingArtifact, s.name, name)
	} else if err != nil {
		return nil, err
	}

	if s.dir == "" {
		zr, err := gzip.NewReader(gz)
		if err != nil {
			gz.Close()
			return nil, fmt.Errorf("%s.gz: %w", name, err)
		}
		return &gzipFile{Reader: zr, file: gz}, nil
	}

	defer gz.Close()
	s.logger.Info("unpack model", zap.String("model", s.name), zap.String("file", name))
	if err := unpack(gz, filepath.Join(s.dir, name)); err != nil {
		return nil, fmt.Errorf("unpack %s.gz: %w", name, err)
	}
	return s.fsys.Open(name)
}

// readAll returns the full contents of the named artifact.
func (s *store) readAll(name string) ([]byte, error) {
	f, err := s.open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

type gzipFile struct {
	*gzip.Reader
	file fs.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if cerr := g.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// unpack decompresses src into path through a temporary file so a crash
// never leaves a truncated model behind.
func unpack(src io.Reader, path string) error {
	zr, err := gzip.NewReader(src)
	if err != nil {
		return err
	}
	defer zr.Close()
	return writeAtomic(path, func(w io.Writer) error {
		_, err := io.Copy(w, zr)
		return err
	})
}

func writeAtomic(path string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

package fasttext

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Model is a loaded supervised fastText model. It is read-only after
// loading and may be shared between goroutines.
type Model struct {
	Args Args

	dict   *Dictionary
	input  Matrix
	output Matrix
	tree   []treeNode
}

// New assembles a model from its parts. Entries may list words and labels
// in any order; labels are placed after words the way fastText sorts them.
func New(args Args, entries []Entry, input, output Matrix) (*Model, error) {
	m := &Model{Args: args, input: input, output: output}
	m.dict = newDictionary(&m.Args, entries)
	if err := m.init(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads a model from a .bin or .ftz file.
func Load(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Read reads a model in fastText's binary format.
func Read(r io.Reader) (*Model, error) {
	br := bufio.NewReader(r)
	version, err := readHeader(br)
	if err != nil {
		return nil, err
	}
	m := &Model{}
	if err := m.Args.read(br); err != nil {
		return nil, fmt.Errorf("fasttext: read args: %w", err)
	}
	if version == 11 && m.Args.Model == Supervised {
		// old supervised models do not use char ngrams
		m.Args.Maxn = 0
	}
	if m.dict, err = readDictionary(br, &m.Args); err != nil {
		return nil, err
	}

	var quantInput bool
	if err := binary.Read(br, binary.LittleEndian, &quantInput); err != nil {
		return nil, fmt.Errorf("fasttext: read input flag: %w", err)
	}
	if !quantInput && m.dict.isPruned() {
		return nil, fmt.Errorf("fasttext: invalid model: pruned dictionary with dense input matrix")
	}
	if m.input, err = readMatrix(br, quantInput); err != nil {
		return nil, err
	}

	var quantOutput bool
	if err := binary.Read(br, binary.LittleEndian, &quantOutput); err != nil {
		return nil, fmt.Errorf("fasttext: read output flag: %w", err)
	}
	if m.output, err = readMatrix(br, quantInput && quantOutput); err != nil {
		return nil, err
	}
	if err := m.init(); err != nil {
		return nil, err
	}
	return m, nil
}

func readMatrix(r io.Reader, quant bool) (Matrix, error) {
	if quant {
		return readQuant(r)
	}
	return readDense(r)
}

func (m *Model) init() error {
	if m.Args.Model != Supervised {
		return ErrNotSupervised
	}
	if m.input.Cols() != int(m.Args.Dim) || m.output.Cols() != int(m.Args.Dim) {
		return fmt.Errorf("fasttext: matrix width does not match dim %d", m.Args.Dim)
	}
	nlabels := m.dict.NLabels()
	if nlabels == 0 {
		return fmt.Errorf("fasttext: model has no labels")
	}
	want := nlabels
	if m.Args.Loss == HierarchicalSoftmax {
		want = nlabels - 1
		m.tree = buildTree(m.dict.labelCounts())
	}
	if m.output.Rows() != want {
		return fmt.Errorf("fasttext: output matrix has %d rows, want %d", m.output.Rows(), want)
	}
	return nil
}

// Save writes the model in fastText's binary format, version 12.
func (m *Model) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := writeHeader(bw); err != nil {
		return err
	}
	if err := m.Args.write(bw); err != nil {
		return err
	}
	if err := m.dict.write(bw); err != nil {
		return err
	}
	_, quantInput := m.input.(*quantMatrix)
	_, quantOutput := m.output.(*quantMatrix)
	if err := binary.Write(bw, binary.LittleEndian, quantInput); err != nil {
		return err
	}
	if err := m.input.write(bw); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, quantOutput); err != nil {
		return err
	}
	if err := m.output.write(bw); err != nil {
		return err
	}
	return bw.Flush()
}

// Dictionary exposes the model vocabulary.
func (m *Model) Dictionary() *Dictionary { return m.dict }

// NLabels is the size of the label space.
func (m *Model) NLabels() int { return m.dict.NLabels() }

// Quantized reports whether the input matrix is product-quantized.
func (m *Model) Quantized() bool {
	_, ok := m.input.(*quantMatrix)
	return ok
}

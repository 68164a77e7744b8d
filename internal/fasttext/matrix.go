package fasttext

import (
	"encoding/binary"
	"fmt"
	"io"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a row store for the input or output layer.
type Matrix interface {
	Rows() int
	Cols() int
	// DotRow returns the dot product of row i with vec.
	DotRow(vec []float64, i int) float64
	// AddRowToVector adds a*row(i) to x.
	AddRowToVector(x []float64, i int, a float64)

	write(w io.Writer) error
}

type denseMatrix struct {
	m *mat.Dense
}

// NewDense builds a dense matrix from row-major data.
func NewDense(rows, cols int, data []float64) Matrix {
	return &denseMatrix{m: mat.NewDense(rows, cols, data)}
}

func (d *denseMatrix) Rows() int {
	r, _ := d.m.Dims()
	return r
}

func (d *denseMatrix) Cols() int {
	_, c := d.m.Dims()
	return c
}

func (d *denseMatrix) DotRow(vec []float64, i int) float64 {
	return floats.Dot(d.m.RawRowView(i), vec)
}

func (d *denseMatrix) AddRowToVector(x []float64, i int, a float64) {
	floats.AddScaled(x, a, d.m.RawRowView(i))
}

// mulVec computes dst = M * vec for every row at once.
func (d *denseMatrix) mulVec(dst, vec []float64) {
	out := mat.NewVecDense(len(dst), dst)
	out.MulVec(d.m, mat.NewVecDense(len(vec), vec))
}

func readDense(r io.Reader) (*denseMatrix, error) {
	var dims [2]int64
	if err := binary.Read(r, binary.LittleEndian, &dims); err != nil {
		return nil, fmt.Errorf("fasttext: read matrix shape: %w", err)
	}
	if dims[0] <= 0 || dims[1] <= 0 {
		return nil, fmt.Errorf("fasttext: empty matrix %dx%d", dims[0], dims[1])
	}
	raw := make([]float32, dims[0]*dims[1])
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return nil, fmt.Errorf("fasttext: read matrix data: %w", err)
	}
	data := make([]float64, len(raw))
	for i, v := range raw {
		data[i] = float64(v)
	}
	return &denseMatrix{m: mat.NewDense(int(dims[0]), int(dims[1]), data)}, nil
}

func (d *denseMatrix) write(w io.Writer) error {
	rows, cols := d.m.Dims()
	if err := binary.Write(w, binary.LittleEndian, [2]int64{int64(rows), int64(cols)}); err != nil {
		return err
	}
	raw := make([]float32, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for _, v := range d.m.RawRowView(i) {
			raw = append(raw, float32(v))
		}
	}
	return binary.Write(w, binary.LittleEndian, raw)
}

// quantMatrix stores every row as product-quantizer codes, optionally
// scaled by a separately quantized norm.
type quantMatrix struct {
	qnorm     bool
	m, n      int64
	codes     []uint8
	pq        *productQuantizer
	normCodes []uint8
	npq       *productQuantizer
}

func (q *quantMatrix) Rows() int { return int(q.m) }
func (q *quantMatrix) Cols() int { return int(q.n) }

func (q *quantMatrix) norm(i int) float64 {
	if !q.qnorm {
		return 1
	}
	return q.npq.centroid(0, q.normCodes[i])[0]
}

func (q *quantMatrix) DotRow(vec []float64, i int) float64 {
	return q.pq.mulCode(vec, q.codes, i, q.norm(i))
}

func (q *quantMatrix) AddRowToVector(x []float64, i int, a float64) {
	q.pq.addCode(x, q.codes, i, a*q.norm(i))
}

func readQuant(r io.Reader) (*quantMatrix, error) {
	var head struct {
		QNorm    bool
		M, N     int64
		CodeSize int32
	}
	if err := binary.Read(r, binary.LittleEndian, &head); err != nil {
		return nil, fmt.Errorf("fasttext: read quantized matrix: %w", err)
	}
	q := &quantMatrix{qnorm: head.QNorm, m: head.M, n: head.N, codes: make([]uint8, head.CodeSize)}
	if _, err := io.ReadFull(r, q.codes); err != nil {
		return nil, fmt.Errorf("fasttext: read codes: %w", err)
	}
	var err error
	if q.pq, err = readQuantizer(r); err != nil {
		return nil, err
	}
	if q.qnorm {
		q.normCodes = make([]uint8, q.m)
		if _, err := io.ReadFull(r, q.normCodes); err != nil {
			return nil, fmt.Errorf("fasttext: read norm codes: %w", err)
		}
		if q.npq, err = readQuantizer(r); err != nil {
			return nil, err
		}
	}
	return q, nil
}

func (q *quantMatrix) write(w io.Writer) error {
	head := struct {
		QNorm    bool
		M, N     int64
		CodeSize int32
	}{q.qnorm, q.m, q.n, int32(len(q.codes))}
	if err := binary.Write(w, binary.LittleEndian, head); err != nil {
		return err
	}
	if _, err := w.Write(q.codes); err != nil {
		return err
	}
	if err := q.pq.write(w); err != nil {
		return err
	}
	if q.qnorm {
		if _, err := w.Write(q.normCodes); err != nil {
			return err
		}
		return q.npq.write(w)
	}
	return nil
}

const ksub = 256

type productQuantizer struct {
	dim, nsubq, dsub, lastdsub int32
	centroids                  []float64
}

func (p *productQuantizer) centroid(m int, code uint8) []float64 {
	if int32(m) == p.nsubq-1 {
		off := m*ksub*int(p.dsub) + int(code)*int(p.lastdsub)
		return p.centroids[off : off+int(p.lastdsub)]
	}
	off := (m*ksub + int(code)) * int(p.dsub)
	return p.centroids[off : off+int(p.dsub)]
}

func (p *productQuantizer) addCode(x []float64, codes []uint8, t int, alpha float64) {
	code := codes[int(p.nsubq)*t:]
	for m := 0; m < int(p.nsubq); m++ {
		c := p.centroid(m, code[m])
		floats.AddScaled(x[m*int(p.dsub):m*int(p.dsub)+len(c)], alpha, c)
	}
}

func (p *productQuantizer) mulCode(x []float64, codes []uint8, t int, alpha float64) float64 {
	code := codes[int(p.nsubq)*t:]
	var res float64
	for m := 0; m < int(p.nsubq); m++ {
		c := p.centroid(m, code[m])
		res += floats.Dot(x[m*int(p.dsub):m*int(p.dsub)+len(c)], c)
	}
	return res * alpha
}

func readQuantizer(r io.Reader) (*productQuantizer, error) {
	var head [4]int32
	if err := binary.Read(r, binary.LittleEndian, &head); err != nil {
		return nil, fmt.Errorf("fasttext: read quantizer: %w", err)
	}
	p := &productQuantizer{dim: head[0], nsubq: head[1], dsub: head[2], lastdsub: head[3]}
	raw := make([]float32, int(p.dim)*ksub)
	if err := binary.Read(r, binary.LittleEndian, raw); err != nil {
		return nil, fmt.Errorf("fasttext: read centroids: %w", err)
	}
	p.centroids = make([]float64, len(raw))
	for i, v := range raw {
		p.centroids[i] = float64(v)
	}
	return p, nil
}

func (p *productQuantizer) write(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, [4]int32{p.dim, p.nsubq, p.dsub, p.lastdsub}); err != nil {
		return err
	}
	raw := make([]float32, len(p.centroids))
	for i, v := range p.centroids {
		raw[i] = float32(v)
	}
	return binary.Write(w, binary.LittleEndian, raw)
}

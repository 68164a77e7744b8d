// Package fasttext reads fastText supervised models (.bin and quantized .ftz)
// and runs label prediction on them.
package fasttext

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	fileFormatMagic   int32 = 793712314
	fileFormatVersion int32 = 12

	// LabelPrefix marks dictionary entries that are labels.
	LabelPrefix = "__label__"

	eos = "</s>"
	bow = "<"
	eow = ">"
)

var (
	ErrNotFastText        = errors.New("fasttext: not a fastText model")
	ErrUnsupportedVersion = errors.New("fasttext: unsupported model version")
	ErrNotSupervised      = errors.New("fasttext: model is not supervised")
	ErrInvalidK           = errors.New("fasttext: k needs to be 1 or higher")
)

// ModelName is the training architecture stored in the model header.
type ModelName int32

const (
	CBOW       ModelName = 1
	SkipGram   ModelName = 2
	Supervised ModelName = 3
)

// LossName is the loss the output layer was trained with. It decides how
// scores are turned into probabilities at prediction time.
type LossName int32

const (
	HierarchicalSoftmax LossName = 1
	NegativeSampling    LossName = 2
	Softmax             LossName = 3
	OneVsAll            LossName = 4
)

func (l LossName) String() string {
	switch l {
	case HierarchicalSoftmax:
		return "hs"
	case NegativeSampling:
		return "ns"
	case Softmax:
		return "softmax"
	case OneVsAll:
		return "ova"
	}
	return fmt.Sprintf("loss(%d)", int32(l))
}

// Args mirrors the hyperparameter block at the head of every model file.
// Field order and widths follow the on-disk layout.
type Args struct {
	Dim          int32
	WS           int32
	Epoch        int32
	MinCount     int32
	Neg          int32
	WordNgrams   int32
	Loss         LossName
	Model        ModelName
	Bucket       int32
	Minn         int32
	Maxn         int32
	LRUpdateRate int32
	T            float64
}

func readHeader(r io.Reader) (int32, error) {
	var magic, version int32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return 0, fmt.Errorf("fasttext: read magic: %w", err)
	}
	if magic != fileFormatMagic {
		return 0, ErrNotFastText
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return 0, fmt.Errorf("fasttext: read version: %w", err)
	}
	if version > fileFormatVersion {
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
	return version, nil
}

func writeHeader(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, [2]int32{fileFormatMagic, fileFormatVersion})
}

func (a *Args) read(r io.Reader) error {
	return binary.Read(r, binary.LittleEndian, a)
}

func (a *Args) write(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, a)
}

package nade

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingArtifact is returned by New when a required model file is absent.
	ErrMissingArtifact = errors.New("nade: missing model artifact")
	// ErrInvalidArgument is matched by every *ArgumentError.
	ErrInvalidArgument = errors.New("nade: invalid argument")
	// ErrMalformedLabel is returned when the classifier emits a label that
	// does not name an emoji of the vocabulary.
	ErrMalformedLabel = errors.New("nade: malformed classifier label")
	// ErrUnsupportedModel is returned for regressor files the compiled
	// backend cannot represent.
	ErrUnsupportedModel = errors.New("nade: unsupported model")
)

// ArgumentError reports a caller-supplied value that is out of range.
type ArgumentError struct {
	Arg     string
	Message string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("nade: invalid %s: %s", e.Arg, e.Message)
}

func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}

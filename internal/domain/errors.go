package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCorpus is returned when training is attempted without documents.
	ErrEmptyCorpus = errors.New("empty corpus")
	// ErrFormatVersion marks a bundle written by an incompatible serializer.
	ErrFormatVersion = errors.New("unsupported bundle format version")
	// ErrChecksum marks a bundle whose payload does not match its checksum.
	ErrChecksum = errors.New("bundle checksum mismatch")
	// ErrNotTrained is returned by embedders used before training or restore.
	ErrNotTrained = errors.New("embedder not trained")
)

// MissingFieldError reports an input record without a required field.
type MissingFieldError struct {
	Index int
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("record %d: missing field %q", e.Index, e.Field)
}

// TrainingError wraps any failure while building or training a model.
type TrainingError struct {
	Err error
}

func (e *TrainingError) Error() string { return "training failed: " + e.Err.Error() }

func (e *TrainingError) Unwrap() error { return e.Err }

// PersistenceError wraps I/O and format failures while saving or loading a bundle.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// InvalidQueryError reports a query that cannot be resolved to any query text.
type InvalidQueryError struct {
	Reason string
}

func (e *InvalidQueryError) Error() string { return "invalid query: " + e.Reason }

// UnknownTitleError reports a title lookup that failed with no summary to fall back on.
type UnknownTitleError struct {
	Title string
}

func (e *UnknownTitleError) Error() string {
	return fmt.Sprintf("title %q not in database, provide a summary of the book", e.Title)
}

package memoizer

import (
	"errors"
)

var (
	// ErrUnknownIdentifier is returned by Get for an identifier never put.
	ErrUnknownIdentifier = errors.New("unknown identifier")

	// ErrCompleted is returned by Put and PutIfAbsent once the memoizer is
	// completed.
	ErrCompleted = errors.New("memoizer already completed")

	// ErrDuplicateIdentifier is returned by Put when the identifier is already
	// used and the conflict policy refuses the new document.
	ErrDuplicateIdentifier = errors.New("duplicate identifier")

	// ErrInvalidDocument is returned by Put and PutIfAbsent when the document
	// is not a map.
	ErrInvalidDocument = errors.New("invalid document")
)

package memory

import "errors"

var (
	// ErrEmptyText is returned when a record has no content
	ErrEmptyText = errors.New("record text must not be empty")

	// ErrUnknownKind is returned when a record's kind is not recognized
	ErrUnknownKind = errors.New("unknown record kind")
)

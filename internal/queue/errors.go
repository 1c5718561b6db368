package queue

import (
	"errors"

	"briefcast/internal/config"
)

// LocalSource marks entries imported from files dropped into the audio directory.
const LocalSource = config.LocalSource

var (
	// ErrInvalidCandidate is returned when an insert lacks a source or URL.
	ErrInvalidCandidate = errors.New("invalid candidate")
	// ErrStageOrder is returned when an update would set a stage flag
	// without its predecessor.
	ErrStageOrder = errors.New("stage flags out of order")
	// ErrEntryNotFound is returned when an update targets a missing row.
	ErrEntryNotFound = errors.New("entry not found")
)

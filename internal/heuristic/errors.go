package heuristic

import "errors"

var (
	// ErrNoMatch means no candidate survived scanning and filtering.
	ErrNoMatch = errors.New("nothing found")

	// ErrAmbiguousMatch means more than one candidate remains.
	ErrAmbiguousMatch = errors.New("too many offsets")

	// ErrInvalidVariant means a variant definition cannot be used.
	ErrInvalidVariant = errors.New("invalid variant")
)

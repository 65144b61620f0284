package errs

import "errors"

// Sentinel errors of the pipeline. Callers classify failures with
// errors.Is; wrapping sites add context with %w.
var (
	ErrMalformedInput     = errors.New("malformed input")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrEmptyCorpus        = errors.New("empty corpus")
	ErrProvider           = errors.New("provider failure")
	ErrStorage            = errors.New("storage failure")
	ErrQueue              = errors.New("queue failure")
)

package domain

import (
	"errors"
	"fmt"
)

// ErrDuplicateURL is returned by the store when a publication record already
// exists for the URL. The filter pre-checks dedup, so hitting this is a
// benign race: skip the candidate, do not crash.
var ErrDuplicateURL = errors.New("url already recorded")

// ErrQuotaExceeded signals the daily cap was reached. Expected control flow,
// not a failure.
var ErrQuotaExceeded = errors.New("daily post quota exceeded")

// GenerationError wraps failures of the external text or image generation
// capability. Recoverable: the cycle aborts, no record is written, and the
// candidate stays eligible for the next run.
type GenerationError struct {
	Stage string // "text" or "image"
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation: %v", e.Stage, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// PublishError wraps failures of the publish transport. Retryable errors may
// be retried a bounded number of times within the cycle before aborting.
type PublishError struct {
	Retryable bool
	Err       error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish: %v", e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

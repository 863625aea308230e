package models

import "errors"

// Failure categories surfaced by the workflow. Stages wrap these with
// fmt.Errorf("...: %w", ...) so callers can classify with errors.Is; anything
// that does not match one of them is unrecognized and propagates as-is.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrAccessDenied         = errors.New("access denied")
	ErrNotFound             = errors.New("not found")
	ErrRemoteJobFailed      = errors.New("remote job failed")
	ErrRemoteCallError      = errors.New("remote call error")
	ErrMalformedData        = errors.New("malformed data")
)

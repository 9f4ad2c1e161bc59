package services

import "errors"

// Sentinel errors for the failure modes the orchestrator distinguishes.
var (
	// ErrRateLimited: the submission retry ceiling was exhausted while the
	// remote kept signalling a rate limit. Aborts the scene only.
	ErrRateLimited = errors.New("rate limit retries exhausted")

	// ErrJobFailed: the remote generation job reported a terminal failure.
	// Not retried.
	ErrJobFailed = errors.New("remote generation job failed")

	// ErrNoCredentials: the credential pool is empty.
	ErrNoCredentials = errors.New("no API credentials configured")
)

package types

import (
	"errors"
	"fmt"
)

// ErrorClass buckets provider failures for the fallback policy.
type ErrorClass string

const (
	// ErrAuth: bad or missing credential. Never retried against the same
	// provider.
	ErrAuth ErrorClass = "auth"
	// ErrRateLimit: provider throttled the request. Retried with backoff
	// before falling through the chain.
	ErrRateLimit ErrorClass = "rate_limit"
	// ErrNetwork: transport failure or timeout. Retried once.
	ErrNetwork ErrorClass = "network"
	// ErrContent: provider rejected the request content. Not retried.
	ErrContent ErrorClass = "content"
)

// ProviderError is a classified failure from a single provider call.
type ProviderError struct {
	Provider string
	Class    ErrorClass
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Class, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err with a provider name and class.
func NewProviderError(provider string, class ErrorClass, err error) *ProviderError {
	return &ProviderError{Provider: provider, Class: class, Err: err}
}

// AsProviderError extracts a *ProviderError from an error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// PipelineError is an unrecoverable failure that aborts the run. Artifacts
// persisted before the failure remain on disk.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Fatal wraps err as a pipeline-fatal error for the named stage.
func Fatal(stage string, err error) *PipelineError {
	return &PipelineError{Stage: stage, Err: err}
}

package compose

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceFailure means the completion service could not produce a response.
	ErrServiceFailure = errors.New("completion service failure")
	// ErrMalformedResponse means the response did not follow the marker framing.
	ErrMalformedResponse = errors.New("malformed completion response")
)

// GenerationError is returned by Generate. Kind is ErrServiceFailure or
// ErrMalformedResponse and is matched by errors.Is.
type GenerationError struct {
	Kind   error
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	case e.Reason != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
	default:
		return e.Kind.Error()
	}
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

func (e *GenerationError) Is(target error) bool {
	return target == e.Kind
}

func malformed(format string, args ...any) *GenerationError {
	return &GenerationError{Kind: ErrMalformedResponse, Reason: fmt.Sprintf(format, args...)}
}

func serviceFailure(err error) *GenerationError {
	return &GenerationError{Kind: ErrServiceFailure, Err: err}
}
